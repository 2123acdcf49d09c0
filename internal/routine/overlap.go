package routine

// Overlap 判断两个半开区间 [aStart,aEnd) 与 [bStart,bEnd) 是否重叠。
// 端点相接不算重叠。所有冲突检测都必须经过这里。
func Overlap(aStart, aEnd, bStart, bEnd int) bool {
	return max(aStart, bStart) < min(aEnd, bEnd)
}
