package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"smart-routine/backend/internal/model"
	"smart-routine/backend/internal/routine"
)

// Strategy 基于生成式模型的辅助排课策略，实现 routine.Oracle
type Strategy struct {
	client Client
	logger *zap.Logger
}

// NewStrategy 创建 Strategy
func NewStrategy(client Client, logger *zap.Logger) *Strategy {
	return &Strategy{client: client, logger: logger}
}

// ProposeRoutine 调用模型并解析其选中的 section ID
func (s *Strategy) ProposeRoutine(ctx context.Context, req *routine.OracleRequest) (*routine.OracleProposal, error) {
	text, err := s.client.Generate(ctx, RoutinePrompt(req))
	if err != nil {
		return nil, err
	}
	proposal, err := ParseProposal(text)
	if err != nil {
		s.logger.Warn("模型输出无法解析", zap.Error(err), zap.Int("chars", len(text)))
		return nil, err
	}
	s.logger.Debug("模型给出排课方案", zap.Strings("sections", proposal.SectionIDs))
	return proposal, nil
}

var feedbackPattern = regexp.MustCompile(`Feedback:\s*(.*)`)

// ParseProposal 从模型输出中提取 JSON 数组与 "Feedback:" 行。
// 输出中没有数组时返回空方案（由调用方按无解处理）。
func ParseProposal(text string) (*routine.OracleProposal, error) {
	proposal := &routine.OracleProposal{}
	if m := feedbackPattern.FindStringSubmatch(text); m != nil {
		proposal.Feedback = strings.TrimSpace(m[1])
	}

	array, ok := ExtractJSONArray(text)
	if !ok {
		return proposal, nil
	}

	var picks []struct {
		SectionID model.SectionID `json:"sectionId"`
	}
	if err := json.Unmarshal([]byte(array), &picks); err != nil {
		return nil, fmt.Errorf("解析模型输出失败: %w", err)
	}
	for _, p := range picks {
		if p.SectionID != "" {
			proposal.SectionIDs = append(proposal.SectionIDs, string(p.SectionID))
		}
	}
	return proposal, nil
}

// ExtractJSONArray 截取第一个 '[' 到最后一个 ']' 之间的内容并补全缺失的括号。
// 没有 ']' 时（输出被截断）截取到文本末尾。
func ExtractJSONArray(text string) (string, bool) {
	start := strings.IndexByte(text, '[')
	if start < 0 {
		return "", false
	}
	s := text[start:]
	if end := strings.LastIndexByte(text, ']'); end > start {
		s = text[start : end+1]
	}
	return RepairJSON(s), true
}

// RepairJSON 按未闭合的数量依次补齐 '}' 与 ']'
func RepairJSON(s string) string {
	s = strings.TrimRight(strings.TrimSpace(s), ",")
	if n := strings.Count(s, "{") - strings.Count(s, "}"); n > 0 {
		s += strings.Repeat("}", n)
	}
	if n := strings.Count(s, "[") - strings.Count(s, "]"); n > 0 {
		s += strings.Repeat("]", n)
	}
	return s
}
