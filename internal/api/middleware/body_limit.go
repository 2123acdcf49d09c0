package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smart-routine/backend/pkg/response"
)

// BodyLimit 请求体大小限制中间件
//   - Content-Length 已超限时直接返回 413
//   - 未声明长度的请求体由 MaxBytesReader 截断，读取超限时绑定失败
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
