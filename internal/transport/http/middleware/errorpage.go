package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	resp "gin-gorm-employees/internal/transport/http/response"
)

// ErrorPages 把处理链中 c.Error 挂上的最后一个错误转换为通用错误页。
// 非开发环境只显示通用文案和请求 ID。
func ErrorPages(l *zap.Logger, development bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		page := resp.NewErrorPage(err, RequestIDOf(c), development)
		if page.Status >= 500 {
			l.Error("request failed", zap.String("rid", page.RequestID), zap.Int("status", page.Status), zap.Error(err))
		} else {
			l.Info("request rejected", zap.String("rid", page.RequestID), zap.Int("status", page.Status), zap.Error(err))
		}
		if c.Writer.Written() {
			return
		}
		c.HTML(page.Status, "error.html", page)
	}
}

// PanicPage 供 recovery 中间件在 panic 后渲染 500 页面
func PanicPage(development bool) gin.RecoveryFunc {
	return func(c *gin.Context, rec any) {
		page := resp.NewErrorPage(fmt.Errorf("panic: %v", rec), RequestIDOf(c), development)
		c.HTML(page.Status, "error.html", page)
		c.Abort()
	}
}
