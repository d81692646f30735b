// Package middleware 提供 HTTP 中间件：认证、管理员校验、请求日志、性能记录、指标、追踪、限流与熔断.
package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/eduaccess/pkg/context"
	"github.com/yeisme/eduaccess/pkg/log"
)

// RecoveryMiddleware 捕获处理器 panic，记录堆栈并返回 500.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger := ctxPkg.WithTraceContext(c.Request.Context(), *log.Logger())
				logger.Error().
					Interface("panic", r).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("handler panicked")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()

		c.Next()
	}
}
