package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	ctxPkg "github.com/yeisme/eduaccess/pkg/context"
	"github.com/yeisme/eduaccess/pkg/log"
)

// GinLoggerMiddleware 使用zerolog记录Gin请求日志的中间件.
func GinLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		method := c.Request.Method
		clientIP := c.ClientIP()

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		logger := ctxPkg.WithTraceContext(c.Request.Context(), *log.Logger())

		level := zerolog.InfoLevel

		switch {
		case statusCode >= 500:
			level = zerolog.ErrorLevel
		case statusCode >= 400:
			level = zerolog.WarnLevel
		}

		event := logger.WithLevel(level).
			Int("status", statusCode).
			Dur("latency", latency).
			Str("method", method).
			Str("path", path).
			Str("client_ip", clientIP)

		if p, ok := GetPrincipal(c); ok {
			event = event.Str("user_id", p.UserID)
		}

		if len(c.Errors) > 0 {
			event = event.Str("error", c.Errors.String())
		}

		event.Msg("HTTP request")
	}
}
