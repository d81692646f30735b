package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/eduaccess/pkg/configs"
)

// CORSMiddleware CORS中间件，前端直接携带 Bearer Token 调用.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AddAllowHeaders(headerAuthorization, headerDevUser)

	config.AllowFiles = true

	if cfg.Debug {
		config.AllowWebSockets = true
	}

	return cors.New(config)
}
