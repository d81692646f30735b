package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/eduaccess/pkg/internal/handle"
)

// RegisterHealthCheckRoute 注册健康检查路由.
func RegisterHealthCheckRoute(g *gin.RouterGroup) {
	healthRoutes := g.Group("/health")
	{
		healthRoutes.GET("", handle.Health)
		healthRoutes.GET("/db", handle.HealthDB)
		healthRoutes.GET("/blob", handle.HealthBlob)
		healthRoutes.GET("/mq", handle.HealthMQ)
	}
}
