// Package api 汇总对外暴露的 HTTP 路由.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/internal/handle"
	"github.com/yeisme/eduaccess/pkg/internal/router"
)

// RegisterGroup 注册健康检查、资料、管理端、调度器与 swagger 路由到传入的 gin 引擎.
// adminOnly 作用于对账、统计与调度器接口.
func RegisterGroup(e *gin.Engine, h *handle.Handlers, adminOnly gin.HandlerFunc, server configs.ServerConfig) *gin.Engine {
	router.RegisterHealthCheckRoute(e.Group("/api/v1"))
	router.RegisterMaterialRoutes(e, h)
	router.RegisterAdminRoutes(e, h, adminOnly)
	router.RegisterSchedulerRoutes(e, adminOnly)
	router.RegisterSwaggerRoute(e, server)

	return e
}
