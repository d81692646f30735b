package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/eduaccess/pkg/internal/handle"
)

// RegisterAdminRoutes 注册管理端路由，guard 通常为 middleware.RequireAdmin.
func RegisterAdminRoutes(r gin.IRouter, h *handle.Handlers, guard gin.HandlerFunc) {
	registry := r.Group("/registry", guard)
	registry.POST("/sync", h.SyncRegistry)

	admin := r.Group("/admin", guard)
	admin.GET("/stats", h.AdminStats)
}
