// Package router 管理路由配置，只负责将路径和处理器绑定到 gin 引擎.
// 处理器由 pkg/internal/handle 提供，并由 app 层组装后注入.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/eduaccess/pkg/internal/handle"
	"github.com/yeisme/eduaccess/pkg/rule"
)

// RegisterMaterialRoutes 注册资料相关路由：
//
//	POST   /materials          -> UploadMaterial
//	POST   /materials/process  -> ProcessMaterial
//	GET    /materials/:id      -> GetMaterial
//	GET    /materials/:id/url  -> MaterialURL
func RegisterMaterialRoutes(r gin.IRouter, h *handle.Handlers) {
	// gin 的 validator 会按首次解析时的 tag 缓存结构体，必须先于任何绑定切到 rule.
	rule.Engine()

	materials := r.Group("/materials")
	{
		if h == nil || h.Materials == nil {
			materials.Any("/*any", handle.DefaultHandler)
			return
		}

		materials.POST("", h.UploadMaterial)
		materials.POST("/process", h.ProcessMaterial)
		materials.GET("/:id", h.GetMaterial)
		materials.GET("/:id/url", h.MaterialURL)
	}
}
