package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/yeisme/eduaccess/docs"
	"github.com/yeisme/eduaccess/pkg/configs"
)

// RegisterSwaggerRoute 注册Swagger文档路由，仅 debug 模式开启.
func RegisterSwaggerRoute(r *gin.Engine, cfg configs.ServerConfig) {
	if !cfg.Debug {
		return
	}

	docs.SwaggerInfo.Host = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	docs.SwaggerInfo.Version = configs.AppVersion

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
