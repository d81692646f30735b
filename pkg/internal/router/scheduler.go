package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/eduaccess/pkg/internal/handle"
)

// RegisterSchedulerRoutes 注册调度器相关路由.
func RegisterSchedulerRoutes(g gin.IRouter, guard gin.HandlerFunc) {
	jobs := g.Group("/scheduler/jobs", guard)
	jobs.GET("", handle.SchedulerJobs)
	jobs.POST("/:name/run", handle.RunSchedulerJob)
}
