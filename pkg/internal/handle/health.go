package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/eduaccess/pkg/configs"
	ctxPkg "github.com/yeisme/eduaccess/pkg/context"
	"github.com/yeisme/eduaccess/pkg/internal/types"
)

const timeout = 2 * time.Second

// Health 存活检查.
//
//	@Summary	存活检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Router		/api/v1/health [get]
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthResponse{Status: "ok", Version: configs.AppVersion})
}

// HealthDB 数据库健康检查.
//
//	@Summary	数据库健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Failure	503	{object}	types.HealthResponse
//	@Router		/api/v1/health/db [get]
func HealthDB(c *gin.Context) {
	dbc := ctxPkg.GetDBClient(c.Request.Context())
	if dbc == nil || dbc.DB == nil {
		unhealthy(c, "db", "db client not initialized")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	if err := dbc.HealthCheck(ctx); err != nil {
		unhealthy(c, "db", err.Error())
		return
	}

	c.JSON(http.StatusOK, types.HealthResponse{Component: "db", Status: "ok"})
}

// HealthBlob 对象存储健康检查.
//
//	@Summary	对象存储健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Failure	503	{object}	types.HealthResponse
//	@Router		/api/v1/health/blob [get]
func HealthBlob(c *gin.Context) {
	store := ctxPkg.GetBlobStore(c.Request.Context())
	if store == nil {
		unhealthy(c, "blob", "blob store not initialized")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	if err := store.HealthCheck(ctx); err != nil {
		unhealthy(c, "blob", err.Error())
		return
	}

	c.JSON(http.StatusOK, types.HealthResponse{Component: "blob", Status: "ok"})
}

// HealthMQ 消息队列健康检查.
//
//	@Summary	消息队列健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Failure	503	{object}	types.HealthResponse
//	@Router		/api/v1/health/mq [get]
func HealthMQ(c *gin.Context) {
	if ctxPkg.GetMQClient(c.Request.Context()) == nil { // publisher 与 subscriber 初始化在 New 中, 判空即可
		unhealthy(c, "mq", "mq client not initialized")
		return
	}

	c.JSON(http.StatusOK, types.HealthResponse{Component: "mq", Status: "ok"})
}

func unhealthy(c *gin.Context, component, msg string) {
	c.JSON(http.StatusServiceUnavailable, types.HealthResponse{Component: component, Status: "unhealthy", Error: msg})
}
