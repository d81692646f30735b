// Package handle 提供 HTTP 请求处理器的实现.
package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/eduaccess/pkg/internal/model"
	"github.com/yeisme/eduaccess/pkg/internal/service"
	"github.com/yeisme/eduaccess/pkg/internal/types"
	"github.com/yeisme/eduaccess/pkg/middleware"
	"github.com/yeisme/eduaccess/pkg/rule"
)

// MaterialAPI 资料相关业务，*service.MaterialService 实现该接口.
type MaterialAPI interface {
	Upload(ctx context.Context, in service.UploadInput) (*model.Material, error)
	Get(ctx context.Context, id string) (*model.Material, error)
	Enqueue(ctx context.Context, id, requestedBy string) error
	DownloadURL(ctx context.Context, id, kind string) (string, error)
	PresignExpiry() time.Duration
}

// RegistryAPI 对账任务，*service.RegistryService 实现该接口.
type RegistryAPI interface {
	FullSync(ctx context.Context) service.FullSyncResult
}

// StatsAPI 管理端统计，*service.StatsService 实现该接口.
type StatsAPI interface {
	Get(ctx context.Context) (service.Stats, error)
	Invalidate(ctx context.Context) error
}

// Handlers 聚合全部业务处理器依赖，由 app 层组装后注入 router.
type Handlers struct {
	Materials MaterialAPI
	Registry  RegistryAPI
	Stats     StatsAPI
	// MaxUploadSize 上传文件大小上限（字节）.
	MaxUploadSize int64
}

// DefaultHandler 未实现的占位处理器.
func DefaultHandler(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"message": "Not Implemented"})
}

// requester 当前请求方 id，未认证时为空.
func requester(c *gin.Context) string {
	if p, ok := middleware.GetPrincipal(c); ok {
		return p.UserID
	}

	return ""
}

// bindJSON 解析并校验请求体，失败时已写出 400.
func bindJSON(c *gin.Context, req any) bool {
	rule.Engine()

	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid request body", Details: rule.Errors(err)})
		return false
	}

	if err := rule.ValidateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid request body", Details: rule.Errors(err)})
		return false
	}

	return true
}
