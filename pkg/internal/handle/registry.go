package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/eduaccess/pkg/log"
)

// SyncRegistry 同步执行完整对账，子任务失败记录在各自结果中，不影响其余子任务.
// 对账结束后丢弃缓存的统计.
//
//	@Summary		触发对账
//	@Description	依次执行 用户资料补全、存储文件核对、卡住任务清理
//	@Tags			管理
//	@Produce		json
//	@Success		200	{object}	service.FullSyncResult
//	@Failure		401	{object}	types.ErrorResponse
//	@Failure		403	{object}	types.ErrorResponse
//	@Router			/registry/sync [post]
func (h *Handlers) SyncRegistry(c *gin.Context) {
	ctx := c.Request.Context()
	res := h.Registry.FullSync(ctx)

	if n := res.Errors(); n > 0 {
		log.Logger().Warn().Int("failed_scans", n).Str("requested_by", requester(c)).Msg("registry sync finished with errors")
	}

	if h.Stats != nil {
		if err := h.Stats.Invalidate(ctx); err != nil {
			log.Logger().Warn().Err(err).Msg("invalidate stats cache failed")
		}
	}

	c.JSON(http.StatusOK, res)
}
