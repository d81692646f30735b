package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/eduaccess/pkg/internal/types"
	"github.com/yeisme/eduaccess/pkg/log"
)

// AdminStats 管理端仪表盘统计.
//
//	@Summary	管理端统计
//	@Tags		管理
//	@Produce	json
//	@Success	200	{object}	service.Stats
//	@Failure	401	{object}	types.ErrorResponse
//	@Failure	403	{object}	types.ErrorResponse
//	@Failure	500	{object}	types.ErrorResponse
//	@Router		/admin/stats [get]
func (h *Handlers) AdminStats(c *gin.Context) {
	stats, err := h.Stats.Get(c.Request.Context())
	if err != nil {
		log.Logger().Error().Err(err).Msg("admin stats failed")
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: err.Error()})

		return
	}

	c.JSON(http.StatusOK, stats)
}
