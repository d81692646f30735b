package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/eduaccess/pkg/internal/types"
	"github.com/yeisme/eduaccess/pkg/middleware"
	"github.com/yeisme/eduaccess/pkg/scheduler"
)

// SchedulerJobs 返回所有定时任务及最近运行状态.
//
//	@Summary	定时任务列表
//	@Tags		管理
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Failure	503	{object}	types.ErrorResponse
//	@Router		/scheduler/jobs [get]
func SchedulerJobs(c *gin.Context) {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{Error: "scheduler not running"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": sched.GetJobInfos(), "waiting": sched.JobsWaitingInQueue()})
}

// RunSchedulerJob 立即触发一次定时任务.
//
//	@Summary	立即运行定时任务
//	@Tags		管理
//	@Produce	json
//	@Param		name	path		string	true	"任务名称"
//	@Success	202		{object}	map[string]string
//	@Failure	404		{object}	types.ErrorResponse
//	@Failure	503		{object}	types.ErrorResponse
//	@Router		/scheduler/jobs/{name}/run [post]
func RunSchedulerJob(c *gin.Context) {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{Error: "scheduler not running"})
		return
	}

	name := c.Param("name")

	if err := sched.RunNow(name); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, types.ErrorResponse{Error: err.Error()})
			return
		}

		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: err.Error()})

		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job": name, "status": "triggered"})
}
