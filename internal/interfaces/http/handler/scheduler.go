package handler

import (
	"net/http"

	"github.com/fleetrent/backend/internal/infrastructure/scheduler"
	"github.com/fleetrent/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SchedulerHandler handles reminder scheduler API endpoints
type SchedulerHandler struct {
	BaseHandler
	cronScheduler *scheduler.ReminderCronScheduler
}

// NewSchedulerHandler creates a new SchedulerHandler
func NewSchedulerHandler(cronScheduler *scheduler.ReminderCronScheduler) *SchedulerHandler {
	return &SchedulerHandler{
		cronScheduler: cronScheduler,
	}
}

// Status godoc
// @ID           getSchedulerStatus
// @Summary      Get scheduler status
// @Description  Report whether the daily reminder scheduler is running and when it last ran
// @Tags         scheduler
// @Produce      json
// @Success      200 {object} APIResponse[SchedulerStatusData]
// @Failure      500 {object} dto.ErrorResponse
// @Router       /scheduler/status [get]
func (h *SchedulerHandler) Status(c *gin.Context) {
	h.Success(c, h.cronScheduler.GetStatus())
}

// Trigger godoc
// @ID           triggerScheduler
// @Summary      Trigger the daily reminder pass
// @Description  Start an out-of-schedule reminder pass for all tenants. Returns immediately, the pass runs in the background.
// @Tags         scheduler
// @Produce      json
// @Success      202 {object} APIResponse[SchedulerStatusData]
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /scheduler/trigger [post]
func (h *SchedulerHandler) Trigger(c *gin.Context) {
	if err := h.cronScheduler.TriggerManualRun(c.Request.Context()); err != nil {
		h.Conflict(c, err.Error())
		return
	}

	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(h.cronScheduler.GetStatus()))
}
