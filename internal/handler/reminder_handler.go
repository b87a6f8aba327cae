package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-presensi-api/internal/dto"
	"github.com/noah-isme/sma-presensi-api/internal/models"
	"github.com/noah-isme/sma-presensi-api/internal/service"
	appErrors "github.com/noah-isme/sma-presensi-api/pkg/errors"
	"github.com/noah-isme/sma-presensi-api/pkg/response"
)

type reminderLogService interface {
	List(ctx context.Context, filter models.ReminderFilter) ([]models.ReminderRecord, *models.Pagination, error)
}

// scanTrigger is the scheduler's single-flight entry point. The handler
// never reaches the scan loop directly so a manual run cannot race a tick.
type scanTrigger interface {
	RunNow(ctx context.Context) (service.TickStats, error)
}

type schedulerStatus interface {
	Status() service.SchedulerStatus
}

// ReminderHandler exposes the reminder log and scheduler controls.
type ReminderHandler struct {
	logs      reminderLogService
	trigger   scanTrigger
	scheduler schedulerStatus
	clock     service.Clock
}

// NewReminderHandler builds a new handler.
func NewReminderHandler(logs reminderLogService, trigger scanTrigger, scheduler schedulerStatus, clock service.Clock) *ReminderHandler {
	if clock == nil {
		clock = service.SystemClock{}
	}
	return &ReminderHandler{logs: logs, trigger: trigger, scheduler: scheduler, clock: clock}
}

// List godoc
// @Summary List reminder dispatch records
// @Tags Reminders
// @Produce json
// @Param studentId query string false "Student ID filter"
// @Param sessionId query string false "Session ID filter"
// @Param outcome query string false "Outcome filter (success|failed)"
// @Success 200 {object} response.Envelope
// @Router /reminders [get]
func (h *ReminderHandler) List(c *gin.Context) {
	var query dto.ReminderListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reminder query"))
		return
	}
	records, pagination, err := h.logs.List(c.Request.Context(), query.Filter())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Run godoc
// @Summary Trigger one reminder scan immediately
// @Tags Reminders
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reminders/run [post]
func (h *ReminderHandler) Run(c *gin.Context) {
	now := h.clock.Now()
	stats, err := h.trigger.RunNow(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	var meta map[string]interface{}
	if claims := claimsFromContext(c); claims != nil {
		meta = map[string]interface{}{"triggered_by": claims.UserID}
	}
	response.JSON(c, http.StatusOK, dto.RunResponse{
		RanAt: now,
		Stats: dto.RunStats{
			SessionsFound:   stats.SessionsFound,
			SessionsSkipped: stats.SessionsSkipped,
			Sent:            stats.Sent,
			Failed:          stats.Failed,
			Suppressed:      stats.Suppressed,
		},
	}, nil, meta)
}

// SchedulerStatus godoc
// @Summary Scheduler state snapshot
// @Tags Reminders
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reminders/scheduler [get]
func (h *ReminderHandler) SchedulerStatus(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.scheduler.Status(), nil)
}
