package handler

import (
	"time"

	reminderapp "github.com/fleetrent/backend/internal/application/reminder"
	"github.com/fleetrent/backend/internal/domain/reminder"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReminderHandler handles reminder event API endpoints
type ReminderHandler struct {
	BaseHandler
	reminderService *reminderapp.Service
}

// NewReminderHandler creates a new ReminderHandler
func NewReminderHandler(reminderService *reminderapp.Service) *ReminderHandler {
	return &ReminderHandler{
		reminderService: reminderService,
	}
}

// ListRemindersQuery represents reminder event list query parameters
type ListRemindersQuery struct {
	ContractID string `form:"contract_id" binding:"omitempty,uuid"`
	ChargeID   string `form:"charge_id" binding:"omitempty,uuid"`
	Tier       string `form:"tier"`
	FromDate   string `form:"from_date"`
	ToDate     string `form:"to_date"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size" binding:"omitempty,max=100"`
}

// PreviewRemindersQuery represents reminder preview query parameters
type PreviewRemindersQuery struct {
	ContractID string `form:"contract_id" binding:"required,uuid"`
	Date       string `form:"date"`
}

// RunRemindersRequest represents a request to trigger a reminder run
// @Description Request body for triggering a reminder run. The date
// @Description defaults to today when omitted.
type RunRemindersRequest struct {
	Date string `json:"date" example:"2026-03-05"`
}

// List godoc
// @ID           listReminders
// @Summary      List reminder events
// @Description  Retrieve a paginated list of emitted reminder events with optional filtering
// @Tags         reminders
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        contract_id query string false "Contract ID" format(uuid)
// @Param        charge_id query string false "Charge ID" format(uuid)
// @Param        tier query string false "Reminder tier" Enums(upcoming, due, overdue_1, overdue_2, overdue_3, overdue_4)
// @Param        from_date query string false "Event date range start (YYYY-MM-DD)"
// @Param        to_date query string false "Event date range end (YYYY-MM-DD)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]reminderapp.EventView]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /reminders [get]
func (h *ReminderHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var query ListRemindersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := query.toFilter()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	events, total, err := h.reminderService.ListEvents(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, events, total, filter.Page, filter.PageSize)
}

// Preview godoc
// @ID           previewReminders
// @Summary      Preview reminders for a contract
// @Description  Classify a contract's open charges for a given day without emitting anything
// @Tags         reminders
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        contract_id query string true "Contract ID" format(uuid)
// @Param        date query string false "Classification date (YYYY-MM-DD), defaults to today"
// @Success      200 {object} APIResponse[[]reminderapp.PreviewEntry]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /reminders/preview [get]
func (h *ReminderHandler) Preview(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var query PreviewRemindersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	contractID, err := uuid.Parse(query.ContractID)
	if err != nil {
		h.BadRequest(c, "Invalid contract ID format")
		return
	}

	day, err := resolveDay(query.Date)
	if err != nil {
		h.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	entries, err := h.reminderService.Preview(c.Request.Context(), tenantID, contractID, day)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, entries)
}

// Run godoc
// @ID           runReminders
// @Summary      Trigger a reminder run
// @Description  Execute one reminder pass for the caller's tenant. Re-running the same day emits nothing new.
// @Tags         reminders
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body RunRemindersRequest false "Run options"
// @Success      200 {object} APIResponse[reminderapp.RunResult]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /reminders/run [post]
func (h *ReminderHandler) Run(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req RunRemindersRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	day, err := resolveDay(req.Date)
	if err != nil {
		h.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	result, err := h.reminderService.Run(c.Request.Context(), tenantID, day)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

func (q ListRemindersQuery) toFilter() (reminder.EventFilter, error) {
	filter := reminder.EventFilter{}
	filter.Page = q.Page
	filter.PageSize = q.PageSize
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	if q.ContractID != "" {
		id, err := uuid.Parse(q.ContractID)
		if err != nil {
			return filter, err
		}
		filter.ContractID = &id
	}
	if q.ChargeID != "" {
		id, err := uuid.Parse(q.ChargeID)
		if err != nil {
			return filter, err
		}
		filter.ChargeID = &id
	}
	if q.Tier != "" {
		tier := reminder.Tier(q.Tier)
		filter.Tier = &tier
	}
	if q.FromDate != "" {
		from, err := parseDate(q.FromDate)
		if err != nil {
			return filter, err
		}
		filter.FromDate = &from
	}
	if q.ToDate != "" {
		to, err := parseDate(q.ToDate)
		if err != nil {
			return filter, err
		}
		filter.ToDate = &to
	}
	return filter, nil
}

// resolveDay parses an optional YYYY-MM-DD date, defaulting to today in UTC.
func resolveDay(value string) (time.Time, error) {
	if value == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return parseDate(value)
}
