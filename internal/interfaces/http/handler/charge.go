package handler

import (
	ledgerapp "github.com/fleetrent/backend/internal/application/ledger"
	"github.com/fleetrent/backend/internal/domain/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChargeHandler handles charge-related API endpoints
type ChargeHandler struct {
	BaseHandler
	chargeService *ledgerapp.ChargeService
}

// NewChargeHandler creates a new ChargeHandler
func NewChargeHandler(chargeService *ledgerapp.ChargeService) *ChargeHandler {
	return &ChargeHandler{
		chargeService: chargeService,
	}
}

// CreateChargeRequest represents a request to create a charge
// @Description Request body for creating a charge on a contract ledger
type CreateChargeRequest struct {
	ContractID  string  `json:"contract_id" binding:"required,uuid" example:"b7a1f0b2-3c4d-4e5f-8a9b-0c1d2e3f4a5b"`
	Category    string  `json:"category" binding:"required" example:"rent"`
	Description string  `json:"description" binding:"max=500" example:"March rent"`
	Amount      float64 `json:"amount" binding:"required,gt=0" example:"899.00"`
	DueDate     *string `json:"due_date" example:"2026-03-05"`
	EntryDate   *string `json:"entry_date" example:"2026-03-01"`
}

// CancelChargeRequest represents a request to cancel a charge
// @Description Request body for cancelling a charge
type CancelChargeRequest struct {
	Reason string `json:"reason" binding:"max=500" example:"duplicate entry"`
}

// ListChargesQuery represents charge list query parameters
type ListChargesQuery struct {
	ContractID string `form:"contract_id" binding:"omitempty,uuid"`
	Status     string `form:"status"`
	Category   string `form:"category"`
	DueFrom    string `form:"due_from"`
	DueTo      string `form:"due_to"`
	Overdue    *bool  `form:"overdue"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size" binding:"omitempty,max=100"`
	OrderBy    string `form:"order_by"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// Create godoc
// @ID           createCharge
// @Summary      Create a charge
// @Description  Post a new charge on a contract's ledger
// @Tags         charges
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body CreateChargeRequest true "Charge creation request"
// @Success      201 {object} APIResponse[ledgerapp.ChargeResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /charges [post]
func (h *ChargeHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req CreateChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	contractID, err := uuid.Parse(req.ContractID)
	if err != nil {
		h.BadRequest(c, "Invalid contract ID format")
		return
	}

	appReq := ledgerapp.CreateChargeRequest{
		ContractID:  contractID,
		Category:    req.Category,
		Description: req.Description,
		Amount:      toDecimal(req.Amount),
	}

	if req.DueDate != nil {
		due, err := parseDate(*req.DueDate)
		if err != nil {
			h.BadRequest(c, "Invalid due date, expected YYYY-MM-DD")
			return
		}
		appReq.DueDate = &due
	}
	if req.EntryDate != nil {
		entry, err := parseDate(*req.EntryDate)
		if err != nil {
			h.BadRequest(c, "Invalid entry date, expected YYYY-MM-DD")
			return
		}
		appReq.EntryDate = &entry
	}

	charge, err := h.chargeService.CreateCharge(c.Request.Context(), tenantID, appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, charge)
}

// GetByID godoc
// @ID           getChargeById
// @Summary      Get charge by ID
// @Description  Retrieve a single charge with its allocation history
// @Tags         charges
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Charge ID" format(uuid)
// @Success      200 {object} APIResponse[ledgerapp.ChargeResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /charges/{id} [get]
func (h *ChargeHandler) GetByID(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	chargeID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid charge ID format")
		return
	}

	charge, err := h.chargeService.GetCharge(c.Request.Context(), tenantID, chargeID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, charge)
}

// List godoc
// @ID           listCharges
// @Summary      List charges
// @Description  Retrieve a paginated list of charges with optional filtering
// @Tags         charges
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        contract_id query string false "Contract ID" format(uuid)
// @Param        status query string false "Charge status" Enums(OPEN, PARTIALLY_PAID, PAID, CANCELLED)
// @Param        category query string false "Charge category" Enums(rent, initial_fee, penalty, damage, other)
// @Param        due_from query string false "Due date range start (YYYY-MM-DD)"
// @Param        due_to query string false "Due date range end (YYYY-MM-DD)"
// @Param        overdue query bool false "Only overdue charges"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Order by field" default(due_date)
// @Param        order_dir query string false "Order direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]ledgerapp.ChargeResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /charges [get]
func (h *ChargeHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var query ListChargesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := query.toFilter()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	charges, total, err := h.chargeService.ListCharges(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, charges, total, filter.Page, filter.PageSize)
}

// Cancel godoc
// @ID           cancelCharge
// @Summary      Cancel a charge
// @Description  Cancel an open charge so it no longer counts toward the contract balance
// @Tags         charges
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Charge ID" format(uuid)
// @Param        request body CancelChargeRequest false "Cancellation reason"
// @Success      200 {object} APIResponse[ledgerapp.ChargeResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /charges/{id}/cancel [post]
func (h *ChargeHandler) Cancel(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	chargeID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid charge ID format")
		return
	}

	var req CancelChargeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	charge, err := h.chargeService.CancelCharge(c.Request.Context(), tenantID, chargeID, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, charge)
}

func (q ListChargesQuery) toFilter() (ledger.ChargeFilter, error) {
	filter := ledger.ChargeFilter{}
	filter.Page = q.Page
	filter.PageSize = q.PageSize
	filter.OrderBy = q.OrderBy
	filter.OrderDir = q.OrderDir
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
	if q.Status != "" {
		status := ledger.ChargeStatus(q.Status)
		filter.Status = &status
	}
	if q.Category != "" {
		category := ledger.ChargeCategory(q.Category)
		filter.Category = &category
	}
	if q.DueFrom != "" {
		from, err := parseDate(q.DueFrom)
		if err != nil {
			return filter, err
		}
		filter.DueFrom = &from
	}
	if q.DueTo != "" {
		to, err := parseDate(q.DueTo)
		if err != nil {
			return filter, err
		}
		filter.DueTo = &to
	}
	filter.Overdue = q.Overdue
	return filter, nil
}
