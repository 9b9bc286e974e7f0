package handler

import (
	ledgerapp "github.com/fleetrent/backend/internal/application/ledger"
	"github.com/fleetrent/backend/internal/domain/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles payment-related API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *ledgerapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *ledgerapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// RecordPaymentRequest represents a request to record a payment
// @Description Request body for recording a payment. The caller-supplied
// @Description payment_id is the idempotency key: resending the same ID
// @Description returns the stored outcome instead of allocating twice.
type RecordPaymentRequest struct {
	PaymentID  string  `json:"payment_id" binding:"required,uuid" example:"0d6f1c3a-9b2e-4f7d-a1c5-6e8b0d2f4a9c"`
	ContractID string  `json:"contract_id" binding:"required,uuid" example:"b7a1f0b2-3c4d-4e5f-8a9b-0c1d2e3f4a5b"`
	Amount     float64 `json:"amount" binding:"required,gt=0" example:"500.00"`
	Method     string  `json:"method" binding:"required" example:"BANK_TRANSFER"`
	Purpose    string  `json:"purpose" binding:"omitempty,oneof=GENERAL INITIAL_FEE" example:"GENERAL"`
	Reference  string  `json:"reference" binding:"max=200" example:"SEPA-20260301-042"`
	ReceivedAt *string `json:"received_at" example:"2026-03-01T10:30:00Z"`
}

// ListPaymentsQuery represents payment list query parameters
type ListPaymentsQuery struct {
	ContractID string `form:"contract_id" binding:"omitempty,uuid"`
	Status     string `form:"status"`
	Method     string `form:"method"`
	FromDate   string `form:"from_date"`
	ToDate     string `form:"to_date"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size" binding:"omitempty,max=100"`
	OrderBy    string `form:"order_by"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// Record godoc
// @ID           recordPayment
// @Summary      Record a payment
// @Description  Record a payment and allocate it to the contract's open charges, oldest due date first
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body RecordPaymentRequest true "Payment record request"
// @Success      201 {object} APIResponse[ledgerapp.PaymentResult]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	paymentID, err := uuid.Parse(req.PaymentID)
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}
	contractID, err := uuid.Parse(req.ContractID)
	if err != nil {
		h.BadRequest(c, "Invalid contract ID format")
		return
	}

	appReq := ledgerapp.RecordPaymentRequest{
		PaymentID:  paymentID,
		ContractID: contractID,
		Amount:     toDecimal(req.Amount),
		Method:     req.Method,
		Purpose:    req.Purpose,
		Reference:  req.Reference,
	}

	if req.ReceivedAt != nil {
		received, err := parseTimestamp(*req.ReceivedAt)
		if err != nil {
			h.BadRequest(c, "Invalid received_at, expected RFC 3339 timestamp")
			return
		}
		appReq.ReceivedAt = &received
	}

	result, err := h.paymentService.RecordPayment(c.Request.Context(), tenantID, appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	// A replayed payment ID returns the original outcome with 200
	if result.AlreadyProcessed {
		h.Success(c, result)
		return
	}

	h.Created(c, result)
}

// GetByID godoc
// @ID           getPaymentById
// @Summary      Get payment by ID
// @Description  Retrieve a payment with its allocation breakdown
// @Tags         payments
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} APIResponse[ledgerapp.PaymentResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /payments/{id} [get]
func (h *PaymentHandler) GetByID(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	paymentID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), tenantID, paymentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, payment)
}

// List godoc
// @ID           listPayments
// @Summary      List payments
// @Description  Retrieve a paginated list of payments with optional filtering
// @Tags         payments
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        contract_id query string false "Contract ID" format(uuid)
// @Param        status query string false "Payment status" Enums(ALLOCATED, PARTIALLY_ALLOCATED, UNALLOCATED)
// @Param        method query string false "Payment method" Enums(bank_transfer, card, cash, direct_debit, other)
// @Param        from_date query string false "Received date range start (YYYY-MM-DD)"
// @Param        to_date query string false "Received date range end (YYYY-MM-DD)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]ledgerapp.PaymentResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var query ListPaymentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := query.toFilter()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payments, total, err := h.paymentService.ListPayments(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, payments, total, filter.Page, filter.PageSize)
}

func (q ListPaymentsQuery) toFilter() (ledger.PaymentFilter, error) {
	filter := ledger.PaymentFilter{}
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
		status := ledger.PaymentStatus(q.Status)
		filter.Status = &status
	}
	if q.Method != "" {
		method := ledger.PaymentMethod(q.Method)
		filter.Method = &method
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
