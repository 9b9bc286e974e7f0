package handler

import (
	ledgerapp "github.com/fleetrent/backend/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// ContractHandler handles contract balance and ledger API endpoints
type ContractHandler struct {
	BaseHandler
	balanceService *ledgerapp.BalanceService
}

// NewContractHandler creates a new ContractHandler
func NewContractHandler(balanceService *ledgerapp.BalanceService) *ContractHandler {
	return &ContractHandler{
		balanceService: balanceService,
	}
}

// GetBalance godoc
// @ID           getContractBalance
// @Summary      Get contract balance
// @Description  Compute the contract's current balance and classify it as SETTLED, IN_DEBT or IN_CREDIT
// @Tags         contracts
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Contract ID" format(uuid)
// @Success      200 {object} APIResponse[ledgerapp.BalanceResult]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /contracts/{id}/balance [get]
func (h *ContractHandler) GetBalance(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	contractID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid contract ID format")
		return
	}

	balance, err := h.balanceService.GetBalance(c.Request.Context(), tenantID, contractID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, balance)
}

// ListBalances godoc
// @ID           listContractBalances
// @Summary      List contract balances
// @Description  Compute balances for every contract that has ledger activity
// @Tags         contracts
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Success      200 {object} APIResponse[[]ledgerapp.BalanceResult]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /contracts/balances [get]
func (h *ContractHandler) ListBalances(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	balances, err := h.balanceService.ListBalances(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, balances)
}

// GetLedger godoc
// @ID           getContractLedger
// @Summary      Get contract ledger
// @Description  Retrieve the contract's chronological ledger of charges and payments with the running balance
// @Tags         contracts
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Contract ID" format(uuid)
// @Success      200 {object} APIResponse[ledgerapp.LedgerView]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /contracts/{id}/ledger [get]
func (h *ContractHandler) GetLedger(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	contractID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid contract ID format")
		return
	}

	ledgerView, err := h.balanceService.GetLedger(c.Request.Context(), tenantID, contractID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, ledgerView)
}
