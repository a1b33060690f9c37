package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "vestra/internal/errors"
	"vestra/internal/models"
	"vestra/internal/pagination"
	"vestra/internal/services"
)

// AdminHandler exposes the operator surface: reporting, catch-up runs,
// integrity tooling, balance adjustments and payout control.
type AdminHandler struct {
	admin   services.AdminServicer
	accrual services.AccrualServicer
	ledger  services.LedgerServicer
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(admin services.AdminServicer, accrual services.AccrualServicer, ledger services.LedgerServicer) *AdminHandler {
	return &AdminHandler{admin: admin, accrual: accrual, ledger: ledger}
}

// AdminListRequest is the query string for the admin listing endpoints
type AdminListRequest struct {
	pagination.PageRequest
	Search string `form:"search" binding:"omitempty,max=255"`
}

// AdjustBalanceRequest is the manual balance adjustment payload. A negative
// amount debits the spending account.
type AdjustBalanceRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Reason string          `json:"reason" binding:"required,max=500"`
	Actor  string          `json:"actor" binding:"required,max=255"`
}

// WithdrawalStatusRequest is the manual status transition payload
type WithdrawalStatusRequest struct {
	Status        string `json:"status" binding:"required,withdraw_status"`
	FailureReason string `json:"failure_reason" binding:"max=500"`
}

// ListInvestors returns a paginated investor listing with optional email search
func (h *AdminHandler) ListInvestors(c *gin.Context) {
	var req AdminListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	page, err := h.admin.ListInvestors(req.Search, req.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// PaymentsSummary returns per-investor payment progress
func (h *AdminHandler) PaymentsSummary(c *gin.Context) {
	var req AdminListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	page, err := h.admin.PaymentsSummary(req.Search, req.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// MissedPayments returns every investor currently behind on installments
func (h *AdminHandler) MissedPayments(c *gin.Context) {
	entries, err := h.admin.MissedPaymentsSummary()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"missed_payments": entries})
}

// CatchUp repays an investor's missed installments in one run
func (h *AdminHandler) CatchUp(c *gin.Context) {
	result, err := h.accrual.AdminCatchUpMissedPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CheckIntegrity reports schedule and payment drift across all investors
func (h *AdminHandler) CheckIntegrity(c *gin.Context) {
	issues, err := h.accrual.CheckIntegrity()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": issues, "count": len(issues)})
}

// FixIntegrity repairs one investor's schedule and counters
func (h *AdminHandler) FixIntegrity(c *gin.Context) {
	result, err := h.accrual.FixIntegrity(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AdjustBalance applies a manual credit or debit to a spending account
func (h *AdminHandler) AdjustBalance(c *gin.Context) {
	var req AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	tx, err := h.ledger.ManualBalanceAdjustment(c.Param("id"), req.Amount, req.Reason, req.Actor)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// ProcessPayout pushes a pending withdrawal through the payout gateway
func (h *AdminHandler) ProcessPayout(c *gin.Context) {
	tx, err := h.ledger.ProcessPayout(c.Request.Context(), c.Param("reference"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// UpdateWithdrawalStatus applies a manual withdrawal state transition
func (h *AdminHandler) UpdateWithdrawalStatus(c *gin.Context) {
	var req WithdrawalStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	tx, err := h.ledger.UpdateWithdrawalStatus(c.Param("reference"),
		models.WithdrawStatus(req.Status), req.FailureReason)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}
