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

// InvestorHandler handles the authenticated investor surface: dashboard,
// transaction history, withdrawals and the investment lifecycle.
type InvestorHandler struct {
	investors services.InvestorServicer
	accrual   services.AccrualServicer
	ledger    services.LedgerServicer
	accounts  services.SpendingAccountServicer
}

// NewInvestorHandler creates a new InvestorHandler
func NewInvestorHandler(investors services.InvestorServicer, accrual services.AccrualServicer, ledger services.LedgerServicer, accounts services.SpendingAccountServicer) *InvestorHandler {
	return &InvestorHandler{
		investors: investors,
		accrual:   accrual,
		ledger:    ledger,
		accounts:  accounts,
	}
}

// ActivatePlanRequest represents the plan activation payload
type ActivatePlanRequest struct {
	PortfolioType  string          `json:"portfolio_type" binding:"required,portfolio_type"`
	InvestmentType string          `json:"investment_type" binding:"required,investment_type"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
}

// WithdrawRequest represents the withdrawal request payload
type WithdrawRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// BankDetailsRequest represents the payout destination payload
type BankDetailsRequest struct {
	BankName      string `json:"bank_name" binding:"required,max=128"`
	AccountName   string `json:"account_name" binding:"max=128"`
	AccountNumber string `json:"account_number" binding:"required,max=32"`
}

// TransactionHistoryRequest is the query string for GET /transactions
type TransactionHistoryRequest struct {
	pagination.PageRequest
	Type string `form:"type" binding:"omitempty,ledger_type"`
}

// Dashboard returns the investor's profile, schedule and balances in one
// response. The schedule is normalized on read so the app never renders a
// stale due date.
func (h *InvestorHandler) Dashboard(c *gin.Context) {
	investorID, err := getInvestorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	investor, err := h.accrual.EnsureScheduleCurrent(investorID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.accrual.CalculateCurrentInterest(investorID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	missed, err := h.accrual.CalculateMissedPayments(investorID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	balance, err := h.accounts.Balance(investorID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"investor": gin.H{
			"id":                     investor.ID,
			"email":                  investor.Email,
			"first_name":             investor.FirstName,
			"surname":                investor.Surname,
			"account_number":         investor.AccountNumber,
			"portfolio_type":         investor.PortfolioType,
			"investment_type":        investor.InvestmentType,
			"initial_investment":     investor.InitialInvestment,
			"total_investment":       investor.TotalInvestment,
			"total_paid":             investor.TotalPaid,
			"payment_counter":        investor.PaymentCounter,
			"current_week":           investor.CurrentWeek,
			"investment_start_date":  investor.InvestmentStartDate,
			"investment_expiry_date": investor.InvestmentExpiryDate,
			"last_due_date":          investor.LastDueDate,
			"next_due_date":          investor.NextDueDate,
			"investment_ended":       investor.InvestmentEnded,
		},
		"weekly_interest":  summary.WeeklyInterest,
		"weeks_elapsed":    summary.WeeksElapsed,
		"missed_payments":  missed.Missed,
		"spending_balance": balance,
	})
}

// Transactions returns the investor's paginated transaction history
func (h *InvestorHandler) Transactions(c *gin.Context) {
	investorID, err := getInvestorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransactionHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var txType *models.TransactionType
	if req.Type != "" {
		t := models.TransactionType(req.Type)
		txType = &t
	}

	page, err := h.ledger.GetTransactionHistory(investorID, txType, req.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Withdraw requests a withdrawal from the spending account. Funds are
// reserved immediately; the payout itself is driven by an admin.
func (h *InvestorHandler) Withdraw(c *gin.Context) {
	investorID, err := getInvestorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	tx, err := h.ledger.RecordWithdrawalRequest(investorID, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

// ActivatePlan starts an investment plan for the investor
func (h *InvestorHandler) ActivatePlan(c *gin.Context) {
	investorID, err := getInvestorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ActivatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	investor, err := h.investors.ActivatePlan(investorID, req.PortfolioType, req.InvestmentType, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"investor": investorJSON(investor)})
}

// EndInvestment ends the active plan, forfeiting part of the principal
func (h *InvestorHandler) EndInvestment(c *gin.Context) {
	investorID, err := getInvestorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	tx, err := h.ledger.EndInvestment(investorID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// RenewInvestment resets the investor for a new cycle after a service fee
func (h *InvestorHandler) RenewInvestment(c *gin.Context) {
	investorID, err := getInvestorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	tx, err := h.ledger.RenewInvestment(investorID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// DeleteTransaction soft-deletes one of the investor's own transactions
func (h *InvestorHandler) DeleteTransaction(c *gin.Context) {
	investorID, err := getInvestorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.ledger.DeleteTransaction(c.Param("reference"), investorID); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// UpdateBankDetails stores the payout destination used by ProcessPayout
func (h *InvestorHandler) UpdateBankDetails(c *gin.Context) {
	investorID, err := getInvestorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BankDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	investor, err := h.investors.UpdateBankDetails(investorID, req.BankName, req.AccountName, req.AccountNumber)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bank_name":           investor.BankName,
		"bank_account_name":   investor.BankAccountName,
		"bank_account_number": investor.BankAccountNumber,
	})
}
