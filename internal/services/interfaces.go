package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/shopspring/decimal"

	"vestra/internal/models"
	"vestra/internal/pagination"
)

// NoOpReason explains why an engine operation decided not to act. These are
// expected idle states, not failures.
type NoOpReason string

const (
	NoOpAlreadyPaidToday NoOpReason = "already_paid_today"
	NoOpNotDuePerCounter NoOpReason = "not_due_per_counter"
	NoOpNoInterest       NoOpReason = "no_interest"
)

// InstallmentResult reports the outcome of one installment payment attempt.
type InstallmentResult struct {
	Paid       bool            `json:"paid"`
	Reason     NoOpReason      `json:"reason,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// DueDateCheckStatus classifies the outcome of a due-date check.
type DueDateCheckStatus string

const (
	DueDateStatusPaid       DueDateCheckStatus = "paid"
	DueDateStatusSkipped    DueDateCheckStatus = "skipped"
	DueDateStatusNotDue     DueDateCheckStatus = "not_due_today"
	DueDateStatusNoUpcoming DueDateCheckStatus = "no_upcoming_due_date"
)

// DueDateCheckResult reports what a due-date check did for one investor.
type DueDateCheckResult struct {
	Status      DueDateCheckStatus `json:"status"`
	Installment *InstallmentResult `json:"installment,omitempty"`
}

// InterestSummary describes the current interest position of an investor.
type InterestSummary struct {
	WeeklyInterest decimal.Decimal `json:"weekly_interest"`
	WeeksElapsed   int             `json:"weeks_elapsed"`
	PaymentCounter int             `json:"payment_counter"`
	Balance        decimal.Decimal `json:"total_investment"`
}

// MissedPaymentsResult reports the gap between weeks elapsed and payments
// made. Missed is negative when the investor has been overpaid.
type MissedPaymentsResult struct {
	WeeksElapsed   int  `json:"weeks_elapsed"`
	PaymentCounter int  `json:"payment_counter"`
	Missed         int  `json:"missed_payments"`
	Overpaid       bool `json:"overpaid"`
}

// CatchUpResult reports how many missed installments an admin catch-up paid.
type CatchUpResult struct {
	Missed    int      `json:"missed_payments"`
	Processed int      `json:"processed_count"`
	Errors    []string `json:"errors,omitempty"`
}

// BatchError records a per-investor failure during batch processing.
type BatchError struct {
	InvestorID string `json:"investor_id"`
	Error      string `json:"error"`
}

// BatchResult summarizes one scheduler cycle over all investors.
type BatchResult struct {
	TotalInvestors int          `json:"total_investors"`
	PaidCount      int          `json:"processed_count"`
	Errors         []BatchError `json:"errors,omitempty"`
}

// IntegrityIssue flags one inconsistency found by the integrity audit.
type IntegrityIssue struct {
	InvestorID string `json:"investor_id"`
	Email      string `json:"email"`
	Issue      string `json:"issue"`
	Details    string `json:"details"`
}

// IntegrityFixResult reports what an integrity repair changed.
type IntegrityFixResult struct {
	InvestorID     string          `json:"investor_id"`
	Changes        []string        `json:"changes"`
	OverageDebited decimal.Decimal `json:"overage_debited"`
}

// AccrualServicer is the interest accrual engine: it keeps each investor's
// due-date schedule truthful relative to wall-clock time and pays exactly one
// interest installment per elapsed week, exactly once.
type AccrualServicer interface {
	EnsureScheduleCurrent(investorID string) (*models.Investor, error)
	ProcessDueDateCheck(investorID string) (*DueDateCheckResult, error)
	PayOneInstallment(investorID string) (*InstallmentResult, error)
	CalculateCurrentInterest(investorID string) (*InterestSummary, error)
	CalculateMissedPayments(investorID string) (*MissedPaymentsResult, error)
	AdminCatchUpMissedPayments(ctx context.Context, investorID string) (*CatchUpResult, error)
	BatchProcessAllDueDates(ctx context.Context) (*BatchResult, error)
	CheckIntegrity() ([]IntegrityIssue, error)
	FixIntegrity(investorID string) (*IntegrityFixResult, error)
}

// SpendingAccountServicer manages the withdrawable balance attached to each
// investor. It is the only path through which balances are mutated.
type SpendingAccountServicer interface {
	GetOrCreate(db *gorm.DB, investorID string) (*models.SpendingAccount, error)
	Credit(db *gorm.DB, investorID string, amount decimal.Decimal) (*models.SpendingAccount, error)
	Debit(db *gorm.DB, investorID string, amount decimal.Decimal) (*models.SpendingAccount, error)
	ForceDebit(db *gorm.DB, investorID string, amount decimal.Decimal) (*models.SpendingAccount, error)
	Balance(investorID string) (decimal.Decimal, error)
}

// LedgerServicer records every ledger-affecting event as an immutable
// transaction, drives payouts, and keeps the spending-account balance
// consistent with the withdrawal lifecycle.
type LedgerServicer interface {
	RecordInitialTransaction(investorID string) (*models.Transaction, error)
	RecordWithdrawalRequest(investorID string, amount decimal.Decimal) (*models.Transaction, error)
	ProcessPayout(ctx context.Context, reference string) (*models.Transaction, error)
	UpdateWithdrawalStatus(reference string, status models.WithdrawStatus, failureReason string) (*models.Transaction, error)
	GetAccountBalance(investorID string) (decimal.Decimal, error)
	GetTransactionHistory(investorID string, txType *models.TransactionType, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	EndInvestment(investorID string) (*models.Transaction, error)
	RenewInvestment(investorID string) (*models.Transaction, error)
	RecordPointsRedemption(investorID string, amount decimal.Decimal) (*models.Transaction, error)
	ManualBalanceAdjustment(investorID string, amount decimal.Decimal, reason, actor string) (*models.Transaction, error)
	DeleteTransaction(reference, investorID string) error
}

// InvestorServicer handles investor lifecycle: signup, login verification,
// plan activation and profile maintenance.
type InvestorServicer interface {
	Register(email, password, firstName, surname, phone string) (*models.Investor, error)
	AttemptLogin(email, password string) (*models.Investor, error)
	GetByID(id string) (*models.Investor, error)
	GetByEmail(email string) (*models.Investor, error)
	ActivatePlan(investorID, portfolioType, investmentType string, amount decimal.Decimal) (*models.Investor, error)
	UpdateBankDetails(investorID, bankName, accountName, accountNumber string) (*models.Investor, error)
}

// InvestorSummary is one row of the admin payments report.
type InvestorSummary struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Email             string          `json:"email"`
	InitialInvestment decimal.Decimal `json:"initial_investment"`
	TotalInvestment   decimal.Decimal `json:"total_investment"`
	TotalPaid         decimal.Decimal `json:"total_paid"`
	PaymentCounter    int             `json:"payment_counter"`
	CurrentWeek       int             `json:"current_week"`
	NextDueDate       *time.Time      `json:"next_due_date"`
}

// MissedPaymentEntry is one row of the admin missed-payments report.
type MissedPaymentEntry struct {
	InvestorID      string          `json:"investor_id"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	MissedPayments  int             `json:"missed_payments"`
	WeeksElapsed    int             `json:"weeks_elapsed"`
	PaymentCounter  int             `json:"payment_counter"`
	TotalInvestment decimal.Decimal `json:"total_investment"`
}

// AdminServicer provides the reporting and maintenance surface for
// administrators: listings, summaries and wrappers around engine repairs.
type AdminServicer interface {
	ListInvestors(search string, page pagination.PageRequest) (*pagination.PageResponse[models.Investor], error)
	PaymentsSummary(search string, page pagination.PageRequest) (*pagination.PageResponse[InvestorSummary], error)
	MissedPaymentsSummary() ([]MissedPaymentEntry, error)
}

// AuditServicer records administrative actions for traceability.
type AuditServicer interface {
	Log(actor, action, investorID, reference string, details map[string]interface{})
}
