package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger event.
type TransactionType string

const (
	TransactionTypeInitial         TransactionType = "initial"
	TransactionTypePayment         TransactionType = "payment"
	TransactionTypeWithdrawal      TransactionType = "withdrawal"
	TransactionTypeInterestDeposit TransactionType = "interest_deposit"
	TransactionTypeEndInvestment   TransactionType = "end_investment"
	TransactionTypeRenewInvestment TransactionType = "renew_investment"
	TransactionTypePointsRedeem    TransactionType = "points_redemption"
	TransactionTypeCredit          TransactionType = "credit"
	TransactionTypeDebit           TransactionType = "debit"
)

// WithdrawStatus is the lifecycle state of a withdrawal transaction.
// Non-withdrawal transactions carry "none" or "completed".
type WithdrawStatus string

const (
	WithdrawStatusNone       WithdrawStatus = "none"
	WithdrawStatusPending    WithdrawStatus = "pending"
	WithdrawStatusProcessing WithdrawStatus = "processing"
	WithdrawStatusSent       WithdrawStatus = "sent"
	WithdrawStatusFailed     WithdrawStatus = "failed"
	WithdrawStatusCompleted  WithdrawStatus = "completed"
)

// Transaction is an immutable, append-only (soft-deletable) record of every
// ledger event. Interest deposits double as the daily idempotency guard: one
// interest_deposit per investor per calendar day.
type Transaction struct {
	Base
	InvestorID string `gorm:"type:uuid;index;not null" json:"investor_id"`

	// Reference is the human-facing transaction id, e.g. INT-3F2A90B1C4D5.
	Reference string `gorm:"uniqueIndex;not null" json:"reference"`

	Type   TransactionType `gorm:"index;not null" json:"transaction_type"`
	Amount decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`

	WithdrawStatus WithdrawStatus `gorm:"not null;default:'none'" json:"withdraw_status"`
	FailureReason  string         `json:"failure_reason,omitempty"`

	// Populated per transaction type.
	ForfeitureAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"forfeiture_amount"`
	ServiceFee       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"service_fee"`
	WithdrawalAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"withdrawal_amount"`

	// GatewayRef is the payout gateway's transfer reference once sent.
	GatewayRef string `json:"gateway_ref,omitempty"`

	// Denormalized investor context for reporting.
	Email          string  `json:"email"`
	AccountNumber  string  `json:"account_number"`
	PortfolioType  string  `json:"portfolio_type"`
	InvestmentType *string `json:"investment_type"`

	WithdrawalTimestamp *time.Time `json:"withdrawal_timestamp,omitempty"`

	Investor Investor `gorm:"foreignKey:InvestorID" json:"-"`
}
