package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Investor represents one person with at most one active investment.
//
// The schedule fields (CurrentWeek, LastDueDate, NextDueDate) track which
// weekly installment is next expected; PaymentCounter and TotalPaid track
// what has actually been paid. The two are reconciled by the accrual engine.
type Investor struct {
	Base
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	FirstName    string `json:"first_name"`
	Surname      string `json:"surname"`
	Phone        string `json:"phone"`

	// Internal account number assigned at signup.
	AccountNumber string `gorm:"uniqueIndex;not null" json:"account_number"`

	// Bank details for payouts.
	BankName          string `json:"bank_name"`
	BankAccountName   string `json:"bank_account_name"`
	BankAccountNumber string `json:"bank_account_number"`

	// Investment terms. InvestmentType is nil until a plan is chosen.
	PortfolioType     string          `json:"portfolio_type"`
	InvestmentType    *string         `json:"investment_type"`
	InitialInvestment decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"initial_investment"`
	// TotalInvestment is initial plus top-ups and is the authoritative
	// balance for interest calculation. Falls back to InitialInvestment
	// when zero (legacy rows).
	TotalInvestment decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_investment"`

	// Schedule state. NextDueDate nil means the schedule has finished.
	InvestmentStartDate  *time.Time `json:"investment_start_date"`
	InvestmentExpiryDate *time.Time `json:"investment_expiry_date"`
	LastDueDate          *time.Time `json:"last_due_date"`
	NextDueDate          *time.Time `json:"next_due_date"`
	CurrentWeek          int        `gorm:"default:0" json:"current_week"`

	// Payment ledger counters.
	PaymentCounter int             `gorm:"default:0" json:"payment_counter"`
	TotalPaid      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_paid"`

	InvestmentEnded bool       `gorm:"default:false" json:"investment_ended"`
	EndedAt         *time.Time `json:"ended_at"`

	// Relationships
	SpendingAccount *SpendingAccount `gorm:"foreignKey:InvestorID" json:"spending_account,omitempty"`
	Transactions    []Transaction    `gorm:"foreignKey:InvestorID" json:"transactions,omitempty"`
}

// InvestmentBalance returns the balance interest is computed on:
// TotalInvestment, or InitialInvestment when TotalInvestment is unset.
func (i *Investor) InvestmentBalance() decimal.Decimal {
	if i.TotalInvestment.IsPositive() {
		return i.TotalInvestment
	}
	return i.InitialInvestment
}

// HasActiveInvestment reports whether the investor has a chosen plan with a
// start date and has not ended it.
func (i *Investor) HasActiveInvestment() bool {
	return i.InvestmentType != nil && *i.InvestmentType != "" &&
		i.InvestmentStartDate != nil && !i.InvestmentEnded
}
