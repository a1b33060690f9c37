package models

import "github.com/shopspring/decimal"

// SpendingAccount holds an investor's withdrawable funds, credited by
// interest deposits and redemptions, debited by withdrawals. Created lazily
// on first access; exactly one per investor.
//
// Balance is allowed to go negative only through integrity repair, where an
// overpayment correction debits the overage.
type SpendingAccount struct {
	Base
	InvestorID string          `gorm:"type:uuid;uniqueIndex;not null" json:"investor_id"`
	Balance    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance"`
	// TotalWithdrawn is cumulative and never decreases.
	TotalWithdrawn decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_withdrawn"`

	Investor Investor `gorm:"foreignKey:InvestorID" json:"-"`
}
