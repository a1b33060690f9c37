package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"vestra/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestInvestor creates an investor with a hashed password, a unique
// email and account number, and no investment plan.
func CreateTestInvestor(t *testing.T, db *gorm.DB) *models.Investor {
	t.Helper()

	n := nextID()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	investor := &models.Investor{
		Email:             fmt.Sprintf("investor%d@test.com", n),
		PasswordHash:      string(hash),
		FirstName:         "Test",
		Surname:           fmt.Sprintf("Investor%d", n),
		AccountNumber:     fmt.Sprintf("%010d", n),
		BankName:          "Zenith Bank",
		BankAccountName:   fmt.Sprintf("Test Investor%d", n),
		BankAccountNumber: fmt.Sprintf("01234%05d", n),
	}
	if err := db.Create(investor).Error; err != nil {
		t.Fatalf("failed to create test investor: %v", err)
	}
	return investor
}

// CreateTestInvestorWithPlan creates an investor with an active plan whose
// schedule starts at start. The first due date is one week after start.
func CreateTestInvestorWithPlan(t *testing.T, db *gorm.DB, portfolioType, investmentType string, amount decimal.Decimal, start time.Time) *models.Investor {
	t.Helper()

	investor := CreateTestInvestor(t, db)
	next := start.AddDate(0, 0, 7)

	investor.PortfolioType = portfolioType
	investor.InvestmentType = &investmentType
	investor.InitialInvestment = amount
	investor.TotalInvestment = amount
	investor.InvestmentStartDate = &start
	investor.LastDueDate = &start
	investor.NextDueDate = &next
	investor.CurrentWeek = 0

	if err := db.Save(investor).Error; err != nil {
		t.Fatalf("failed to update test investor plan: %v", err)
	}
	return investor
}

// CreateTestSpendingAccount creates a spending account with the given balance.
func CreateTestSpendingAccount(t *testing.T, db *gorm.DB, investorID string, balance decimal.Decimal) *models.SpendingAccount {
	t.Helper()

	account := &models.SpendingAccount{
		InvestorID: investorID,
		Balance:    balance,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test spending account: %v", err)
	}
	return account
}

// CreateTestTransaction creates a transaction of the given type and amount.
func CreateTestTransaction(t *testing.T, db *gorm.DB, investor *models.Investor, txType models.TransactionType, amount decimal.Decimal) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		InvestorID:     investor.ID,
		Reference:      fmt.Sprintf("TEST-%012d", nextID()),
		Type:           txType,
		Amount:         amount,
		WithdrawStatus: models.WithdrawStatusNone,
		Email:          investor.Email,
		AccountNumber:  investor.AccountNumber,
		PortfolioType:  investor.PortfolioType,
		InvestmentType: investor.InvestmentType,
	}
	if tx.Type == models.TransactionTypeWithdrawal {
		tx.WithdrawStatus = models.WithdrawStatusPending
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestInterestDeposit creates an interest deposit recorded at the given
// time. CreatedAt is set explicitly because the accrual engine uses it as the
// once-per-day guard.
func CreateTestInterestDeposit(t *testing.T, db *gorm.DB, investor *models.Investor, amount decimal.Decimal, createdAt time.Time) *models.Transaction {
	t.Helper()

	tx := CreateTestTransaction(t, db, investor, models.TransactionTypeInterestDeposit, amount)
	if err := db.Model(tx).Update("created_at", createdAt).Error; err != nil {
		t.Fatalf("failed to backdate interest deposit: %v", err)
	}
	tx.CreatedAt = createdAt
	return tx
}
