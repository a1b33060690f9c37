package services

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "vestra/internal/errors"
	"vestra/internal/models"
)

// spendingAccountService manages per-investor withdrawable balances.
type spendingAccountService struct {
	db *gorm.DB
}

// NewSpendingAccountService creates a new SpendingAccountServicer.
func NewSpendingAccountService(db *gorm.DB) SpendingAccountServicer {
	return &spendingAccountService{db: db}
}

// GetOrCreate returns the investor's spending account, creating it lazily
// with a zero balance on first access.
func (s *spendingAccountService) GetOrCreate(db *gorm.DB, investorID string) (*models.SpendingAccount, error) {
	if db == nil {
		db = s.db
	}

	var account models.SpendingAccount
	err := db.Where("investor_id = ?", investorID).First(&account).Error
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	account = models.SpendingAccount{
		InvestorID:     investorID,
		Balance:        decimal.Zero,
		TotalWithdrawn: decimal.Zero,
	}
	if err := db.Create(&account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// Credit adds amount to the investor's balance.
func (s *spendingAccountService) Credit(db *gorm.DB, investorID string, amount decimal.Decimal) (*models.SpendingAccount, error) {
	if db == nil {
		db = s.db
	}

	account, err := s.GetOrCreate(db, investorID)
	if err != nil {
		return nil, err
	}

	account.Balance = account.Balance.Add(amount)
	if err := db.Model(account).Update("balance", account.Balance).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return account, nil
}

// Debit removes amount from the investor's balance and bumps the cumulative
// withdrawn total. Rejects debits exceeding the current balance.
func (s *spendingAccountService) Debit(db *gorm.DB, investorID string, amount decimal.Decimal) (*models.SpendingAccount, error) {
	if db == nil {
		db = s.db
	}

	account, err := s.GetOrCreate(db, investorID)
	if err != nil {
		return nil, err
	}

	if amount.GreaterThan(account.Balance) {
		return nil, apperrors.ErrInsufficientBalance
	}

	account.Balance = account.Balance.Sub(amount)
	account.TotalWithdrawn = account.TotalWithdrawn.Add(amount)
	updates := map[string]interface{}{
		"balance":         account.Balance,
		"total_withdrawn": account.TotalWithdrawn,
	}
	if err := db.Model(account).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return account, nil
}

// ForceDebit removes amount without a balance check and without touching
// TotalWithdrawn. Used by integrity repair to claw back overpaid interest;
// the balance is allowed to go negative as a correction signal.
func (s *spendingAccountService) ForceDebit(db *gorm.DB, investorID string, amount decimal.Decimal) (*models.SpendingAccount, error) {
	if db == nil {
		db = s.db
	}

	account, err := s.GetOrCreate(db, investorID)
	if err != nil {
		return nil, err
	}

	account.Balance = account.Balance.Sub(amount)
	if err := db.Model(account).Update("balance", account.Balance).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return account, nil
}

// Balance returns the current withdrawable balance.
func (s *spendingAccountService) Balance(investorID string) (decimal.Decimal, error) {
	account, err := s.GetOrCreate(s.db, investorID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}
