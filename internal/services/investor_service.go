package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"vestra/internal/clock"
	apperrors "vestra/internal/errors"
	"vestra/internal/logger"
	"vestra/internal/models"
	"vestra/internal/rules"
)

// investorService handles investor lifecycle.
type investorService struct {
	db     *gorm.DB
	rules  rules.Provider
	ledger LedgerServicer
	clock  clock.Clock
}

// NewInvestorService creates a new InvestorServicer.
func NewInvestorService(db *gorm.DB, rulesProvider rules.Provider, ledger LedgerServicer, clk clock.Clock) InvestorServicer {
	return &investorService{
		db:     db,
		rules:  rulesProvider,
		ledger: ledger,
		clock:  clk,
	}
}

// generateAccountNumber produces a random 10-digit account number.
func generateAccountNumber() (string, error) {
	max := big.NewInt(10_000_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%010d", n), nil
}

// Register creates an investor with a hashed password and a unique account
// number. No investment plan is active until ActivatePlan is called.
func (s *investorService) Register(email, password, firstName, surname, phone string) (*models.Investor, error) {
	if email == "" || password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email and password are required")
	}

	var existing models.Investor
	err := s.db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, apperrors.ErrDuplicateEmail
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	accountNumber, err := generateAccountNumber()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	investor := &models.Investor{
		Email:         email,
		PasswordHash:  string(hash),
		FirstName:     firstName,
		Surname:       surname,
		Phone:         phone,
		AccountNumber: accountNumber,
	}
	if err := s.db.Create(investor).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	logger.Get().Infow("Investor registered", "investor_id", investor.ID, "email", email)
	return investor, nil
}

// AttemptLogin verifies credentials and returns the investor on success.
func (s *investorService) AttemptLogin(email, password string) (*models.Investor, error) {
	investor, err := s.GetByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvestorNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(investor.PasswordHash), []byte(password)) != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	return investor, nil
}

func (s *investorService) GetByID(id string) (*models.Investor, error) {
	var investor models.Investor
	if err := s.db.First(&investor, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvestorNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &investor, nil
}

func (s *investorService) GetByEmail(email string) (*models.Investor, error) {
	var investor models.Investor
	if err := s.db.First(&investor, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvestorNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &investor, nil
}

// ActivatePlan starts an investment: sets the portfolio/investment type and
// principal, anchors the schedule at today, computes the expiry from the
// plan rules, and records the initial transaction.
func (s *investorService) ActivatePlan(investorID, portfolioType, investmentType string, amount decimal.Decimal) (*models.Investor, error) {
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "investment amount must be greater than zero")
	}

	investor, err := s.GetByID(investorID)
	if err != nil {
		return nil, err
	}
	if investor.HasActiveInvestment() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "investor already has an active investment")
	}

	// Validate the plan exists before mutating anything.
	if _, err := s.rules.WeeklyRate(portfolioType, investmentType); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	expiry, err := s.rules.ExpiryDate(portfolioType, investmentType, now)
	if err != nil {
		return nil, err
	}

	start := now
	firstDue := start.AddDate(0, 0, 7)

	updates := map[string]interface{}{
		"portfolio_type":         portfolioType,
		"investment_type":        investmentType,
		"initial_investment":     amount,
		"total_investment":       amount,
		"investment_start_date":  &start,
		"investment_expiry_date": &expiry,
		"last_due_date":          &start,
		"next_due_date":          &firstDue,
		"current_week":           0,
		"payment_counter":        0,
		"total_paid":             decimal.Zero,
		"investment_ended":       false,
		"ended_at":               nil,
	}
	if err := s.db.Model(investor).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	investor, err = s.GetByID(investorID)
	if err != nil {
		return nil, err
	}

	if _, err := s.ledger.RecordInitialTransaction(investorID); err != nil {
		logger.Get().Errorw("Failed to record initial transaction",
			"investor_id", investorID, "error", err)
	}

	logger.Get().Infow("Investment plan activated",
		"investor_id", investorID,
		"portfolio_type", portfolioType,
		"investment_type", investmentType,
		"amount", amount,
	)
	return investor, nil
}

// UpdateBankDetails stores the payout destination for withdrawals.
func (s *investorService) UpdateBankDetails(investorID, bankName, accountName, accountNumber string) (*models.Investor, error) {
	if bankName == "" || accountNumber == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "bank name and account number are required")
	}

	investor, err := s.GetByID(investorID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"bank_name":           bankName,
		"bank_account_name":   accountName,
		"bank_account_number": accountNumber,
	}
	if err := s.db.Model(investor).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	investor.BankName = bankName
	investor.BankAccountName = accountName
	investor.BankAccountNumber = accountNumber
	return investor, nil
}
