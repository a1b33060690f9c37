package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"vestra/internal/clock"
	apperrors "vestra/internal/errors"
	"vestra/internal/gateway"
	"vestra/internal/logger"
	"vestra/internal/models"
	"vestra/internal/pagination"
)

// Investment lifecycle percentages.
var (
	endForfeitureRate = decimal.NewFromFloat(0.25)
	renewalFeeRate    = decimal.NewFromFloat(0.20)
)

// validWithdrawTransitions encodes the withdrawal state machine:
// pending -> processing -> sent | failed, with failed reachable from any
// non-terminal state.
var validWithdrawTransitions = map[models.WithdrawStatus][]models.WithdrawStatus{
	models.WithdrawStatusPending:    {models.WithdrawStatusProcessing, models.WithdrawStatusSent, models.WithdrawStatusFailed},
	models.WithdrawStatusProcessing: {models.WithdrawStatusSent, models.WithdrawStatusFailed},
	models.WithdrawStatusSent:       {models.WithdrawStatusFailed},
}

func transitionAllowed(from, to models.WithdrawStatus) bool {
	for _, allowed := range validWithdrawTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ledgerService records ledger events and drives payouts.
type ledgerService struct {
	db       *gorm.DB
	accounts SpendingAccountServicer
	gateway  gateway.Gateway
	audit    AuditServicer
	clock    clock.Clock
}

// NewLedgerService creates a new LedgerServicer.
func NewLedgerService(db *gorm.DB, accounts SpendingAccountServicer, gw gateway.Gateway, audit AuditServicer, clk clock.Clock) LedgerServicer {
	return &ledgerService{
		db:       db,
		accounts: accounts,
		gateway:  gw,
		audit:    audit,
		clock:    clk,
	}
}

func (s *ledgerService) getInvestor(investorID string) (*models.Investor, error) {
	var investor models.Investor
	if err := s.db.First(&investor, "id = ?", investorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvestorNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &investor, nil
}

func (s *ledgerService) getByReference(reference string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.db.First(&tx, "reference = ?", reference).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &tx, nil
}

// newTransaction builds a transaction with the investor context denormalized
// for reporting.
func newTransaction(investor *models.Investor, refPrefix string, txType models.TransactionType, amount decimal.Decimal) *models.Transaction {
	return &models.Transaction{
		InvestorID:     investor.ID,
		Reference:      newReference(refPrefix),
		Type:           txType,
		Amount:         amount,
		WithdrawStatus: models.WithdrawStatusNone,
		Email:          investor.Email,
		AccountNumber:  investor.AccountNumber,
		PortfolioType:  investor.PortfolioType,
		InvestmentType: investor.InvestmentType,
	}
}

// RecordInitialTransaction records the initial investment deposit made at
// signup or plan activation.
func (s *ledgerService) RecordInitialTransaction(investorID string) (*models.Transaction, error) {
	investor, err := s.getInvestor(investorID)
	if err != nil {
		return nil, err
	}

	tx := newTransaction(investor, refPrefixInitial, models.TransactionTypeInitial, investor.InitialInvestment)
	if err := s.db.Create(tx).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tx, nil
}

// RecordWithdrawalRequest debits the spending account immediately and records
// a pending withdrawal. Debiting at request time reserves the funds so the
// investor cannot double-request against the same balance.
func (s *ledgerService) RecordWithdrawalRequest(investorID string, amount decimal.Decimal) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "withdrawal amount must be greater than zero")
	}

	investor, err := s.getInvestor(investorID)
	if err != nil {
		return nil, err
	}

	var withdrawal *models.Transaction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, txErr := s.accounts.Debit(tx, investorID, amount); txErr != nil {
			return txErr
		}

		now := s.clock.Now()
		withdrawal = newTransaction(investor, refPrefixWithdrawal, models.TransactionTypeWithdrawal, amount)
		withdrawal.WithdrawStatus = models.WithdrawStatusPending
		withdrawal.WithdrawalTimestamp = &now
		if txErr := tx.Create(withdrawal).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("Withdrawal requested",
		"investor_id", investorID, "reference", withdrawal.Reference, "amount", amount)
	return withdrawal, nil
}

// ProcessPayout moves a withdrawal through the payout gateway: resolve bank
// code, create recipient, initiate transfer. The transaction is marked sent
// only after the transfer succeeds; a failure at any step leaves the status
// untouched.
func (s *ledgerService) ProcessPayout(ctx context.Context, reference string) (*models.Transaction, error) {
	tx, err := s.getByReference(reference)
	if err != nil {
		return nil, err
	}

	if tx.WithdrawStatus != models.WithdrawStatusPending && tx.WithdrawStatus != models.WithdrawStatusProcessing {
		return nil, apperrors.WithMessage(apperrors.ErrPayoutNotAllowed,
			fmt.Sprintf("Invalid status for payout: %s", tx.WithdrawStatus))
	}

	investor, err := s.getInvestor(tx.InvestorID)
	if err != nil {
		return nil, err
	}
	if investor.BankName == "" || investor.BankAccountNumber == "" {
		return nil, apperrors.ErrMissingBankDetails
	}

	bankCode, err := s.gateway.ResolveBankCode(ctx, investor.BankName)
	if err != nil {
		return nil, err
	}

	recipientName := investor.BankAccountName
	if recipientName == "" {
		recipientName = "Investor"
	}
	recipientCode, err := s.gateway.CreateRecipient(ctx, recipientName, investor.BankAccountNumber, bankCode)
	if err != nil {
		return nil, err
	}

	amountMinor := tx.Amount.Mul(decimal.NewFromInt(100)).IntPart()
	transferRef := newReference(refPrefixTransfer)
	gatewayRef, err := s.gateway.InitiateTransfer(ctx, amountMinor, recipientCode,
		fmt.Sprintf("Withdrawal for %s", reference), transferRef)
	if err != nil {
		return nil, err
	}

	updated, err := s.UpdateWithdrawalStatus(reference, models.WithdrawStatusSent, "")
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(updated).Update("gateway_ref", gatewayRef).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	updated.GatewayRef = gatewayRef

	logger.Get().Infow("Payout initiated",
		"reference", reference, "gateway_ref", gatewayRef, "amount_minor", amountMinor)
	return updated, nil
}

// UpdateWithdrawalStatus applies one withdrawal state-machine transition.
// Marking a withdrawal sent records the withdrawal amount and bumps the
// investor's total_paid; it never debits the spending account again, since
// funds were already removed at request time.
func (s *ledgerService) UpdateWithdrawalStatus(reference string, status models.WithdrawStatus, failureReason string) (*models.Transaction, error) {
	tx, err := s.getByReference(reference)
	if err != nil {
		return nil, err
	}
	if tx.Type != models.TransactionTypeWithdrawal {
		return nil, apperrors.ErrInvalidTransactionType
	}

	if !transitionAllowed(tx.WithdrawStatus, status) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidStatusTransition,
			fmt.Sprintf("cannot transition withdrawal from %s to %s", tx.WithdrawStatus, status))
	}

	if status == models.WithdrawStatusFailed && failureReason == "" {
		return nil, apperrors.ErrFailureReasonRequired
	}

	now := s.clock.Now()
	updates := map[string]interface{}{"withdraw_status": status}
	if status == models.WithdrawStatusFailed {
		updates["failure_reason"] = failureReason
	}
	if status == models.WithdrawStatusSent {
		updates["withdrawal_amount"] = tx.Amount
		updates["withdrawal_timestamp"] = &now
	}

	err = s.db.Transaction(func(dbTx *gorm.DB) error {
		if txErr := dbTx.Model(tx).Updates(updates).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		if status == models.WithdrawStatusSent {
			txErr := dbTx.Model(&models.Investor{}).
				Where("id = ?", tx.InvestorID).
				Update("total_paid", gorm.Expr("total_paid + ?", tx.Amount)).Error
			if txErr != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tx.WithdrawStatus = status
	if status == models.WithdrawStatusFailed {
		tx.FailureReason = failureReason
	}
	if status == models.WithdrawStatusSent {
		tx.WithdrawalAmount = tx.Amount
		tx.WithdrawalTimestamp = &now
	}
	return tx, nil
}

// GetAccountBalance recomputes the spending balance from the full transaction
// history. Divergence from the live SpendingAccount.Balance is an integrity
// signal.
func (s *ledgerService) GetAccountBalance(investorID string) (decimal.Decimal, error) {
	var transactions []models.Transaction
	err := s.db.
		Select("type, amount, withdraw_status, forfeiture_amount").
		Where("investor_id = ?", investorID).
		Find(&transactions).Error
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	balance := decimal.Zero
	for _, tx := range transactions {
		switch tx.Type {
		case models.TransactionTypeInitial, models.TransactionTypePayment:
			balance = balance.Add(tx.Amount)
		case models.TransactionTypeWithdrawal:
			if tx.WithdrawStatus == models.WithdrawStatusSent {
				balance = balance.Sub(tx.Amount)
			}
		case models.TransactionTypeEndInvestment:
			balance = balance.Sub(tx.ForfeitureAmount)
			balance = balance.Add(tx.Amount.Sub(tx.ForfeitureAmount))
		}
	}
	return balance, nil
}

// GetTransactionHistory lists an investor's transactions newest first, with
// an optional type filter. Soft-deleted records are excluded by gorm.
func (s *ledgerService) GetTransactionHistory(investorID string, txType *models.TransactionType, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("investor_id = ?", investorID)
	if txType != nil {
		base = base.Where("type = ?", *txType)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	err := base.Order("created_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &resp, nil
}

// EndInvestment ends the investor's plan: 25% of the initial investment is
// forfeited and the remaining 75% is credited to the spending account.
func (s *ledgerService) EndInvestment(investorID string) (*models.Transaction, error) {
	investor, err := s.getInvestor(investorID)
	if err != nil {
		return nil, err
	}
	if investor.InvestmentEnded {
		return nil, apperrors.ErrInvestmentEnded
	}
	if !investor.HasActiveInvestment() {
		return nil, apperrors.ErrNoActiveInvestment
	}

	initial := investor.InitialInvestment
	forfeiture := initial.Mul(endForfeitureRate)
	remaining := initial.Sub(forfeiture)
	now := s.clock.Now()

	var endTx *models.Transaction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"investment_ended": true,
			"ended_at":         &now,
		}
		if txErr := tx.Model(investor).Updates(updates).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}

		if _, txErr := s.accounts.Credit(tx, investorID, remaining); txErr != nil {
			return txErr
		}

		endTx = newTransaction(investor, refPrefixEnd, models.TransactionTypeEndInvestment, initial)
		endTx.WithdrawStatus = models.WithdrawStatusCompleted
		endTx.ForfeitureAmount = forfeiture
		endTx.WithdrawalTimestamp = &now
		if txErr := tx.Create(endTx).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("Investment ended",
		"investor_id", investorID, "forfeiture", forfeiture, "credited", remaining)
	return endTx, nil
}

// RenewInvestment resets the investor for a new cycle: a flat 20% service
// fee is deducted from the initial investment, all schedule and counter
// fields reset, and the investment type is cleared so a new plan must be
// chosen.
func (s *ledgerService) RenewInvestment(investorID string) (*models.Transaction, error) {
	investor, err := s.getInvestor(investorID)
	if err != nil {
		return nil, err
	}

	initial := investor.InitialInvestment
	fee := initial.Mul(renewalFeeRate)
	remaining := initial.Sub(fee)
	now := s.clock.Now()

	var renewTx *models.Transaction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"initial_investment":     remaining,
			"total_investment":       remaining,
			"investment_type":        nil,
			"investment_ended":       false,
			"ended_at":               nil,
			"payment_counter":        0,
			"current_week":           0,
			"total_paid":             decimal.Zero,
			"investment_start_date":  nil,
			"last_due_date":          nil,
			"next_due_date":          nil,
			"investment_expiry_date": nil,
			"created_at":             now,
		}
		if txErr := tx.Model(investor).Updates(updates).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}

		renewTx = newTransaction(investor, refPrefixRenew, models.TransactionTypeRenewInvestment, remaining)
		renewTx.ServiceFee = fee
		renewTx.WithdrawalTimestamp = &now
		if txErr := tx.Create(renewTx).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("Investment renewed",
		"investor_id", investorID, "service_fee", fee, "new_principal", remaining)
	return renewTx, nil
}

// RecordPointsRedemption credits redeemed points to the spending account and
// records the redemption.
func (s *ledgerService) RecordPointsRedemption(investorID string, amount decimal.Decimal) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "redemption amount must be greater than zero")
	}

	investor, err := s.getInvestor(investorID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var redeemTx *models.Transaction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, txErr := s.accounts.Credit(tx, investorID, amount); txErr != nil {
			return txErr
		}

		redeemTx = newTransaction(investor, refPrefixRedeem, models.TransactionTypePointsRedeem, amount)
		redeemTx.WithdrawStatus = models.WithdrawStatusCompleted
		redeemTx.WithdrawalAmount = amount
		redeemTx.WithdrawalTimestamp = &now
		if txErr := tx.Create(redeemTx).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return redeemTx, nil
}

// ManualBalanceAdjustment applies an admin credit or debit to the spending
// account and records it for traceability. A negative amount debits.
func (s *ledgerService) ManualBalanceAdjustment(investorID string, amount decimal.Decimal, reason, actor string) (*models.Transaction, error) {
	if amount.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "adjustment amount must be non-zero")
	}
	if reason == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "adjustment reason is required")
	}

	investor, err := s.getInvestor(investorID)
	if err != nil {
		return nil, err
	}

	txType := models.TransactionTypeCredit
	if amount.IsNegative() {
		txType = models.TransactionTypeDebit
	}

	var adjTx *models.Transaction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		if amount.IsPositive() {
			_, txErr = s.accounts.Credit(tx, investorID, amount)
		} else {
			_, txErr = s.accounts.ForceDebit(tx, investorID, amount.Neg())
		}
		if txErr != nil {
			return txErr
		}

		adjTx = newTransaction(investor, refPrefixAdjust, txType, amount.Abs())
		adjTx.WithdrawStatus = models.WithdrawStatusCompleted
		if txErr := tx.Create(adjTx).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(actor, "manual_balance_adjustment", investorID, adjTx.Reference, map[string]interface{}{
		"amount": amount.String(),
		"reason": reason,
	})
	return adjTx, nil
}

// DeleteTransaction soft-deletes a transaction after verifying ownership.
func (s *ledgerService) DeleteTransaction(reference, investorID string) error {
	tx, err := s.getByReference(reference)
	if err != nil {
		return err
	}
	if tx.InvestorID != investorID {
		return apperrors.ErrTransactionNotFound
	}

	if err := s.db.Delete(tx).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
