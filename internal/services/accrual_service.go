package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"vestra/internal/clock"
	apperrors "vestra/internal/errors"
	"vestra/internal/locking"
	"vestra/internal/logger"
	"vestra/internal/models"
	"vestra/internal/rules"
)

// maxScheduleWeeks bounds the skip-forward loop so corrupted schedule data
// cannot spin forever.
const maxScheduleWeeks = 52

// overpaymentEpsilon is the amount tolerance used when comparing total_paid
// against the expected payout.
var overpaymentEpsilon = decimal.NewFromFloat(0.01)

// accrualService is the interest accrual engine.
type accrualService struct {
	db       *gorm.DB
	rules    rules.Provider
	accounts SpendingAccountServicer
	locker   locking.Locker
	clock    clock.Clock
}

// NewAccrualService creates a new AccrualServicer.
func NewAccrualService(db *gorm.DB, rulesProvider rules.Provider, accounts SpendingAccountServicer, locker locking.Locker, clk clock.Clock) AccrualServicer {
	return &accrualService{
		db:       db,
		rules:    rulesProvider,
		accounts: accounts,
		locker:   locker,
		clock:    clk,
	}
}

// dateOnly truncates an instant to its UTC calendar date.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// weeksElapsed counts full calendar weeks between start and now.
func weeksElapsed(now, start time.Time) int {
	days := int(dateOnly(now).Sub(dateOnly(start)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days / 7
}

func (s *accrualService) getInvestor(db *gorm.DB, investorID string) (*models.Investor, error) {
	if db == nil {
		db = s.db
	}
	var investor models.Investor
	if err := db.First(&investor, "id = ?", investorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvestorNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &investor, nil
}

// EnsureScheduleCurrent normalizes the investor's due-date schedule so
// next_due_date is never strictly in the past. A due date equal to today is
// left in place for processing; only past dates are skipped forward, without
// paying the skipped weeks. Persists only when something changed.
func (s *accrualService) EnsureScheduleCurrent(investorID string) (*models.Investor, error) {
	investor, err := s.getInvestor(nil, investorID)
	if err != nil {
		return nil, err
	}

	// No plan yet, nothing to normalize.
	if investor.InvestmentType == nil || *investor.InvestmentType == "" || investor.InvestmentStartDate == nil {
		return investor, nil
	}

	now := s.clock.Now()
	start := investor.InvestmentStartDate.UTC()
	changed := false

	var lastDue, nextDue *time.Time
	currentWeek := investor.CurrentWeek

	switch {
	case investor.LastDueDate == nil && investor.NextDueDate == nil:
		// Week 0: the start date anchors the schedule.
		ld := start
		nd := start.AddDate(0, 0, 7)
		lastDue, nextDue = &ld, &nd
		currentWeek = 0
		changed = true
	default:
		lastDue = investor.LastDueDate
		if lastDue == nil {
			lastDue = &start
		}
		if investor.NextDueDate != nil {
			nextDue = investor.NextDueDate
		} else {
			nd := lastDue.AddDate(0, 0, 7)
			nextDue = &nd
		}
	}

	// Skip strictly-past due dates forward. Missed weeks are not paid here;
	// they remain visible as the payment_counter vs weeks_elapsed gap.
	today := dateOnly(now)
	for nextDue != nil && dateOnly(*nextDue).Before(today) && currentWeek < maxScheduleWeeks {
		currentWeek++
		ld := *nextDue
		nd := ld.AddDate(0, 0, 7)
		lastDue, nextDue = &ld, &nd
		changed = true
	}

	// Clamp to expiry: a schedule past its expiry date is finished.
	expiry, err := s.rules.ExpiryDate(investor.PortfolioType, *investor.InvestmentType, start)
	if err != nil {
		return nil, err
	}
	if investor.InvestmentExpiryDate == nil || !investor.InvestmentExpiryDate.Equal(expiry) {
		investor.InvestmentExpiryDate = &expiry
		changed = true
	}
	if nextDue != nil && nextDue.After(expiry) {
		nextDue = nil
		changed = true
	}

	if !changed {
		return investor, nil
	}

	investor.LastDueDate = lastDue
	investor.NextDueDate = nextDue
	investor.CurrentWeek = currentWeek

	updates := map[string]interface{}{
		"last_due_date":          investor.LastDueDate,
		"next_due_date":          investor.NextDueDate,
		"current_week":           investor.CurrentWeek,
		"investment_expiry_date": investor.InvestmentExpiryDate,
	}
	if err := s.db.Model(investor).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return investor, nil
}

// CalculateCurrentInterest computes the weekly interest amount and elapsed
// weeks for an investor. Zero interest when no plan, no start date, or no
// positive balance.
func (s *accrualService) CalculateCurrentInterest(investorID string) (*InterestSummary, error) {
	investor, err := s.getInvestor(nil, investorID)
	if err != nil {
		return nil, err
	}
	return s.interestFor(investor)
}

func (s *accrualService) interestFor(investor *models.Investor) (*InterestSummary, error) {
	balance := investor.InvestmentBalance()
	if investor.InvestmentType == nil || *investor.InvestmentType == "" ||
		investor.InvestmentStartDate == nil || !balance.IsPositive() {
		return &InterestSummary{
			WeeklyInterest: decimal.Zero,
			PaymentCounter: investor.PaymentCounter,
			Balance:        balance,
		}, nil
	}

	rate, err := s.rules.WeeklyRate(investor.PortfolioType, *investor.InvestmentType)
	if err != nil {
		return nil, err
	}

	return &InterestSummary{
		WeeklyInterest: balance.Mul(rate).Div(decimal.NewFromInt(100)),
		WeeksElapsed:   weeksElapsed(s.clock.Now(), *investor.InvestmentStartDate),
		PaymentCounter: investor.PaymentCounter,
		Balance:        balance,
	}, nil
}

// PayOneInstallment pays one weekly interest installment, guarded so it is
// safe to call repeatedly within the same day.
func (s *accrualService) PayOneInstallment(investorID string) (*InstallmentResult, error) {
	return s.payInstallment(investorID, false)
}

// payInstallment is the idempotent payment primitive. Guards, in order:
// one interest deposit per calendar day, counter vs elapsed weeks, and a
// positive interest amount. Catch-up skips the daily guard so multiple
// missed weeks can be repaid in one admin run; the counter guard still
// bounds total payments.
func (s *accrualService) payInstallment(investorID string, skipDailyGuard bool) (*InstallmentResult, error) {
	investor, err := s.getInvestor(nil, investorID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()

	if !skipDailyGuard {
		var count int64
		err := s.db.Model(&models.Transaction{}).
			Where("investor_id = ? AND type = ? AND created_at >= ?",
				investorID, models.TransactionTypeInterestDeposit, dateOnly(now)).
			Count(&count).Error
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return &InstallmentResult{Paid: false, Reason: NoOpAlreadyPaidToday}, nil
		}
	}

	summary, err := s.interestFor(investor)
	if err != nil {
		return nil, err
	}

	if summary.WeeksElapsed <= investor.PaymentCounter {
		return &InstallmentResult{Paid: false, Reason: NoOpNotDuePerCounter}, nil
	}

	if !summary.WeeklyInterest.IsPositive() {
		return &InstallmentResult{Paid: false, Reason: NoOpNoInterest}, nil
	}

	amount := summary.WeeklyInterest
	var newBalance decimal.Decimal

	// The balance credit, counter bump and ledger record must commit as one
	// unit; partial application would create permanent drift.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		account, txErr := s.accounts.Credit(tx, investorID, amount)
		if txErr != nil {
			return txErr
		}
		newBalance = account.Balance

		updates := map[string]interface{}{
			"total_paid":      investor.TotalPaid.Add(amount),
			"payment_counter": investor.PaymentCounter + 1,
		}
		if txErr := tx.Model(investor).Updates(updates).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}

		deposit := &models.Transaction{
			InvestorID:     investorID,
			Reference:      newReference(refPrefixInterest),
			Type:           models.TransactionTypeInterestDeposit,
			Amount:         amount,
			WithdrawStatus: models.WithdrawStatusCompleted,
			Email:          investor.Email,
			AccountNumber:  investor.AccountNumber,
			PortfolioType:  investor.PortfolioType,
			InvestmentType: investor.InvestmentType,
		}
		if txErr := tx.Create(deposit).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		return nil
	})
	if err != nil {
		logger.Get().Errorw("Installment payment failed",
			"investor_id", investorID,
			"amount", amount,
			"error", err,
		)
		return nil, err
	}

	investor.TotalPaid = investor.TotalPaid.Add(amount)
	investor.PaymentCounter++

	return &InstallmentResult{Paid: true, Amount: amount, NewBalance: newBalance}, nil
}

// ProcessDueDateCheck pays the investor's installment if today is the due
// date, then advances the schedule by exactly one week.
func (s *accrualService) ProcessDueDateCheck(investorID string) (*DueDateCheckResult, error) {
	investor, err := s.EnsureScheduleCurrent(investorID)
	if err != nil {
		return nil, err
	}

	if investor.NextDueDate == nil {
		return &DueDateCheckResult{Status: DueDateStatusNoUpcoming}, nil
	}

	today := dateOnly(s.clock.Now())
	if !dateOnly(*investor.NextDueDate).Equal(today) {
		return &DueDateCheckResult{Status: DueDateStatusNotDue}, nil
	}

	result, err := s.PayOneInstallment(investorID)
	if err != nil {
		return nil, err
	}

	if err := s.advanceOneWeek(investor); err != nil {
		return nil, err
	}

	status := DueDateStatusPaid
	if !result.Paid {
		status = DueDateStatusSkipped
	}
	return &DueDateCheckResult{Status: status, Installment: result}, nil
}

// advanceOneWeek rolls the schedule forward after a due date is processed:
// the just-processed due date becomes last_due_date, clamped to expiry.
func (s *accrualService) advanceOneWeek(investor *models.Investor) error {
	if investor.NextDueDate == nil {
		return nil
	}

	justPaid := *investor.NextDueDate
	newNext := justPaid.AddDate(0, 0, 7)
	nextPtr := &newNext

	if investor.InvestmentExpiryDate != nil && newNext.After(*investor.InvestmentExpiryDate) {
		nextPtr = nil
	}

	investor.LastDueDate = &justPaid
	investor.NextDueDate = nextPtr
	investor.CurrentWeek++

	updates := map[string]interface{}{
		"last_due_date": investor.LastDueDate,
		"next_due_date": investor.NextDueDate,
		"current_week":  investor.CurrentWeek,
	}
	if err := s.db.Model(investor).Updates(updates).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// CalculateMissedPayments reports elapsed weeks minus payments made. A
// negative result means overpayment and is surfaced, never clamped.
func (s *accrualService) CalculateMissedPayments(investorID string) (*MissedPaymentsResult, error) {
	summary, err := s.CalculateCurrentInterest(investorID)
	if err != nil {
		return nil, err
	}

	missed := summary.WeeksElapsed - summary.PaymentCounter
	return &MissedPaymentsResult{
		WeeksElapsed:   summary.WeeksElapsed,
		PaymentCounter: summary.PaymentCounter,
		Missed:         missed,
		Overpaid:       missed < 0,
	}, nil
}

// AdminCatchUpMissedPayments repays missed weekly installments in one run,
// stopping on the first failure or guard refusal, then renormalizes the
// schedule.
func (s *accrualService) AdminCatchUpMissedPayments(ctx context.Context, investorID string) (*CatchUpResult, error) {
	release, err := s.locker.AcquireInvestor(ctx, investorID)
	if err != nil {
		return nil, err
	}
	defer release()

	missedResult, err := s.CalculateMissedPayments(investorID)
	if err != nil {
		return nil, err
	}

	result := &CatchUpResult{Missed: missedResult.Missed}
	if missedResult.Missed <= 0 {
		return result, nil
	}

	for i := 0; i < missedResult.Missed; i++ {
		payResult, payErr := s.payInstallment(investorID, true)
		if payErr != nil {
			result.Errors = append(result.Errors, payErr.Error())
			break
		}
		if !payResult.Paid {
			// Guards disagree with the computed missed count; stop
			// rather than loop.
			break
		}
		result.Processed++
	}

	if _, err := s.EnsureScheduleCurrent(investorID); err != nil {
		result.Errors = append(result.Errors, err.Error())
	}

	logger.Get().Infow("Admin catch-up completed",
		"investor_id", investorID,
		"missed", result.Missed,
		"processed", result.Processed,
	)
	return result, nil
}

// BatchProcessAllDueDates is the scheduler entry point: it walks every
// investor sequentially, processing due dates with per-investor isolation
// so one bad record cannot halt the cycle.
func (s *accrualService) BatchProcessAllDueDates(ctx context.Context) (*BatchResult, error) {
	var ids []string
	if err := s.db.Model(&models.Investor{}).Pluck("id", &ids).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := &BatchResult{TotalInvestors: len(ids)}
	for _, id := range ids {
		if err := s.processOne(ctx, id, result); err != nil {
			result.Errors = append(result.Errors, BatchError{InvestorID: id, Error: err.Error()})
		}
	}

	logger.Get().Infow("Due-date batch completed",
		"total", result.TotalInvestors,
		"paid", result.PaidCount,
		"errors", len(result.Errors),
	)
	return result, nil
}

func (s *accrualService) processOne(ctx context.Context, investorID string, result *BatchResult) error {
	release, err := s.locker.AcquireInvestor(ctx, investorID)
	if err != nil {
		return err
	}
	defer release()

	check, err := s.ProcessDueDateCheck(investorID)
	if err != nil {
		return err
	}
	if check.Status == DueDateStatusPaid {
		result.PaidCount++
	}
	return nil
}

// CheckIntegrity scans all investors for drift between expected and actual
// payment and schedule state. Read-only; each issue is reported, not fixed.
func (s *accrualService) CheckIntegrity() ([]IntegrityIssue, error) {
	var investors []models.Investor
	if err := s.db.Find(&investors).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := s.clock.Now()
	issues := []IntegrityIssue{}

	for i := range investors {
		investor := &investors[i]

		if investor.InitialInvestment.IsPositive() && !investor.TotalInvestment.IsPositive() {
			issues = append(issues, IntegrityIssue{
				InvestorID: investor.ID,
				Email:      investor.Email,
				Issue:      "total_investment_not_set",
				Details:    fmt.Sprintf("Initial: %s, Total: %s", investor.InitialInvestment, investor.TotalInvestment),
			})
			continue
		}

		if investor.InvestmentType == nil || *investor.InvestmentType == "" || investor.InvestmentStartDate == nil {
			continue
		}

		elapsed := weeksElapsed(now, *investor.InvestmentStartDate)

		// One week of drift is tolerated for payment processing time.
		if elapsed > investor.CurrentWeek+1 {
			issues = append(issues, IntegrityIssue{
				InvestorID: investor.ID,
				Email:      investor.Email,
				Issue:      "timeline_mismatch",
				Details:    fmt.Sprintf("Calculated Weeks: %d, DB Week: %d", elapsed, investor.CurrentWeek),
			})
		}

		if investor.InvestmentExpiryDate == nil {
			issues = append(issues, IntegrityIssue{
				InvestorID: investor.ID,
				Email:      investor.Email,
				Issue:      "missing_expiry_date",
				Details:    "Investment expiry date is NULL",
			})
		}

		if investor.CurrentWeek > 0 && investor.LastDueDate == nil {
			issues = append(issues, IntegrityIssue{
				InvestorID: investor.ID,
				Email:      investor.Email,
				Issue:      "missing_last_due_date",
				Details:    fmt.Sprintf("Week is %d but last_due_date is NULL", investor.CurrentWeek),
			})
		}

		summary, err := s.interestFor(investor)
		if err != nil {
			logger.Get().Warnw("Integrity overpayment check skipped",
				"investor_id", investor.ID, "error", err)
			continue
		}
		expected := summary.WeeklyInterest.Mul(decimal.NewFromInt(int64(elapsed)))
		if investor.TotalPaid.GreaterThan(expected.Add(overpaymentEpsilon)) {
			issues = append(issues, IntegrityIssue{
				InvestorID: investor.ID,
				Email:      investor.Email,
				Issue:      "payment_overage",
				Details:    fmt.Sprintf("Paid: %s, Expected: %s (%d weeks)", investor.TotalPaid, expected, elapsed),
			})
		}
	}

	return issues, nil
}

// FixIntegrity realigns one investor's schedule and counters purely from the
// start date and current time, and claws back any overpaid interest from the
// spending account (which may leave the balance negative).
func (s *accrualService) FixIntegrity(investorID string) (*IntegrityFixResult, error) {
	investor, err := s.getInvestor(nil, investorID)
	if err != nil {
		return nil, err
	}

	result := &IntegrityFixResult{InvestorID: investorID, OverageDebited: decimal.Zero}
	updates := map[string]interface{}{}

	if investor.InitialInvestment.IsPositive() && !investor.TotalInvestment.IsPositive() {
		investor.TotalInvestment = investor.InitialInvestment
		updates["total_investment"] = investor.TotalInvestment
		result.Changes = append(result.Changes, "total_investment")
	}

	if investor.InvestmentType != nil && *investor.InvestmentType != "" && investor.InvestmentStartDate != nil {
		start := investor.InvestmentStartDate.UTC()

		expiry, err := s.rules.ExpiryDate(investor.PortfolioType, *investor.InvestmentType, start)
		if err != nil {
			return nil, err
		}
		updates["investment_expiry_date"] = &expiry
		result.Changes = append(result.Changes, "investment_expiry_date")

		elapsed := weeksElapsed(s.clock.Now(), start)
		lastDue := start.AddDate(0, 0, elapsed*7)
		nextDue := lastDue.AddDate(0, 0, 7)

		updates["current_week"] = elapsed
		updates["last_due_date"] = &lastDue
		if nextDue.After(expiry) {
			updates["next_due_date"] = nil
		} else {
			updates["next_due_date"] = &nextDue
		}
		result.Changes = append(result.Changes, "current_week", "last_due_date", "next_due_date")

		summary, err := s.interestFor(investor)
		if err != nil {
			return nil, err
		}
		expected := summary.WeeklyInterest.Mul(decimal.NewFromInt(int64(elapsed)))
		if investor.TotalPaid.GreaterThan(expected.Add(overpaymentEpsilon)) {
			overage := investor.TotalPaid.Sub(expected)
			updates["total_paid"] = expected
			updates["payment_counter"] = elapsed
			result.Changes = append(result.Changes, "total_paid", "payment_counter")
			result.OverageDebited = overage
		}
	}

	if len(updates) == 0 {
		return result, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if txErr := tx.Model(investor).Updates(updates).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		if result.OverageDebited.IsPositive() {
			if _, txErr := s.accounts.ForceDebit(tx, investorID, result.OverageDebited); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("Integrity repair applied",
		"investor_id", investorID,
		"changes", result.Changes,
		"overage_debited", result.OverageDebited,
	)
	return result, nil
}
