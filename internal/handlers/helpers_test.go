package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"vestra/internal/models"
	"vestra/internal/pagination"
	"vestra/internal/services"
	"vestra/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

// --- mock services ---

type mockInvestorService struct {
	registerFn          func(email, password, firstName, surname, phone string) (*models.Investor, error)
	attemptLoginFn      func(email, password string) (*models.Investor, error)
	getByIDFn           func(id string) (*models.Investor, error)
	activatePlanFn      func(investorID, portfolioType, investmentType string, amount decimal.Decimal) (*models.Investor, error)
	updateBankDetailsFn func(investorID, bankName, accountName, accountNumber string) (*models.Investor, error)
}

func (m *mockInvestorService) Register(email, password, firstName, surname, phone string) (*models.Investor, error) {
	if m.registerFn != nil {
		return m.registerFn(email, password, firstName, surname, phone)
	}
	return &models.Investor{}, nil
}

func (m *mockInvestorService) AttemptLogin(email, password string) (*models.Investor, error) {
	if m.attemptLoginFn != nil {
		return m.attemptLoginFn(email, password)
	}
	return &models.Investor{}, nil
}

func (m *mockInvestorService) GetByID(id string) (*models.Investor, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(id)
	}
	return &models.Investor{}, nil
}

func (m *mockInvestorService) GetByEmail(email string) (*models.Investor, error) {
	return &models.Investor{}, nil
}

func (m *mockInvestorService) ActivatePlan(investorID, portfolioType, investmentType string, amount decimal.Decimal) (*models.Investor, error) {
	if m.activatePlanFn != nil {
		return m.activatePlanFn(investorID, portfolioType, investmentType, amount)
	}
	return &models.Investor{}, nil
}

func (m *mockInvestorService) UpdateBankDetails(investorID, bankName, accountName, accountNumber string) (*models.Investor, error) {
	if m.updateBankDetailsFn != nil {
		return m.updateBankDetailsFn(investorID, bankName, accountName, accountNumber)
	}
	return &models.Investor{}, nil
}

type mockAccrualService struct {
	ensureScheduleCurrentFn func(investorID string) (*models.Investor, error)
	calcInterestFn          func(investorID string) (*services.InterestSummary, error)
	calcMissedFn            func(investorID string) (*services.MissedPaymentsResult, error)
	catchUpFn               func(ctx context.Context, investorID string) (*services.CatchUpResult, error)
	batchFn                 func(ctx context.Context) (*services.BatchResult, error)
	checkIntegrityFn        func() ([]services.IntegrityIssue, error)
	fixIntegrityFn          func(investorID string) (*services.IntegrityFixResult, error)
}

func (m *mockAccrualService) EnsureScheduleCurrent(investorID string) (*models.Investor, error) {
	if m.ensureScheduleCurrentFn != nil {
		return m.ensureScheduleCurrentFn(investorID)
	}
	return &models.Investor{}, nil
}

func (m *mockAccrualService) ProcessDueDateCheck(investorID string) (*services.DueDateCheckResult, error) {
	return &services.DueDateCheckResult{Status: services.DueDateStatusNotDue}, nil
}

func (m *mockAccrualService) PayOneInstallment(investorID string) (*services.InstallmentResult, error) {
	return &services.InstallmentResult{}, nil
}

func (m *mockAccrualService) CalculateCurrentInterest(investorID string) (*services.InterestSummary, error) {
	if m.calcInterestFn != nil {
		return m.calcInterestFn(investorID)
	}
	return &services.InterestSummary{}, nil
}

func (m *mockAccrualService) CalculateMissedPayments(investorID string) (*services.MissedPaymentsResult, error) {
	if m.calcMissedFn != nil {
		return m.calcMissedFn(investorID)
	}
	return &services.MissedPaymentsResult{}, nil
}

func (m *mockAccrualService) AdminCatchUpMissedPayments(ctx context.Context, investorID string) (*services.CatchUpResult, error) {
	if m.catchUpFn != nil {
		return m.catchUpFn(ctx, investorID)
	}
	return &services.CatchUpResult{}, nil
}

func (m *mockAccrualService) BatchProcessAllDueDates(ctx context.Context) (*services.BatchResult, error) {
	if m.batchFn != nil {
		return m.batchFn(ctx)
	}
	return &services.BatchResult{}, nil
}

func (m *mockAccrualService) CheckIntegrity() ([]services.IntegrityIssue, error) {
	if m.checkIntegrityFn != nil {
		return m.checkIntegrityFn()
	}
	return []services.IntegrityIssue{}, nil
}

func (m *mockAccrualService) FixIntegrity(investorID string) (*services.IntegrityFixResult, error) {
	if m.fixIntegrityFn != nil {
		return m.fixIntegrityFn(investorID)
	}
	return &services.IntegrityFixResult{}, nil
}

type mockLedgerService struct {
	recordWithdrawalFn func(investorID string, amount decimal.Decimal) (*models.Transaction, error)
	processPayoutFn    func(ctx context.Context, reference string) (*models.Transaction, error)
	updateStatusFn     func(reference string, status models.WithdrawStatus, failureReason string) (*models.Transaction, error)
	historyFn          func(investorID string, txType *models.TransactionType, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	endInvestmentFn    func(investorID string) (*models.Transaction, error)
	renewInvestmentFn  func(investorID string) (*models.Transaction, error)
	adjustBalanceFn    func(investorID string, amount decimal.Decimal, reason, actor string) (*models.Transaction, error)
}

func (m *mockLedgerService) RecordInitialTransaction(investorID string) (*models.Transaction, error) {
	return &models.Transaction{}, nil
}

func (m *mockLedgerService) RecordWithdrawalRequest(investorID string, amount decimal.Decimal) (*models.Transaction, error) {
	if m.recordWithdrawalFn != nil {
		return m.recordWithdrawalFn(investorID, amount)
	}
	return &models.Transaction{}, nil
}

func (m *mockLedgerService) ProcessPayout(ctx context.Context, reference string) (*models.Transaction, error) {
	if m.processPayoutFn != nil {
		return m.processPayoutFn(ctx, reference)
	}
	return &models.Transaction{}, nil
}

func (m *mockLedgerService) UpdateWithdrawalStatus(reference string, status models.WithdrawStatus, failureReason string) (*models.Transaction, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(reference, status, failureReason)
	}
	return &models.Transaction{}, nil
}

func (m *mockLedgerService) GetAccountBalance(investorID string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (m *mockLedgerService) GetTransactionHistory(investorID string, txType *models.TransactionType, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	if m.historyFn != nil {
		return m.historyFn(investorID, txType, page)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 50, 0)
	return &resp, nil
}

func (m *mockLedgerService) EndInvestment(investorID string) (*models.Transaction, error) {
	if m.endInvestmentFn != nil {
		return m.endInvestmentFn(investorID)
	}
	return &models.Transaction{}, nil
}

func (m *mockLedgerService) RenewInvestment(investorID string) (*models.Transaction, error) {
	if m.renewInvestmentFn != nil {
		return m.renewInvestmentFn(investorID)
	}
	return &models.Transaction{}, nil
}

func (m *mockLedgerService) RecordPointsRedemption(investorID string, amount decimal.Decimal) (*models.Transaction, error) {
	return &models.Transaction{}, nil
}

func (m *mockLedgerService) ManualBalanceAdjustment(investorID string, amount decimal.Decimal, reason, actor string) (*models.Transaction, error) {
	if m.adjustBalanceFn != nil {
		return m.adjustBalanceFn(investorID, amount, reason, actor)
	}
	return &models.Transaction{}, nil
}

func (m *mockLedgerService) DeleteTransaction(reference, investorID string) error {
	return nil
}

type mockAccountService struct {
	balanceFn func(investorID string) (decimal.Decimal, error)
}

func (m *mockAccountService) GetOrCreate(db *gorm.DB, investorID string) (*models.SpendingAccount, error) {
	return &models.SpendingAccount{}, nil
}

func (m *mockAccountService) Credit(db *gorm.DB, investorID string, amount decimal.Decimal) (*models.SpendingAccount, error) {
	return &models.SpendingAccount{}, nil
}

func (m *mockAccountService) Debit(db *gorm.DB, investorID string, amount decimal.Decimal) (*models.SpendingAccount, error) {
	return &models.SpendingAccount{}, nil
}

func (m *mockAccountService) ForceDebit(db *gorm.DB, investorID string, amount decimal.Decimal) (*models.SpendingAccount, error) {
	return &models.SpendingAccount{}, nil
}

func (m *mockAccountService) Balance(investorID string) (decimal.Decimal, error) {
	if m.balanceFn != nil {
		return m.balanceFn(investorID)
	}
	return decimal.Zero, nil
}

type mockAdminService struct {
	listFn   func(search string, page pagination.PageRequest) (*pagination.PageResponse[models.Investor], error)
	missedFn func() ([]services.MissedPaymentEntry, error)
}

func (m *mockAdminService) ListInvestors(search string, page pagination.PageRequest) (*pagination.PageResponse[models.Investor], error) {
	if m.listFn != nil {
		return m.listFn(search, page)
	}
	resp := pagination.NewPageResponse([]models.Investor{}, 1, 50, 0)
	return &resp, nil
}

func (m *mockAdminService) PaymentsSummary(search string, page pagination.PageRequest) (*pagination.PageResponse[services.InvestorSummary], error) {
	resp := pagination.NewPageResponse([]services.InvestorSummary{}, 1, 50, 0)
	return &resp, nil
}

func (m *mockAdminService) MissedPaymentsSummary() ([]services.MissedPaymentEntry, error) {
	if m.missedFn != nil {
		return m.missedFn()
	}
	return []services.MissedPaymentEntry{}, nil
}

// --- test helpers ---

func injectInvestorID(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("investorID", id)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}
