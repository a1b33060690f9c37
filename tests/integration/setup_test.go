package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"vestra/internal/clock"
	apperrors "vestra/internal/errors"
	"vestra/internal/gateway"
	"vestra/internal/handlers"
	"vestra/internal/locking"
	"vestra/internal/logger"
	"vestra/internal/middleware"
	"vestra/internal/models"
	"vestra/internal/rules"
	"vestra/internal/services"
	"vestra/internal/validator"
)

const (
	testAdminToken     = "integration-admin-token"
	testSchedulerToken = "integration-scheduler-token"
)

// testNow is a fixed instant in the past so rows created at real wall-clock
// time always satisfy the "created today or later" guard query.
var testNow = time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB      *gorm.DB
	Router  *gin.Engine
	Gateway *stubGateway
}

// stubGateway satisfies gateway.Gateway without network calls.
type stubGateway struct {
	failTransfer      bool
	transferAmount    int64
	transferRecipient string
}

var _ gateway.Gateway = (*stubGateway)(nil)

func (g *stubGateway) ResolveBankCode(ctx context.Context, bankName string) (string, error) {
	return "057", nil
}

func (g *stubGateway) CreateRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, error) {
	return "RCP_integration", nil
}

func (g *stubGateway) InitiateTransfer(ctx context.Context, amountMinor int64, recipientCode, reason, reference string) (string, error) {
	if g.failTransfer {
		return "", apperrors.Wrap(apperrors.ErrGatewayFailure, fmt.Errorf("transfer declined"))
	}
	g.transferAmount = amountMinor
	g.transferRecipient = recipientCode
	return "TRF_integration", nil
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.Investor{},
		&models.SpendingAccount{},
		&models.Transaction{},
		&models.AuditLog{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory
// SQLite. The clock is pinned to testNow so schedule behavior is deterministic.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)
	clk := clock.NewFixed(testNow)
	gw := &stubGateway{}

	// Services
	accountService := services.NewSpendingAccountService(db)
	auditService := services.NewAuditService(db)
	accrualService := services.NewAccrualService(db, rules.NewStaticProvider(), accountService, locking.NewNoopLocker(), clk)
	ledgerService := services.NewLedgerService(db, accountService, gw, auditService, clk)
	investorService := services.NewInvestorService(db, rules.NewStaticProvider(), ledgerService, clk)
	adminService := services.NewAdminService(db, accrualService)

	// Handlers
	authHandler := handlers.NewAuthHandler(investorService)
	investorHandler := handlers.NewInvestorHandler(investorService, accrualService, ledgerService, accountService)
	adminHandler := handlers.NewAdminHandler(adminService, accrualService, ledgerService)
	schedulerHandler := handlers.NewSchedulerHandler(accrualService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())
	protected.GET("/dashboard", investorHandler.Dashboard)
	protected.GET("/transactions", investorHandler.Transactions)
	protected.POST("/withdrawals", investorHandler.Withdraw)
	protected.DELETE("/transactions/:reference", investorHandler.DeleteTransaction)
	protected.PUT("/bank-details", investorHandler.UpdateBankDetails)

	investment := protected.Group("/investment")
	investment.POST("/activate", investorHandler.ActivatePlan)
	investment.POST("/end", investorHandler.EndInvestment)
	investment.POST("/renew", investorHandler.RenewInvestment)

	jobs := v1.Group("/jobs")
	jobs.Use(middleware.TokenAuthMiddleware(testSchedulerToken))
	jobs.POST("/process-due-dates", schedulerHandler.ProcessDueDates)

	admin := v1.Group("/admin")
	admin.Use(middleware.TokenAuthMiddleware(testAdminToken))
	admin.GET("/investors", adminHandler.ListInvestors)
	admin.GET("/payments-summary", adminHandler.PaymentsSummary)
	admin.GET("/missed-payments", adminHandler.MissedPayments)
	admin.POST("/investors/:id/catch-up", adminHandler.CatchUp)
	admin.GET("/integrity", adminHandler.CheckIntegrity)
	admin.POST("/investors/:id/integrity/fix", adminHandler.FixIntegrity)
	admin.POST("/investors/:id/adjust-balance", adminHandler.AdjustBalance)
	admin.POST("/transactions/:reference/payout", adminHandler.ProcessPayout)
	admin.PUT("/transactions/:reference/withdrawal-status", adminHandler.UpdateWithdrawalStatus)

	return &testApp{DB: db, Router: router, Gateway: gw}
}

// request makes an HTTP request to the test router with an optional bearer token.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// keyedRequest makes an HTTP request authenticated with an X-API-Key header,
// used for the scheduler and admin surfaces.
func (app *testApp) keyedRequest(method, path, body, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", key)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// errorCode extracts the error code from a standard error response.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	result := parseJSON(t, rec)
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %s", rec.Body.String())
	}
	return errObj["code"].(string)
}

// registerInvestor registers a new investor and returns the token and investor ID.
func (app *testApp) registerInvestor(t *testing.T, email, password string) (token, investorID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","surname":"Investor"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	investor := result["investor"].(map[string]interface{})
	return result["token"].(string), investor["id"].(string)
}

// activatePlan activates an investment plan and returns the dashboard-shaped
// investor object from the response.
func (app *testApp) activatePlan(t *testing.T, token, portfolioType, investmentType string, amount int) map[string]interface{} {
	t.Helper()
	body := fmt.Sprintf(`{"portfolio_type":%q,"investment_type":%q,"amount":%d}`, portfolioType, investmentType, amount)
	rec := app.request("POST", "/api/v1/investment/activate", body, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("activate plan failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["investor"].(map[string]interface{})
}

// creditBalance credits an investor's spending account through the admin
// adjust-balance endpoint.
func (app *testApp) creditBalance(t *testing.T, investorID string, amount int) {
	t.Helper()
	body := fmt.Sprintf(`{"amount":%d,"reason":"test seed","actor":"integration"}`, amount)
	rec := app.keyedRequest("POST", "/api/v1/admin/investors/"+investorID+"/adjust-balance", body, testAdminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("adjust balance failed: %d %s", rec.Code, rec.Body.String())
	}
}

// backdateSchedule rewinds an investor's schedule so the next due date lands
// in the past relative to the pinned clock.
func (app *testApp) backdateSchedule(t *testing.T, investorID string, weeksAgo int) {
	t.Helper()
	start := testNow.Add(-time.Duration(weeksAgo) * 7 * 24 * time.Hour)
	updates := map[string]interface{}{
		"investment_start_date":  start,
		"investment_expiry_date": start.Add(52 * 7 * 24 * time.Hour),
		"last_due_date":          start,
		"next_due_date":          start.AddDate(0, 0, 7),
		"current_week":           0,
	}
	if err := app.DB.Model(&models.Investor{}).Where("id = ?", investorID).Updates(updates).Error; err != nil {
		t.Fatalf("failed to backdate schedule: %v", err)
	}
}
