package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"vestra/internal/clock"
	"vestra/internal/config"
	"vestra/internal/database"
	"vestra/internal/gateway"
	"vestra/internal/handlers"
	"vestra/internal/locking"
	"vestra/internal/logger"
	"vestra/internal/middleware"
	"vestra/internal/rules"
	"vestra/internal/services"
	"vestra/internal/validator"
)

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(appConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Per-investor accrual locking; a noop locker runs single-instance
	// deployments without Redis.
	locker, err := locking.NewRedisLocker(appConfig.RedisAddr, appConfig.RedisPassword)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// Initialize services
	db := dbManager.DB()
	clk := clock.System()
	rulesProvider := rules.NewStaticProvider()
	paystack := gateway.NewPaystackClient(http.DefaultClient, appConfig.PaystackBaseURL, appConfig.PaystackSecretKey)

	accountService := services.NewSpendingAccountService(db)
	auditService := services.NewAuditService(db)
	accrualService := services.NewAccrualService(db, rulesProvider, accountService, locker, clk)
	ledgerService := services.NewLedgerService(db, accountService, paystack, auditService, clk)
	investorService := services.NewInvestorService(db, rulesProvider, ledgerService, clk)
	adminService := services.NewAdminService(db, accrualService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(investorService)
	investorHandler := handlers.NewInvestorHandler(investorService, accrualService, ledgerService, accountService)
	adminHandler := handlers.NewAdminHandler(adminService, accrualService, ledgerService)
	schedulerHandler := handlers.NewSchedulerHandler(accrualService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Investor routes
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

	// Scheduler routes (cron)
	jobs := v1.Group("/jobs")
	jobs.Use(middleware.TokenAuthMiddleware(appConfig.SchedulerToken))
	jobs.POST("/process-due-dates", schedulerHandler.ProcessDueDates)

	// Admin routes
	admin := v1.Group("/admin")
	admin.Use(middleware.TokenAuthMiddleware(appConfig.AdminToken))
	admin.GET("/investors", adminHandler.ListInvestors)
	admin.GET("/payments-summary", adminHandler.PaymentsSummary)
	admin.GET("/missed-payments", adminHandler.MissedPayments)
	admin.POST("/investors/:id/catch-up", adminHandler.CatchUp)
	admin.GET("/integrity", adminHandler.CheckIntegrity)
	admin.POST("/investors/:id/integrity/fix", adminHandler.FixIntegrity)
	admin.POST("/investors/:id/adjust-balance", adminHandler.AdjustBalance)
	admin.POST("/transactions/:reference/payout", adminHandler.ProcessPayout)
	admin.PUT("/transactions/:reference/withdrawal-status", adminHandler.UpdateWithdrawalStatus)

	log.Infof("Starting Vestra backend server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
