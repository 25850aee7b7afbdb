package main

import (
	"finance-service/internal/gateway"
	"finance-service/internal/handler"
	"finance-service/internal/middleware"
	"finance-service/internal/planlife"
	"finance-service/pkg/config"
	"finance-service/pkg/cryptoutil"
	"finance-service/pkg/database"
	"finance-service/pkg/jwtutil"
	"finance-service/pkg/logger"
	"finance-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting finance service...", zap.String("environment", cfg.Server.Env))

	// Initialize crypto for stored credentials and payer documents
	if err := cryptoutil.Initialize(cfg.Crypto.Key); err != nil {
		log.Fatal("Failed to initialize encryption", zap.Error(err))
	}

	// Initialize database
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	// Initialize plan lifecycle with trial defaults
	planlife.Initialize(cfg)

	// Initialize payment processor client
	gw := gateway.NewClient(&cfg.Payment)
	handler.InitPaymentGateway(gw)
	if gw.Simulated() {
		log.Warn("Payment gateway running in simulation mode")
	} else {
		log.Info("Payment gateway initialized")
	}

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Processor push notifications - authenticated by re-fetching status
	e.POST("/webhooks/payment", handler.PaymentWebhook)

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/login", handler.Login)
	auth.POST("/register", handler.Register)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	// User management
	users := api.Group("/users")
	users.GET("/profile", handler.GetProfile)

	// Business units
	businesses := api.Group("/businesses")
	businesses.GET("", handler.ListBusinessUnits)
	businesses.POST("", handler.CreateBusinessUnit)
	businesses.PUT("/:id", handler.UpdateBusinessUnit)
	businesses.DELETE("/:id", handler.DeleteBusinessUnit)

	// Categories and credit cards - scoped per user, no business context
	categories := api.Group("/categories")
	categories.GET("", handler.ListCategories)
	categories.POST("", handler.CreateCategory)
	categories.PUT("/:id", handler.UpdateCategory)
	categories.DELETE("/:id", handler.DeleteCategory)

	cards := api.Group("/cards")
	cards.GET("", handler.ListCreditCards)
	cards.POST("", handler.CreateCreditCard)
	cards.DELETE("/:id", handler.DeleteCreditCard)

	// Transactions - reads resolve a business context up front, writes
	// resolve it in the handler so the body reference is considered
	transactions := api.Group("/transactions")
	transactions.GET("", handler.ListTransactions, middleware.RequireBusinessContext)
	transactions.GET("/due-today", handler.DueTodayTransactions, middleware.RequireBusinessContext)
	transactions.POST("", handler.CreateTransaction)
	transactions.PUT("/:id", handler.UpdateTransaction)
	transactions.POST("/:id/confirm", handler.ConfirmTransaction)
	transactions.DELETE("/:id", handler.DeleteTransaction)

	// Bills
	bills := api.Group("/bills")
	bills.GET("", handler.ListBills, middleware.RequireBusinessContext)
	bills.GET("/due-today", handler.DueTodayBills, middleware.RequireBusinessContext)
	bills.POST("", handler.CreateBill)
	bills.PUT("/:id", handler.UpdateBill)
	bills.POST("/:id/pay", handler.PayBill)
	bills.DELETE("/:id", handler.DeleteBill)

	// Aggregates
	summary := api.Group("/summary")
	summary.Use(middleware.RequireBusinessContext)
	summary.GET("/cash-flow", handler.CashFlow)
	summary.GET("/categories", handler.CategoryBreakdown)
	summary.GET("/overview", handler.Overview)

	// Subscription plans and payments
	api.GET("/plans", handler.ListPlans)

	payments := api.Group("/payments")
	payments.POST("", handler.CreatePaymentIntent)
	payments.GET("/:id/status", handler.GetPaymentStatus)
	payments.POST("/sync", handler.SyncLatestPending)
	payments.POST("/:id/simulate", handler.SimulateSettlement)

	// Get server port from configuration
	port := cfg.Server.Port

	// Start server
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
