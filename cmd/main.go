package main

import (
	"validation-service/internal/handler"
	"validation-service/internal/middleware"
	"validation-service/pkg/config"
	"validation-service/pkg/database"
	"validation-service/pkg/jwtutil"
	"validation-service/pkg/logger"
	"validation-service/pkg/omnidim"
	"validation-service/pkg/validator"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"validation-service/prometheus"
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
	log.Info("Starting validation service...", zap.String("environment", cfg.Server.Env))

	// Initialize database; table creation is idempotent
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility with the injected signing configuration
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	// Initialize the Omnidim provider bridge
	handler.InitProvider(omnidim.NewClient(&cfg.Omnidim))
	log.Info("Omnidim client initialized", zap.String("base_url", cfg.Omnidim.BaseURL))

	// Initialize Echo framework
	e := echo.New()
	e.Validator = validator.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover()) // Add recovery middleware
	e.Use(echomiddleware.CORS())    // Add CORS middleware
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/", handler.Root)
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes - these don't belong under the protected groups
	// since they're for getting access to the API
	auth := e.Group("/auth")
	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.Login)
	auth.GET("/me", handler.GetProfile, middleware.AuthMiddleware)
	auth.POST("/logout", handler.Logout, middleware.AuthMiddleware)

	// Validation call routes - all require authentication except the webhook
	validation := e.Group("/validation")
	validation.POST("/webhook", handler.ProviderWebhook)

	calls := validation.Group("", middleware.AuthMiddleware)
	calls.POST("/initiate-call", handler.InitiateCall)
	calls.GET("/calls", handler.ListCalls)
	calls.GET("/calls/:call_id", handler.GetCall)
	calls.DELETE("/calls/:call_id", handler.CancelCall)
	calls.GET("/call-status/:call_id", handler.CallStatus)
	calls.GET("/analytics/summary", handler.AnalyticsSummary)

	// Get server port from configuration
	port := cfg.Server.Port

	// Start server
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
