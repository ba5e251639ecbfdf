package handler

import (
	"net/http"
	"validation-service/pkg/database"
	"validation-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HealthCheck probes storage connectivity
func HealthCheck(c echo.Context) error {
	log := logger.FromContext(c)

	sqlDB, err := database.GetDB().DB()
	if err != nil {
		log.Error("Database connection error", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status": "unhealthy",
			"error":  "database connection failed: " + err.Error(),
		})
	}

	if err := sqlDB.Ping(); err != nil {
		log.Error("Database ping error", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status": "unhealthy",
			"error":  "database connection failed: " + err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   "healthy",
		"database": "connected",
	})
}

// Root returns a simple service banner
func Root(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Validation Service API",
		"version": "1.0.0",
	})
}
