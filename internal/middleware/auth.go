package middleware

import (
	"net/http"
	"strings"
	"time"
	"validation-service/internal/model"
	"validation-service/pkg/database"
	"validation-service/pkg/jwtutil"
	"validation-service/pkg/logger"
	"validation-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// FounderContextKey is the context key holding the authenticated founder
const FounderContextKey = "founder"

// AuthMiddleware validates the JWT token from the Authorization header and
// resolves the active founder it identifies. The founder lookup is a point
// read on every authenticated request.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Error("Missing Authorization header")
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Error("Invalid Authorization header format")
			prometheus.RecordAuthError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		// Validate the token
		claims, err := jwtutil.ValidateToken(parts[1])
		if err != nil {
			log.Error("Invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
		}

		// The token only names an email; the account behind it must still exist
		// and be active
		defer prometheus.TrackDBOperation("query")(time.Now())
		var founder model.Founder
		result := database.GetDB().Where("email = ? AND is_active = ?", claims.Email, true).First(&founder)
		if result.Error != nil {
			log.Error("No active founder for token subject", zap.String("email", claims.Email))
			prometheus.RecordAuthError("founder_not_found")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
		}

		// Store founder in context for handlers
		c.Set(FounderContextKey, &founder)

		return next(c)
	}
}

// FounderFromContext returns the authenticated founder stored by AuthMiddleware
func FounderFromContext(c echo.Context) *model.Founder {
	founder, _ := c.Get(FounderContextKey).(*model.Founder)
	return founder
}
