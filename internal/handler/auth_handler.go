package handler

import (
	"net/http"
	"time"
	"validation-service/internal/middleware"
	"validation-service/internal/model"
	"validation-service/pkg/database"
	"validation-service/pkg/jwtutil"
	"validation-service/pkg/logger"
	"validation-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// RegisterRequest defines the founder registration payload
type RegisterRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=8"`
	FirstName   string  `json:"first_name" validate:"required"`
	LastName    string  `json:"last_name" validate:"required"`
	CompanyName *string `json:"company_name,omitempty"`
	Industry    *string `json:"industry,omitempty"`
}

// LoginRequest defines the login payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		log.Error("Invalid registration data", zap.String("email", req.Email))
		prometheus.RecordAuthError("incomplete_registration")
		return err
	}

	// Check if founder already exists - track DB query
	defer prometheus.TrackDBOperation("query")(time.Now())
	var existing model.Founder
	result := database.GetDB().Where("email = ?", req.Email).First(&existing)
	if result.Error == nil {
		log.Error("Founder already exists", zap.String("email", req.Email))
		prometheus.RecordAuthError("email_already_exists")
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		prometheus.RecordAuthError("password_hash_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	founder := model.Founder{
		Email:       req.Email,
		Password:    string(hashedPassword),
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		CompanyName: req.CompanyName,
		Industry:    req.Industry,
		IsActive:    true,
	}

	// Save to database - track DB insert operation
	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&founder); result.Error != nil {
		log.Error("Failed to create founder", zap.Error(result.Error))
		prometheus.RecordAuthError("founder_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	// Issue a session token right away so the client can skip a login round trip
	token, err := jwtutil.GenerateToken(founder.Email)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	prometheus.IncreaseActiveTokens()

	log.Info("Founder registered", zap.String("email", founder.Email), zap.Uint("founder_id", founder.ID))
	return c.JSON(http.StatusCreated, echo.Map{
		"message":      "Founder registered successfully",
		"access_token": token,
		"token_type":   "bearer",
		"founder_id":   founder.ID,
	})
}

func Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return err
	}

	// Find active founder in database - track DB operation duration.
	// Unknown email, deactivated account and wrong password all return the
	// same error so the response never reveals which emails are registered.
	defer prometheus.TrackDBOperation("query")(time.Now())
	var founder model.Founder
	result := database.GetDB().Where("email = ? AND is_active = ?", req.Email, true).First(&founder)
	if result.Error != nil {
		log.Error("Founder not found or inactive", zap.String("email", req.Email))
		prometheus.RecordAuthError("founder_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "incorrect email or password"})
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(founder.Password), []byte(req.Password)); err != nil {
		log.Error("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "incorrect email or password"})
	}

	// Generate JWT token
	token, err := jwtutil.GenerateToken(founder.Email)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	prometheus.IncreaseActiveTokens()

	log.Info("Founder logged in", zap.String("email", founder.Email))
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// GetProfile returns the authenticated founder's own profile
func GetProfile(c echo.Context) error {
	log := logger.FromContext(c)

	founder := middleware.FounderFromContext(c)
	if founder == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
	}

	log.Info("Profile accessed", zap.String("email", founder.Email))
	return c.JSON(http.StatusOK, founder)
}

// Logout is stateless: no token blacklist exists, the client discards the token
func Logout(c echo.Context) error {
	prometheus.DecreaseActiveTokens()
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Logged out successfully. Please remove the token from client storage.",
	})
}

func MetricsHandler(c echo.Context) error {
	handler := prometheus.GetPrometheusHandler()
	handler.ServeHTTP(c.Response(), c.Request())
	return nil
}
