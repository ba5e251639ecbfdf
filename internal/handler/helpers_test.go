package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"validation-service/internal/middleware"
	"validation-service/internal/model"
	"validation-service/pkg/config"
	"validation-service/pkg/database"
	"validation-service/pkg/jwtutil"
	"validation-service/pkg/validator"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testPassword = "secretpass123"

func setupTest(t *testing.T) *echo.Echo {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	require.NoError(t, db.AutoMigrate(&model.Founder{}, &model.ValidationCall{}))

	database.DB = db
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "test-secret", ExpirationMinutes: 30})

	e := echo.New()
	e.Validator = validator.New()
	return e
}

func createFounder(t *testing.T, email string) *model.Founder {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	founder := &model.Founder{
		Email:     email,
		Password:  string(hash),
		FirstName: "Ada",
		LastName:  "Lovelace",
		IsActive:  true,
	}
	require.NoError(t, database.GetDB().Create(founder).Error)
	return founder
}

func createCall(t *testing.T, founderID uint, callID, status string) *model.ValidationCall {
	t.Helper()

	call := &model.ValidationCall{
		FounderID:   founderID,
		CallID:      callID,
		PhoneNumber: "+15551234567",
		Status:      status,
	}
	require.NoError(t, database.GetDB().Create(call).Error)
	return call
}

func jsonRequest(method, target, body string) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

// authedContext builds a context as AuthMiddleware would leave it
func authedContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, founder *model.Founder) echo.Context {
	c := e.NewContext(req, rec)
	c.Set(middleware.FounderContextKey, founder)
	return c
}
