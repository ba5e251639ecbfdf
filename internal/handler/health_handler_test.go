package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"validation-service/pkg/database"

	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	e := setupTest(t)

	rec := httptest.NewRecorder()
	require.NoError(t, HealthCheck(e.NewContext(jsonRequest(http.MethodGet, "/health", ""), rec)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "healthy")
	require.Contains(t, rec.Body.String(), "connected")
}

func TestHealthCheck_DatabaseDown(t *testing.T) {
	e := setupTest(t)

	sqlDB, err := database.GetDB().DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	rec := httptest.NewRecorder()
	require.NoError(t, HealthCheck(e.NewContext(jsonRequest(http.MethodGet, "/health", ""), rec)))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "unhealthy")
}
