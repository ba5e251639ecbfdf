package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"validation-service/internal/model"
	"validation-service/pkg/database"

	"github.com/stretchr/testify/require"
)

func TestProviderWebhook_AppliesCompletion(t *testing.T) {
	e := setupTest(t)
	founder := createFounder(t, "ada@example.com")
	createCall(t, founder.ID, "omnidim-123", model.CallStatusInProgress)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/validation/webhook", `{
		"call_id": 123,
		"bot_id": 2848,
		"bot_name": "Startup Validator",
		"phone_number": "+15551234567",
		"call_date": "2024-01-02 15:04:05",
		"call_report": {
			"summary": "Positive validation call",
			"full_conversation": "Agent: hello\nFounder: hi",
			"extracted_variables": {"feedback_score": 4.2, "sentiment": "positive"}
		}
	}`), rec)
	require.NoError(t, ProviderWebhook(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "success")

	var call model.ValidationCall
	require.NoError(t, database.GetDB().Where("call_id = ?", "omnidim-123").First(&call).Error)
	require.Equal(t, model.CallStatusCompleted, call.Status)
	require.NotNil(t, call.Transcript)
	require.Equal(t, "Agent: hello\nFounder: hi", *call.Transcript)

	score, ok := call.ExtractedVariables.FeedbackScore()
	require.True(t, ok)
	require.Equal(t, 4.2, score)

	require.NotNil(t, call.CompletedAt)
	want := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	require.WithinDuration(t, want, *call.CompletedAt, time.Second)
}

func TestProviderWebhook_UnknownCallIsAcknowledgedNoOp(t *testing.T) {
	e := setupTest(t)
	founder := createFounder(t, "ada@example.com")
	// Ledger holds a string-derived identifier; a numeric provider id must
	// not be treated as a match for it
	createCall(t, founder.ID, "omnidim-abc123", model.CallStatusInitiated)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/validation/webhook",
		`{"call_id": 123, "call_date": "2024-01-02 15:04:05"}`), rec)
	require.NoError(t, ProviderWebhook(c))

	// Delivery is acknowledged so the provider stops retrying
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "success")

	// But no row was touched
	var call model.ValidationCall
	require.NoError(t, database.GetDB().Where("call_id = ?", "omnidim-abc123").First(&call).Error)
	require.Equal(t, model.CallStatusInitiated, call.Status)
	require.Nil(t, call.Transcript)
	require.Nil(t, call.CompletedAt)
}

func TestProviderWebhook_MissingReportStillCompletes(t *testing.T) {
	e := setupTest(t)
	founder := createFounder(t, "ada@example.com")
	createCall(t, founder.ID, "omnidim-456", model.CallStatusInProgress)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/validation/webhook",
		`{"call_id": 456, "call_date": "2024-01-02T15:04:05Z"}`), rec)
	require.NoError(t, ProviderWebhook(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var call model.ValidationCall
	require.NoError(t, database.GetDB().Where("call_id = ?", "omnidim-456").First(&call).Error)
	require.Equal(t, model.CallStatusCompleted, call.Status)
	require.Nil(t, call.Transcript)
	require.Nil(t, call.ExtractedVariables)
}

func TestProviderWebhook_MalformedBodyRejected(t *testing.T) {
	e := setupTest(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/validation/webhook", `{"call_id": "not-a-number"`), rec)
	require.NoError(t, ProviderWebhook(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseCallDate(t *testing.T) {
	cases := []struct {
		value string
		want  time.Time
	}{
		{"2024-01-02T15:04:05Z", time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)},
		{"2024-01-02T15:04:05.123Z", time.Date(2024, 1, 2, 15, 4, 5, 123000000, time.UTC)},
		{"2024-01-02T15:04:05", time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)},
		{"2024-01-02 15:04:05", time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)},
		{"2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got := parseCallDate(tc.value)
		require.True(t, got.Equal(tc.want), "layout for %q", tc.value)
	}

	// Unparseable dates fall back to receipt time instead of failing
	got := parseCallDate("next tuesday")
	require.WithinDuration(t, time.Now().UTC(), got, 5*time.Second)
}
