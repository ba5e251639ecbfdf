package handler

import (
	"fmt"
	"net/http"
	"time"
	"validation-service/internal/model"
	"validation-service/pkg/database"
	"validation-service/pkg/logger"
	"validation-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CallReport is the provider's post-call analysis block
type CallReport struct {
	Summary            *string                  `json:"summary"`
	Sentiment          *string                  `json:"sentiment"`
	ExtractedVariables model.JSONMap            `json:"extracted_variables"`
	FullConversation   *string                  `json:"full_conversation"`
	Interactions       []map[string]interface{} `json:"interactions"`
}

// WebhookPayload is the fixed shape Omnidim posts when a call finishes
type WebhookPayload struct {
	CallID      int64       `json:"call_id"`
	BotID       int64       `json:"bot_id"`
	BotName     string      `json:"bot_name"`
	PhoneNumber string      `json:"phone_number"`
	CallDate    string      `json:"call_date"`
	UserEmail   string      `json:"user_email"`
	CallReport  *CallReport `json:"call_report"`
}

// callDateLayouts are tried in order when parsing the provider's call_date,
// which does not arrive in a single reliable format
var callDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
}

// parseCallDate parses the provider's loosely formatted call date, falling
// back to receipt time so a bad date never rejects the webhook
func parseCallDate(value string) time.Time {
	for _, layout := range callDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

// ProviderWebhook applies the provider's asynchronous completion callback to
// the call ledger. The endpoint carries no authentication; deliveries are
// logged with the remote address until the provider supports a signature.
func ProviderWebhook(c echo.Context) error {
	log := logger.FromContext(c)

	var payload WebhookPayload
	if err := c.Bind(&payload); err != nil {
		log.Error("Failed to parse webhook payload", zap.Error(err))
		prometheus.RecordWebhookDelivery("invalid")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid webhook payload"})
	}

	log.Warn("Unauthenticated webhook delivery accepted",
		zap.Int64("provider_call_id", payload.CallID),
		zap.String("remote_ip", c.RealIP()))

	completedAt := parseCallDate(payload.CallDate)

	// The ledger key must match exactly, provider prefix included
	callID := fmt.Sprintf("omnidim-%d", payload.CallID)

	var transcript *string
	var extracted model.JSONMap
	if payload.CallReport != nil {
		transcript = payload.CallReport.FullConversation
		extracted = payload.CallReport.ExtractedVariables
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	result := database.GetDB().Model(&model.ValidationCall{}).
		Where("call_id = ?", callID).
		Updates(map[string]interface{}{
			"status":              model.CallStatusCompleted,
			"transcript":          transcript,
			"extracted_variables": extracted,
			"completed_at":        completedAt,
		})
	if result.Error != nil {
		log.Error("Failed to apply webhook", zap.String("call_id", callID), zap.Error(result.Error))
		prometheus.RecordWebhookDelivery("invalid")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to process webhook"})
	}

	// An unknown call identifier updates zero rows; the delivery is still
	// acknowledged so the provider does not keep retrying
	if result.RowsAffected == 0 {
		log.Warn("Webhook matched no ledger row", zap.String("call_id", callID))
		prometheus.RecordWebhookDelivery("unmatched")
	} else {
		log.Info("Webhook applied",
			zap.String("call_id", callID),
			zap.Int64("rows", result.RowsAffected))
		prometheus.RecordWebhookDelivery("applied")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"message": "Webhook processed successfully",
	})
}
