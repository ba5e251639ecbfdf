package handler

import (
	"errors"
	"math"
	"net/http"
	"time"
	"validation-service/internal/middleware"
	"validation-service/internal/model"
	"validation-service/pkg/database"
	"validation-service/pkg/logger"
	"validation-service/pkg/omnidim"
	"validation-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// providerClient is the shared Omnidim bridge, installed at startup
var providerClient *omnidim.Client

// InitProvider installs the provider bridge used by the call handlers
func InitProvider(c *omnidim.Client) {
	providerClient = c
}

// InitiateCallRequest defines the call initiation payload
type InitiateCallRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
}

// CallStatusResponse is the ledger view of a validation call returned to clients
type CallStatusResponse struct {
	CallID      string        `json:"call_id"`
	Status      string        `json:"status"`
	Duration    *int          `json:"duration,omitempty"`
	Transcript  *string       `json:"transcript,omitempty"`
	Analysis    model.JSONMap `json:"analysis,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

func callStatusResponse(call *model.ValidationCall) CallStatusResponse {
	return CallStatusResponse{
		CallID:      call.CallID,
		Status:      call.Status,
		Duration:    call.Duration,
		Transcript:  call.Transcript,
		Analysis:    call.ExtractedVariables,
		CreatedAt:   call.CreatedAt,
		CompletedAt: call.CompletedAt,
	}
}

// InitiateCall dispatches a validation call through the provider and records
// it in the ledger. If the dispatch fails no row is written.
func InitiateCall(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCallOperation("initiate")

	founder := middleware.FounderFromContext(c)
	if founder == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
	}

	var req InitiateCallRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse initiate-call request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	defer prometheus.TrackProviderRequest("dispatch")(time.Now())
	dispatch, err := providerClient.DispatchCall(req.PhoneNumber, founder)
	if err != nil {
		var upstream *omnidim.UpstreamError
		switch {
		case errors.Is(err, omnidim.ErrUnreachable):
			log.Error("Omnidim unreachable during dispatch", zap.Error(err))
			prometheus.RecordProviderRequest("dispatch", "unreachable")
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to connect to omnidim: " + err.Error()})
		case errors.As(err, &upstream):
			log.Error("Omnidim rejected dispatch",
				zap.Int("upstream_status", upstream.StatusCode),
				zap.String("upstream_body", upstream.Body))
			prometheus.RecordProviderRequest("dispatch", "upstream_error")
			return c.JSON(upstream.StatusCode, echo.Map{"error": "failed to create call: " + upstream.Body})
		default:
			log.Error("Failed to initiate validation call", zap.Error(err))
			prometheus.RecordProviderRequest("dispatch", "upstream_error")
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to initiate validation call: " + err.Error()})
		}
	}
	prometheus.RecordProviderRequest("dispatch", "success")

	// The ledger key is derived from the provider's identifier so webhook
	// deliveries can be matched back to this row
	callID := "omnidim-" + dispatch.RequestID

	call := model.ValidationCall{
		FounderID:   founder.ID,
		CallID:      callID,
		PhoneNumber: req.PhoneNumber,
		Status:      model.CallStatusInitiated,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&call); result.Error != nil {
		log.Error("Failed to record validation call",
			zap.String("call_id", callID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record validation call"})
	}

	// The response carries the provider's own status (e.g. "queued") even
	// though the ledger row starts out as initiated
	status := dispatch.Status
	if status == "" {
		status = model.CallStatusInitiated
	}

	log.Info("Validation call initiated",
		zap.String("call_id", callID),
		zap.Uint("founder_id", founder.ID),
		zap.String("provider_status", status))
	return c.JSON(http.StatusCreated, echo.Map{
		"call_id":      callID,
		"status":       status,
		"message":      "Validation call initiated successfully",
		"phone_number": req.PhoneNumber,
		"scheduled_at": time.Now().UTC(),
	})
}

// ListCalls returns the founder's validation calls, newest first
func ListCalls(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCallOperation("list")

	founder := middleware.FounderFromContext(c)
	if founder == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
	}

	query := database.GetDB().Where("founder_id = ?", founder.ID)

	// Optional exact status filter
	if status := c.QueryParam("status"); status != "" {
		if err := model.ValidateStatus(status); err != nil {
			log.Warn("Invalid status filter", zap.String("status", status))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown call status"})
		}
		query = query.Where("status = ?", status)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var calls []model.ValidationCall
	if result := query.Order("created_at DESC").Find(&calls); result.Error != nil {
		log.Error("Failed to list validation calls", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve validation calls"})
	}

	responses := make([]CallStatusResponse, 0, len(calls))
	for i := range calls {
		responses = append(responses, callStatusResponse(&calls[i]))
	}

	log.Info("Validation calls listed", zap.Int("count", len(responses)))
	return c.JSON(http.StatusOK, responses)
}

// findOwnedCall fetches a call scoped to the founder. Absent and foreign rows
// are indistinguishable to the caller.
func findOwnedCall(founderID uint, callID string) (*model.ValidationCall, error) {
	var call model.ValidationCall
	result := database.GetDB().Where("call_id = ? AND founder_id = ?", callID, founderID).First(&call)
	if result.Error != nil {
		return nil, result.Error
	}
	return &call, nil
}

// GetCall returns a single validation call owned by the founder
func GetCall(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCallOperation("get")

	founder := middleware.FounderFromContext(c)
	if founder == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
	}

	callID := c.Param("call_id")

	defer prometheus.TrackDBOperation("query")(time.Now())
	call, err := findOwnedCall(founder.ID, callID)
	if err != nil {
		log.Error("Validation call not found", zap.String("call_id", callID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "validation call not found"})
	}

	return c.JSON(http.StatusOK, callStatusResponse(call))
}

// CancelCall cancels a non-terminal call. Provider failures do not abort the
// local cancellation: the ledger always converges to cancelled once the user
// asks, even if the remote side is unreachable.
func CancelCall(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCallOperation("cancel")

	founder := middleware.FounderFromContext(c)
	if founder == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
	}

	callID := c.Param("call_id")

	call, err := findOwnedCall(founder.ID, callID)
	if err != nil {
		log.Error("Validation call not found for cancel", zap.String("call_id", callID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "validation call not found"})
	}

	if call.IsTerminal() {
		log.Warn("Cancel attempted on terminal call",
			zap.String("call_id", callID),
			zap.String("status", call.Status))
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot cancel a completed or failed call"})
	}

	defer prometheus.TrackProviderRequest("cancel")(time.Now())
	cancelErr := providerClient.CancelCall(callID)
	if cancelErr != nil {
		log.Warn("Provider cancellation failed, cancelling locally",
			zap.String("call_id", callID),
			zap.Error(cancelErr))
		prometheus.RecordProviderRequest("cancel", "unreachable")
	} else {
		prometheus.RecordProviderRequest("cancel", "success")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	result := database.GetDB().Model(&model.ValidationCall{}).
		Where("call_id = ?", callID).
		Update("status", model.CallStatusCancelled)
	if result.Error != nil {
		log.Error("Failed to mark call cancelled", zap.String("call_id", callID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel validation call"})
	}

	if cancelErr != nil {
		return c.JSON(http.StatusOK, echo.Map{
			"message": "Call cancelled locally, but provider cancellation may have failed",
		})
	}

	log.Info("Validation call cancelled", zap.String("call_id", callID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Validation call cancelled successfully"})
}

// CallStatus proxies the provider's real-time view of a call
func CallStatus(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCallOperation("status")

	callID := c.Param("call_id")

	defer prometheus.TrackProviderRequest("status")(time.Now())
	body, err := providerClient.GetCall(callID)
	if err != nil {
		var upstream *omnidim.UpstreamError
		switch {
		case errors.Is(err, omnidim.ErrCallNotFound):
			prometheus.RecordProviderRequest("status", "success")
			return c.JSON(http.StatusNotFound, echo.Map{"error": "call not found"})
		case errors.Is(err, omnidim.ErrUnreachable):
			log.Error("Omnidim unreachable during status fetch", zap.Error(err))
			prometheus.RecordProviderRequest("status", "unreachable")
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to connect to omnidim: " + err.Error()})
		case errors.As(err, &upstream):
			log.Error("Omnidim status fetch failed",
				zap.Int("upstream_status", upstream.StatusCode),
				zap.String("upstream_body", upstream.Body))
			prometheus.RecordProviderRequest("status", "upstream_error")
			return c.JSON(upstream.StatusCode, echo.Map{"error": "failed to get call status: " + upstream.Body})
		default:
			log.Error("Failed to get call status", zap.Error(err))
			prometheus.RecordProviderRequest("status", "upstream_error")
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to get call status"})
		}
	}
	prometheus.RecordProviderRequest("status", "success")

	return c.JSONBlob(http.StatusOK, body)
}

// AnalyticsSummary aggregates the founder's call outcomes and feedback scores
func AnalyticsSummary(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCallOperation("analytics")

	founder := middleware.FounderFromContext(c)
	if founder == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var stats struct {
		TotalCalls     int64
		CompletedCalls int64
		FailedCalls    int64
		ActiveCalls    int64
		AvgDuration    *float64
	}
	result := database.GetDB().Model(&model.ValidationCall{}).
		Select(`COUNT(*) as total_calls,
			COUNT(CASE WHEN status = 'completed' THEN 1 END) as completed_calls,
			COUNT(CASE WHEN status = 'failed' THEN 1 END) as failed_calls,
			COUNT(CASE WHEN status = 'in_progress' THEN 1 END) as active_calls,
			AVG(duration) as avg_duration`).
		Where("founder_id = ?", founder.ID).
		Scan(&stats)
	if result.Error != nil {
		log.Error("Failed to aggregate call statistics", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute analytics"})
	}

	var recent []model.ValidationCall
	result = database.GetDB().
		Where("founder_id = ?", founder.ID).
		Order("created_at DESC").
		Limit(5).
		Find(&recent)
	if result.Error != nil {
		log.Error("Failed to load recent calls", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute analytics"})
	}

	// Average the feedback scores the provider extracted; non-numeric or
	// missing values are excluded rather than counted as zero
	var scoreSum float64
	var scoreCount int
	for i := range recent {
		if score, ok := recent[i].ExtractedVariables.FeedbackScore(); ok {
			scoreSum += score
			scoreCount++
		}
	}

	var avgFeedbackScore *float64
	if scoreCount > 0 {
		rounded := math.Round(scoreSum/float64(scoreCount)*100) / 100
		avgFeedbackScore = &rounded
	}

	var avgDuration *int
	if stats.AvgDuration != nil {
		d := int(*stats.AvgDuration)
		avgDuration = &d
	}

	recentValidations := make([]echo.Map, 0, len(recent))
	for i := range recent {
		var feedbackScore interface{}
		if recent[i].ExtractedVariables != nil {
			feedbackScore = recent[i].ExtractedVariables["feedback_score"]
		}
		recentValidations = append(recentValidations, echo.Map{
			"startup_name":   recent[i].StartupName,
			"status":         recent[i].Status,
			"feedback_score": feedbackScore,
			"validated_at":   recent[i].CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total_calls":            stats.TotalCalls,
		"completed_calls":        stats.CompletedCalls,
		"failed_calls":           stats.FailedCalls,
		"active_calls":           stats.ActiveCalls,
		"average_duration":       avgDuration,
		"average_feedback_score": avgFeedbackScore,
		"recent_validations":     recentValidations,
	})
}
