package omnidim

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"validation-service/internal/model"
	"validation-service/pkg/config"
)

// Sentinel errors for the provider bridge
var (
	// ErrCallNotFound is returned when the provider does not know the call
	ErrCallNotFound = errors.New("omnidim call not found")
	// ErrUnreachable wraps transport-level failures (DNS, timeout, reset)
	ErrUnreachable = errors.New("omnidim unreachable")
)

// UpstreamError carries a non-success provider response with its raw body
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("omnidim returned %d: %s", e.StatusCode, e.Body)
}

// DispatchResponse is the provider's answer to a call-dispatch request.
// Omnidim names the generated identifier requestId, not id.
type DispatchResponse struct {
	RequestID string
	Status    string
}

// callContext is the contextual metadata sent with a dispatch request
type callContext struct {
	CustomerName string `json:"customer_name"`
	AccountID    string `json:"account_id"`
	Priority     string `json:"priority"`
}

type dispatchRequest struct {
	AgentID     int         `json:"agent_id"`
	ToNumber    string      `json:"to_number"`
	CallContext callContext `json:"call_context"`
}

// Client talks to the Omnidim voice-agent API
type Client struct {
	BaseURL    string
	APIKey     string
	AgentID    int
	HTTPClient *http.Client
}

// NewClient creates a provider client from injected configuration
func NewClient(cfg *config.OmnidimConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		AgentID:    cfg.AgentID,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// DispatchCall asks the provider to place a validation call to the founder
func (c *Client) DispatchCall(phoneNumber string, founder *model.Founder) (*DispatchResponse, error) {
	payload := dispatchRequest{
		AgentID:  c.AgentID,
		ToNumber: phoneNumber,
		CallContext: callContext{
			CustomerName: founder.DisplayName(),
			AccountID:    fmt.Sprintf("FOUNDR-%d", founder.ID),
			Priority:     "high",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/calls/dispatch", c.BaseURL), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return parseDispatchResponse(respBody)
}

// GetCall fetches the provider's raw status payload for a call
func (c *Client) GetCall(callID string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/calls/%s", c.BaseURL, callID), nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrCallNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// CancelCall asks the provider to cancel a call. Callers must treat a returned
// error as advisory: the local ledger is still marked cancelled.
func (c *Client) CancelCall(callID string) error {
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/calls/%s", c.BaseURL, callID), nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

// parseDispatchResponse reads the requestId field, which the provider may send
// as either a JSON string or a number
func parseDispatchResponse(body []byte) (*DispatchResponse, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid omnidim dispatch response: %w", err)
	}

	var requestID string
	switch v := raw["requestId"].(type) {
	case string:
		requestID = v
	case json.Number:
		requestID = v.String()
	}

	if requestID == "" {
		return nil, fmt.Errorf("omnidim did not return a requestId: %s", string(body))
	}

	status, _ := raw["status"].(string)

	return &DispatchResponse{RequestID: requestID, Status: status}, nil
}
