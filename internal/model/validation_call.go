package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Validation call lifecycle statuses
const (
	CallStatusInitiated  = "initiated"
	CallStatusInProgress = "in_progress"
	CallStatusCompleted  = "completed"
	CallStatusFailed     = "failed"
	CallStatusCancelled  = "cancelled"
)

// JSONMap stores an open JSON object column. The provider defines the schema,
// so keys are not fixed; feedback_score is the only key this service reads.
type JSONMap map[string]interface{}

// Value implements driver.Valuer
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSONMap: %T", value)
	}

	return json.Unmarshal(data, m)
}

// FeedbackScore extracts the provider's feedback_score if it is numeric or a
// numeric string. The second return reports whether a usable score was found.
func (m JSONMap) FeedbackScore() (float64, bool) {
	if m == nil {
		return 0, false
	}

	raw, ok := m["feedback_score"]
	if !ok {
		return 0, false
	}

	switch v := raw.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ValidationCall records the lifecycle of a single startup validation call
type ValidationCall struct {
	ID                 uint       `json:"id" gorm:"primaryKey"`
	FounderID          uint       `json:"founder_id" gorm:"index;not null"`
	Founder            *Founder   `json:"-" gorm:"foreignKey:FounderID;constraint:OnDelete:CASCADE"`
	CallID             string     `json:"call_id" gorm:"type:varchar(255);uniqueIndex;not null"`
	PhoneNumber        string     `json:"phone_number" gorm:"type:varchar(20);not null"`
	StartupName        string     `json:"startup_name" gorm:"type:varchar(255)"`
	Industry           string     `json:"industry" gorm:"type:varchar(100)"`
	BusinessModel      string     `json:"business_model" gorm:"type:text"`
	TargetMarket       string     `json:"target_market" gorm:"type:text"`
	AdditionalContext  string     `json:"additional_context" gorm:"type:text"`
	Status             string     `json:"status" gorm:"type:varchar(50);index;default:'initiated'"`
	Duration           *int       `json:"duration,omitempty"`
	Transcript         *string    `json:"transcript,omitempty" gorm:"type:text"`
	ExtractedVariables JSONMap    `json:"extracted_variables,omitempty" gorm:"type:jsonb"`
	CreatedAt          time.Time  `json:"created_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName overrides the default table name
func (ValidationCall) TableName() string {
	return "validation_calls"
}

// IsTerminal reports whether the call can no longer be cancelled
func (v *ValidationCall) IsTerminal() bool {
	return v.Status == CallStatusCompleted || v.Status == CallStatusFailed
}

// ErrInvalidStatus is returned when a status filter is not a known lifecycle state
var ErrInvalidStatus = errors.New("unknown call status")

// ValidateStatus checks a status filter against the known lifecycle states
func ValidateStatus(status string) error {
	switch status {
	case CallStatusInitiated, CallStatusInProgress, CallStatusCompleted, CallStatusFailed, CallStatusCancelled:
		return nil
	default:
		return ErrInvalidStatus
	}
}
