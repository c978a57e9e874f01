package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RunRecord is the persisted outcome of one pipeline run over a claim document.
type RunRecord struct {
	ID           uuid.UUID       `json:"id"`
	RequestID    string          `json:"request_id"`
	FileName     string          `json:"file_name"`
	MimeType     *string         `json:"mime_type,omitempty"`
	SizeBytes    int64           `json:"size_bytes"`
	Stage        string          `json:"stage"`
	Status       string          `json:"status"`
	FailedStep   *string         `json:"failed_step,omitempty"`
	ErrorClass   *string         `json:"error_class,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	LLMSource    *string         `json:"llm_source,omitempty"`
	Prediction   *string         `json:"prediction,omitempty"`
	Probability  *float64        `json:"probability,omitempty"`
	RiskScore    *float64        `json:"risk_score,omitempty"`
	ModelInput   json.RawMessage `json:"model_input,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
}

// Duration is the wall time between start and finish.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
