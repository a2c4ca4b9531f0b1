package calls

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sheep1986/apex-sub005/internal/outcome"
)

// Status is the lifecycle state of a call attempt.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// CallRecord is the canonical row for one call attempt. Created on the
// first observation of a provider call id (webhook or sync) and mutated by
// every later event about the same call; never deleted by this subsystem.
//
// The UI references calls by either the internal id or the provider's
// VapiCallID, so lookups must check both columns.
type CallRecord struct {
	ID              uuid.UUID       `json:"id"`
	VapiCallID      string          `json:"vapi_call_id"`
	OrganizationID  string          `json:"organization_id"`
	CampaignID      string          `json:"campaign_id,omitempty"`
	LeadID          string          `json:"lead_id,omitempty"`
	CustomerPhone   string          `json:"customer_phone"`
	AssistantID     string          `json:"assistant_id,omitempty"`
	Status          Status          `json:"status"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	EndedAt         *time.Time      `json:"ended_at,omitempty"`
	DurationSeconds int             `json:"duration_seconds"`
	CostUSD         float64         `json:"cost_usd"`
	RecordingURL    string          `json:"recording_url,omitempty"`
	Transcript      string          `json:"transcript,omitempty"`
	Outcome         outcome.Outcome `json:"outcome,omitempty"`
	SentimentScore  *float64        `json:"sentiment_score,omitempty"`
	AISummary       string          `json:"ai_summary,omitempty"`
	AIAnalysis      json.RawMessage `json:"ai_analysis,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
