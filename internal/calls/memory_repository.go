package calls

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository is a Repository backed by a map, mirroring the merge
// semantics of the Postgres upsert. Used in tests and local development.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*CallRecord // keyed by provider call id
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[string]*CallRecord),
	}
}

// FindByAnyID retrieves a call by provider call id or internal id.
func (r *InMemoryRepository) FindByAnyID(ctx context.Context, id string) (*CallRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rec, ok := r.records[id]; ok {
		copied := *rec
		return &copied, nil
	}
	for _, rec := range r.records {
		if rec.ID.String() == id {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, ErrCallNotFound
}

// Upsert inserts or merges a record keyed by provider call id.
func (r *InMemoryRepository) Upsert(ctx context.Context, rec CallRecord) (*CallRecord, error) {
	if rec.VapiCallID == "" {
		return nil, ErrMissingProviderID
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := r.records[rec.VapiCallID]
	if !ok {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		rec.CreatedAt = now
		rec.UpdatedAt = now
		stored := rec
		r.records[rec.VapiCallID] = &stored
		copied := stored
		return &copied, nil
	}

	merge(existing, rec)
	existing.UpdatedAt = now
	copied := *existing
	return &copied, nil
}

func merge(dst *CallRecord, src CallRecord) {
	if src.OrganizationID != "" {
		dst.OrganizationID = src.OrganizationID
	}
	if src.CampaignID != "" {
		dst.CampaignID = src.CampaignID
	}
	if src.LeadID != "" {
		dst.LeadID = src.LeadID
	}
	if src.CustomerPhone != "" {
		dst.CustomerPhone = src.CustomerPhone
	}
	if src.AssistantID != "" {
		dst.AssistantID = src.AssistantID
	}
	if src.Status != "" {
		dst.Status = src.Status
	}
	if src.StartedAt != nil {
		dst.StartedAt = src.StartedAt
	}
	if src.EndedAt != nil {
		dst.EndedAt = src.EndedAt
	}
	if src.DurationSeconds > dst.DurationSeconds {
		dst.DurationSeconds = src.DurationSeconds
	}
	if src.CostUSD > 0 {
		dst.CostUSD = src.CostUSD
	}
	if src.RecordingURL != "" {
		dst.RecordingURL = src.RecordingURL
	}
	if src.Transcript != "" {
		dst.Transcript = src.Transcript
	}
	if src.Outcome != "" {
		dst.Outcome = src.Outcome
	}
	if src.SentimentScore != nil {
		dst.SentimentScore = src.SentimentScore
	}
	if src.AISummary != "" {
		dst.AISummary = src.AISummary
	}
	if src.AIAnalysis != nil {
		dst.AIAnalysis = src.AIAnalysis
	}
}
