package calls

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores call records in the relational database.
type PostgresRepository struct {
	pool rowQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("calls: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newRepositoryWithQuerier(q rowQuerier) *PostgresRepository {
	if q == nil {
		panic("calls: querier required")
	}
	return &PostgresRepository{pool: q}
}

const callColumns = `
	id, vapi_call_id, organization_id, campaign_id, lead_id, customer_phone,
	assistant_id, status, started_at, ended_at, duration_seconds, cost_usd,
	recording_url, transcript, outcome, sentiment_score, ai_summary,
	ai_analysis, created_at, updated_at`

// FindByAnyID fetches a call by provider call id or internal record id.
func (r *PostgresRepository) FindByAnyID(ctx context.Context, id string) (*CallRecord, error) {
	if id == "" {
		return nil, ErrCallNotFound
	}
	query := `
		SELECT` + callColumns + `
		FROM calls
		WHERE vapi_call_id = $1 OR id::text = $1
	`
	rec, err := scanCall(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCallNotFound
		}
		return nil, fmt.Errorf("calls: find by id: %w", err)
	}
	return rec, nil
}

// Upsert inserts or merges a call keyed by provider call id. Populated
// fields on the existing row survive empty fields on the incoming record,
// so late or repeated events cannot regress data.
func (r *PostgresRepository) Upsert(ctx context.Context, rec CallRecord) (*CallRecord, error) {
	if rec.VapiCallID == "" {
		return nil, ErrMissingProviderID
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	query := `
		INSERT INTO calls (
			id, vapi_call_id, organization_id, campaign_id, lead_id,
			customer_phone, assistant_id, status, started_at, ended_at,
			duration_seconds, cost_usd, recording_url, transcript, outcome,
			sentiment_score, ai_summary, ai_analysis
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (vapi_call_id) DO UPDATE SET
			organization_id  = COALESCE(NULLIF(EXCLUDED.organization_id, ''), calls.organization_id),
			campaign_id      = COALESCE(NULLIF(EXCLUDED.campaign_id, ''), calls.campaign_id),
			lead_id          = COALESCE(NULLIF(EXCLUDED.lead_id, ''), calls.lead_id),
			customer_phone   = COALESCE(NULLIF(EXCLUDED.customer_phone, ''), calls.customer_phone),
			assistant_id     = COALESCE(NULLIF(EXCLUDED.assistant_id, ''), calls.assistant_id),
			status           = COALESCE(NULLIF(EXCLUDED.status, ''), calls.status),
			started_at       = COALESCE(EXCLUDED.started_at, calls.started_at),
			ended_at         = COALESCE(EXCLUDED.ended_at, calls.ended_at),
			duration_seconds = GREATEST(calls.duration_seconds, EXCLUDED.duration_seconds),
			cost_usd         = CASE WHEN EXCLUDED.cost_usd > 0 THEN EXCLUDED.cost_usd ELSE calls.cost_usd END,
			recording_url    = COALESCE(NULLIF(EXCLUDED.recording_url, ''), calls.recording_url),
			transcript       = COALESCE(NULLIF(EXCLUDED.transcript, ''), calls.transcript),
			outcome          = COALESCE(NULLIF(EXCLUDED.outcome, ''), calls.outcome),
			sentiment_score  = COALESCE(EXCLUDED.sentiment_score, calls.sentiment_score),
			ai_summary       = COALESCE(NULLIF(EXCLUDED.ai_summary, ''), calls.ai_summary),
			ai_analysis      = COALESCE(EXCLUDED.ai_analysis, calls.ai_analysis),
			updated_at       = now()
		RETURNING` + callColumns + `
	`
	merged, err := scanCall(r.pool.QueryRow(ctx, query,
		rec.ID,
		rec.VapiCallID,
		rec.OrganizationID,
		rec.CampaignID,
		rec.LeadID,
		rec.CustomerPhone,
		rec.AssistantID,
		string(rec.Status),
		rec.StartedAt,
		rec.EndedAt,
		rec.DurationSeconds,
		rec.CostUSD,
		rec.RecordingURL,
		rec.Transcript,
		string(rec.Outcome),
		rec.SentimentScore,
		rec.AISummary,
		rec.AIAnalysis,
	))
	if err != nil {
		return nil, fmt.Errorf("calls: upsert: %w", err)
	}
	return merged, nil
}

func scanCall(row pgx.Row) (*CallRecord, error) {
	var rec CallRecord
	if err := row.Scan(
		&rec.ID,
		&rec.VapiCallID,
		&rec.OrganizationID,
		&rec.CampaignID,
		&rec.LeadID,
		&rec.CustomerPhone,
		&rec.AssistantID,
		&rec.Status,
		&rec.StartedAt,
		&rec.EndedAt,
		&rec.DurationSeconds,
		&rec.CostUSD,
		&rec.RecordingURL,
		&rec.Transcript,
		&rec.Outcome,
		&rec.SentimentScore,
		&rec.AISummary,
		&rec.AIAnalysis,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}
