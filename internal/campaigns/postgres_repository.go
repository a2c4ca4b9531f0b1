package campaigns

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository reads campaigns and leads from the relational database.
type PostgresRepository struct {
	pool querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("campaigns: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newRepositoryWithQuerier(q querier) *PostgresRepository {
	if q == nil {
		panic("campaigns: querier required")
	}
	return &PostgresRepository{pool: q}
}

// ListCampaignIDsByOrg returns the ids of every campaign in the org.
func (r *PostgresRepository) ListCampaignIDsByOrg(ctx context.Context, orgID string) ([]string, error) {
	query := `
		SELECT id
		FROM campaigns
		WHERE organization_id = $1
	`
	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("campaigns: list by org: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("campaigns: scan campaign id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListLeadsByCampaignIDs returns every lead in the given campaigns.
func (r *PostgresRepository) ListLeadsByCampaignIDs(ctx context.Context, campaignIDs []string) ([]Lead, error) {
	if len(campaignIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, campaign_id, phone, first_name, last_name, status, created_at
		FROM leads
		WHERE campaign_id = ANY($1)
	`
	rows, err := r.pool.Query(ctx, query, campaignIDs)
	if err != nil {
		return nil, fmt.Errorf("campaigns: list leads: %w", err)
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		var lead Lead
		if err := rows.Scan(
			&lead.ID,
			&lead.CampaignID,
			&lead.Phone,
			&lead.FirstName,
			&lead.LastName,
			&lead.Status,
			&lead.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("campaigns: scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}
