package campaigns

import "context"

// Repository defines the read surface the reconciliation pipeline needs
// from the campaign/lead tables. The tables themselves are owned by the
// dashboard CRUD layer.
type Repository interface {
	ListCampaignIDsByOrg(ctx context.Context, orgID string) ([]string, error)
	ListLeadsByCampaignIDs(ctx context.Context, campaignIDs []string) ([]Lead, error)
}
