package campaigns

import "time"

// Campaign is a calling campaign owned by an organization.
type Campaign struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Lead is a dialable contact belonging to a campaign.
type Lead struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	Phone      string    `json:"phone"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}
