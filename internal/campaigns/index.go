package campaigns

import "github.com/sheep1986/apex-sub005/internal/phone"

// Attribution is the campaign/lead a call resolves to. Both fields empty is
// a valid result: an unmatched call, not an error.
type Attribution struct {
	CampaignID string
	LeadID     string
}

// PhoneIndex maps normalized phone digits to the owning campaign and lead.
// Built per batch, never cached across invocations.
type PhoneIndex map[string]Attribution

// BuildPhoneIndex indexes leads by their normalized phone number. Leads
// without usable digits are skipped; when two leads share a number the
// later one wins. Best-effort heuristic, not a uniqueness guarantee.
func BuildPhoneIndex(leads []Lead) PhoneIndex {
	index := make(PhoneIndex, len(leads))
	for _, lead := range leads {
		key := phone.Normalize(lead.Phone)
		if key == "" {
			continue
		}
		index[key] = Attribution{CampaignID: lead.CampaignID, LeadID: lead.ID}
	}
	return index
}

// Match resolves the campaign and lead for a customer phone number. A phone
// match in the index is authoritative and beats any caller-supplied hint;
// the fallback campaign id applies only when the phone is unknown.
func Match(customerPhone, fallbackCampaignID string, index PhoneIndex) Attribution {
	if key := phone.Normalize(customerPhone); key != "" {
		if attr, ok := index[key]; ok {
			return attr
		}
	}
	if fallbackCampaignID != "" {
		return Attribution{CampaignID: fallbackCampaignID}
	}
	return Attribution{}
}
