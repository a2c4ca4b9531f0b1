package campaigns

import "testing"

func TestBuildPhoneIndex(t *testing.T) {
	leads := []Lead{
		{ID: "L1", CampaignID: "A", Phone: "+1 (555) 123-4567"},
		{ID: "L2", CampaignID: "A", Phone: ""},
		{ID: "L3", CampaignID: "B", Phone: "words only"},
		{ID: "L4", CampaignID: "B", Phone: "555-987-6543"},
	}
	index := BuildPhoneIndex(leads)
	if len(index) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(index))
	}
	if attr := index["5551234567"]; attr.LeadID != "L1" || attr.CampaignID != "A" {
		t.Fatalf("unexpected attribution for L1: %+v", attr)
	}
	if _, ok := index[""]; ok {
		t.Fatal("empty normalized phone must never be indexed")
	}
}

func TestBuildPhoneIndexLastWriteWins(t *testing.T) {
	leads := []Lead{
		{ID: "L1", CampaignID: "A", Phone: "5551234567"},
		{ID: "L2", CampaignID: "B", Phone: "+15551234567"},
	}
	index := BuildPhoneIndex(leads)
	attr := index["5551234567"]
	if attr.LeadID != "L2" || attr.CampaignID != "B" {
		t.Fatalf("expected later lead to win, got %+v", attr)
	}
}

func TestMatchPhoneBeatsFallback(t *testing.T) {
	index := PhoneIndex{"5551234567": {CampaignID: "A", LeadID: "L1"}}
	attr := Match("+1-555-123-4567", "B", index)
	if attr.CampaignID != "A" || attr.LeadID != "L1" {
		t.Fatalf("phone match must beat fallback, got %+v", attr)
	}
}

func TestMatchFallbackCampaign(t *testing.T) {
	index := PhoneIndex{"5551234567": {CampaignID: "A", LeadID: "L1"}}
	attr := Match("+1-555-000-0000", "B", index)
	if attr.CampaignID != "B" || attr.LeadID != "" {
		t.Fatalf("expected fallback campaign only, got %+v", attr)
	}
}

func TestMatchUnmatchedIsEmpty(t *testing.T) {
	attr := Match("+1-555-000-0000", "", PhoneIndex{})
	if attr != (Attribution{}) {
		t.Fatalf("expected empty attribution, got %+v", attr)
	}
}

func TestMatchEmptyPhoneNeverMatches(t *testing.T) {
	// An index poisoned with an empty key must not attract empty phones.
	index := PhoneIndex{"": {CampaignID: "X", LeadID: "LX"}}
	attr := Match("", "B", index)
	if attr.CampaignID != "B" || attr.LeadID != "" {
		t.Fatalf("empty phone matched empty key: %+v", attr)
	}
}
