// Package callsync is the bulk repair path: it pulls recent calls from
// the provider API and upserts them, converging the call store with
// provider truth regardless of which webhooks were dropped or missed.
package callsync

import (
	"context"
	"fmt"

	"github.com/sheep1986/apex-sub005/internal/calls"
	"github.com/sheep1986/apex-sub005/internal/campaigns"
	"github.com/sheep1986/apex-sub005/internal/observability/metrics"
	"github.com/sheep1986/apex-sub005/internal/outcome"
	"github.com/sheep1986/apex-sub005/internal/vapi"
	"github.com/sheep1986/apex-sub005/pkg/logging"
)

// Result aggregates one sync run. ErrorCount counts calls that failed
// individually; a run with errors is still a successful run.
type Result struct {
	TotalCalls  int `json:"totalCalls"`
	SyncedCount int `json:"syncedCount"`
	ErrorCount  int `json:"errorCount"`
}

// providerClient is the slice of the provider API the job consumes.
type providerClient interface {
	GetCall(ctx context.Context, orgID, callID string) (*vapi.Call, error)
	ListCalls(ctx context.Context, orgID string, limit int) ([]vapi.Call, error)
}

// Job runs bulk and single-call synchronization for one deployment.
type Job struct {
	provider   providerClient
	calls      calls.Repository
	campaigns  campaigns.Repository
	classifier outcome.Classifier
	metrics    *metrics.WebhookMetrics
	logger     *logging.Logger

	defaultLimit int
	maxLimit     int
}

// Config wires a sync Job.
type Config struct {
	Provider   providerClient
	Calls      calls.Repository
	Campaigns  campaigns.Repository
	Classifier outcome.Classifier
	Metrics    *metrics.WebhookMetrics
	Logger     *logging.Logger

	DefaultLimit int
	MaxLimit     int
}

func New(cfg Config) *Job {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	maxLimit := cfg.MaxLimit
	if maxLimit <= 0 {
		maxLimit = 1000
	}
	return &Job{
		provider:     cfg.Provider,
		calls:        cfg.Calls,
		campaigns:    cfg.Campaigns,
		classifier:   cfg.Classifier,
		metrics:      cfg.Metrics,
		logger:       logger,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// Sync fetches up to limit recent provider calls for the organization and
// upserts each one. campaignID optionally narrows the lead index and acts
// as the attribution fallback for calls whose phone matches no lead.
// Per-call failures are counted, logged and never abort the batch.
func (j *Job) Sync(ctx context.Context, orgID, campaignID string, limit int) (Result, error) {
	if orgID == "" {
		return Result{}, fmt.Errorf("callsync: organization id is required")
	}
	if limit <= 0 {
		limit = j.defaultLimit
	}
	if limit > j.maxLimit {
		limit = j.maxLimit
	}

	index, err := j.buildIndex(ctx, orgID, campaignID)
	if err != nil {
		return Result{}, err
	}

	providerCalls, err := j.provider.ListCalls(ctx, orgID, limit)
	if err != nil {
		return Result{}, fmt.Errorf("callsync: list provider calls: %w", err)
	}

	result := Result{TotalCalls: len(providerCalls)}
	for _, call := range providerCalls {
		if err := j.syncCall(ctx, orgID, campaignID, index, call); err != nil {
			result.ErrorCount++
			j.metrics.ObserveSyncCall("failed")
			j.logger.Warn("sync call failed", "org_id", orgID, "call_id", call.ID, "error", err)
			continue
		}
		result.SyncedCount++
		j.metrics.ObserveSyncCall("synced")
	}

	j.logger.Info("call sync finished", "org_id", orgID, "campaign_id", campaignID,
		"total", result.TotalCalls, "synced", result.SyncedCount, "errors", result.ErrorCount)
	return result, nil
}

// SyncOne fetches and upserts a single call by provider call id.
func (j *Job) SyncOne(ctx context.Context, orgID, callID string) (*calls.CallRecord, error) {
	if orgID == "" {
		return nil, fmt.Errorf("callsync: organization id is required")
	}
	call, err := j.provider.GetCall(ctx, orgID, callID)
	if err != nil {
		return nil, fmt.Errorf("callsync: fetch provider call: %w", err)
	}

	index, err := j.buildIndex(ctx, orgID, "")
	if err != nil {
		return nil, err
	}
	if err := j.syncCall(ctx, orgID, "", index, *call); err != nil {
		return nil, err
	}
	return j.calls.FindByAnyID(ctx, call.ID)
}

// buildIndex loads the organization's leads and indexes them by phone.
// The index is built per invocation, never cached.
func (j *Job) buildIndex(ctx context.Context, orgID, campaignID string) (campaigns.PhoneIndex, error) {
	campaignIDs := []string{campaignID}
	if campaignID == "" {
		ids, err := j.campaigns.ListCampaignIDsByOrg(ctx, orgID)
		if err != nil {
			return nil, fmt.Errorf("callsync: list campaigns: %w", err)
		}
		campaignIDs = ids
	}
	if len(campaignIDs) == 0 {
		return campaigns.PhoneIndex{}, nil
	}
	leads, err := j.campaigns.ListLeadsByCampaignIDs(ctx, campaignIDs)
	if err != nil {
		return nil, fmt.Errorf("callsync: list leads: %w", err)
	}
	return campaigns.BuildPhoneIndex(leads), nil
}

func (j *Job) syncCall(ctx context.Context, orgID, fallbackCampaignID string, index campaigns.PhoneIndex, call vapi.Call) error {
	if call.ID == "" {
		return fmt.Errorf("provider call without id")
	}

	duration := call.Duration()
	classified := j.classifier.Classify(call.EndedReason, duration)
	status := calls.StatusCompleted
	if classified == outcome.Failed {
		status = calls.StatusFailed
	}

	customerPhone := call.Customer.Number
	if customerPhone == "" {
		customerPhone = call.PhoneNumber.Number
	}
	attr := campaigns.Match(customerPhone, fallbackCampaignID, index)
	if attr.CampaignID == "" {
		attr.CampaignID = call.Metadata.CampaignID
	}
	if attr.LeadID == "" && attr.CampaignID == call.Metadata.CampaignID {
		attr.LeadID = call.Metadata.LeadID
	}

	_, err := j.calls.Upsert(ctx, calls.CallRecord{
		VapiCallID:      call.ID,
		OrganizationID:  orgID,
		CampaignID:      attr.CampaignID,
		LeadID:          attr.LeadID,
		CustomerPhone:   customerPhone,
		AssistantID:     call.AssistantID,
		Status:          status,
		StartedAt:       call.StartedAt,
		EndedAt:         call.EndedAt,
		DurationSeconds: duration,
		CostUSD:         call.Cost,
		RecordingURL:    call.RecordingURL,
		Transcript:      call.TranscriptText(),
		Outcome:         classified,
	})
	if err != nil {
		return fmt.Errorf("upsert call %s: %w", call.ID, err)
	}
	return nil
}
