// Package reconcile turns acknowledged webhook events into call-record
// mutations. Every mutation is a merge-upsert keyed by the provider call
// id, so replays and out-of-order deliveries converge on the same state.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sheep1986/apex-sub005/internal/analysis"
	"github.com/sheep1986/apex-sub005/internal/calls"
	"github.com/sheep1986/apex-sub005/internal/events"
	"github.com/sheep1986/apex-sub005/internal/observability/metrics"
	"github.com/sheep1986/apex-sub005/internal/outcome"
	"github.com/sheep1986/apex-sub005/internal/vapi"
	"github.com/sheep1986/apex-sub005/pkg/logging"
)

// eventLogWriter is the slice of the event log the reconciler writes.
type eventLogWriter interface {
	MarkProcessed(ctx context.Context, key string) (bool, error)
	MarkFailed(ctx context.Context, key, message string) error
}

// callFetcher is the slice of the provider client the transcript retry uses.
type callFetcher interface {
	GetCall(ctx context.Context, orgID, callID string) (*vapi.Call, error)
}

// Config wires a Reconciler. Calls, EventLog and Guard are required;
// Provider, Analyzer and Metrics are optional and degrade to no-ops.
type Config struct {
	Calls      calls.Repository
	EventLog   eventLogWriter
	Guard      *Guard
	Classifier outcome.Classifier
	Provider   callFetcher
	Analyzer   analysis.Analyzer
	Metrics    *metrics.WebhookMetrics
	Logger     *logging.Logger

	TranscriptRetryDelay time.Duration
	AnalysisTimeout      time.Duration
}

// Reconciler applies one webhook event to the call store.
type Reconciler struct {
	calls      calls.Repository
	eventLog   eventLogWriter
	guard      *Guard
	classifier outcome.Classifier
	provider   callFetcher
	analyzer   analysis.Analyzer
	metrics    *metrics.WebhookMetrics
	logger     *logging.Logger

	retryDelay      time.Duration
	analysisTimeout time.Duration
}

func NewReconciler(cfg Config) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	retryDelay := cfg.TranscriptRetryDelay
	if retryDelay <= 0 {
		retryDelay = 5 * time.Second
	}
	analysisTimeout := cfg.AnalysisTimeout
	if analysisTimeout <= 0 {
		analysisTimeout = 30 * time.Second
	}
	return &Reconciler{
		calls:           cfg.Calls,
		eventLog:        cfg.EventLog,
		guard:           cfg.Guard,
		classifier:      cfg.Classifier,
		provider:        cfg.Provider,
		analyzer:        cfg.Analyzer,
		metrics:         cfg.Metrics,
		logger:          logger,
		retryDelay:      retryDelay,
		analysisTimeout: analysisTimeout,
	}
}

// Process applies one event end to end: duplicate guard, the per-type
// mutation, then the terminal event-log status. It never panics out to
// the worker; a panic is recorded as a failed event.
func (r *Reconciler) Process(ctx context.Context, evt events.Event) {
	logger := r.logger.With("event_key", evt.LogKey(), "event_type", string(evt.Type), "call_id", evt.CallID())

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("reconcile panicked", "panic", fmt.Sprint(rec))
			r.markFailed(ctx, evt, fmt.Sprintf("panic: %v", rec))
			r.metrics.ObserveReconcile(string(evt.Type), "panic")
		}
	}()

	if r.guard.IsDuplicate(ctx, evt) {
		logger.Info("duplicate event skipped")
		r.metrics.ObserveReconcile(string(evt.Type), "duplicate")
		return
	}

	var err error
	switch evt.Type {
	case events.TypeCallStarted:
		err = r.handleCallStarted(ctx, evt)
	case events.TypeCallEnded:
		err = r.handleCallEnded(ctx, evt)
	case events.TypeTranscript:
		err = r.handleTranscript(ctx, evt)
	case events.TypeEndOfCallReport:
		err = r.handleEndOfCallReport(ctx, evt)
	default:
		logger.Info("unhandled webhook type", "raw_type", evt.RawType)
	}

	if err != nil {
		logger.Error("reconcile failed", "error", err)
		r.markFailed(ctx, evt, err.Error())
		r.metrics.ObserveReconcile(string(evt.Type), "failed")
		return
	}

	if won, err := r.eventLog.MarkProcessed(ctx, evt.LogKey()); err != nil {
		logger.Warn("mark processed failed", "error", err)
	} else if !won {
		logger.Info("key already processed by a concurrent delivery")
	}
	r.guard.MarkSeen(ctx, evt)
	r.metrics.ObserveReconcile(string(evt.Type), "processed")
}

func (r *Reconciler) handleCallStarted(ctx context.Context, evt events.Event) error {
	callID := evt.CallID()
	if callID == "" {
		r.logger.Warn("call-started without call id, nothing to record", "event_key", evt.LogKey())
		return nil
	}
	startedAt := evt.Call.StartedAt
	if startedAt == nil {
		t := evt.ReceivedAt
		startedAt = &t
	}
	_, err := r.calls.Upsert(ctx, calls.CallRecord{
		VapiCallID:     callID,
		OrganizationID: evt.Call.Metadata.OrganizationID,
		CampaignID:     evt.Call.Metadata.CampaignID,
		LeadID:         evt.Call.Metadata.LeadID,
		CustomerPhone:  customerNumber(evt.Call),
		AssistantID:    evt.Call.AssistantID,
		Status:         calls.StatusInProgress,
		StartedAt:      startedAt,
	})
	if err != nil {
		return fmt.Errorf("record call start: %w", err)
	}
	return nil
}

func (r *Reconciler) handleCallEnded(ctx context.Context, evt events.Event) error {
	callID := evt.CallID()
	if callID == "" {
		r.logger.Warn("call-ended without call id, nothing to record", "event_key", evt.LogKey())
		return nil
	}
	orgID := r.resolveOrg(ctx, evt)

	duration := evt.Call.Duration()
	result := r.classifier.Classify(evt.Call.EndedReason, duration)
	status := calls.StatusCompleted
	if result == outcome.Failed {
		status = calls.StatusFailed
	}
	endedAt := evt.Call.EndedAt
	if endedAt == nil {
		t := evt.ReceivedAt
		endedAt = &t
	}
	transcript := transcriptText(evt)

	saved, err := r.calls.Upsert(ctx, calls.CallRecord{
		VapiCallID:      callID,
		OrganizationID:  orgID,
		CustomerPhone:   customerNumber(evt.Call),
		Status:          status,
		EndedAt:         endedAt,
		DurationSeconds: duration,
		CostUSD:         evt.Call.Cost,
		RecordingURL:    evt.Call.RecordingURL,
		Outcome:         result,
		Transcript:      transcript,
	})
	if err != nil {
		return fmt.Errorf("record call end: %w", err)
	}

	if transcript != "" {
		if saved.OrganizationID != "" {
			r.analyze(ctx, saved.OrganizationID, callID, transcript)
		}
		return nil
	}
	r.scheduleTranscriptFetch(ctx, saved.OrganizationID, callID)
	return nil
}

func (r *Reconciler) handleTranscript(ctx context.Context, evt events.Event) error {
	callID := evt.CallID()
	transcript := transcriptText(evt)
	if callID == "" || transcript == "" {
		r.logger.Warn("transcript event missing call id or text", "event_key", evt.LogKey())
		return nil
	}
	saved, err := r.calls.Upsert(ctx, calls.CallRecord{
		VapiCallID: callID,
		Transcript: transcript,
	})
	if err != nil {
		return fmt.Errorf("record transcript: %w", err)
	}
	if saved.OrganizationID != "" {
		r.analyze(ctx, saved.OrganizationID, callID, transcript)
	}
	return nil
}

// handleEndOfCallReport merges the provider's final report. It only adds
// detail and never touches status or outcome, so a report arriving before
// or after call-ended cannot regress what call-ended decided.
func (r *Reconciler) handleEndOfCallReport(ctx context.Context, evt events.Event) error {
	callID := evt.CallID()
	if callID == "" {
		r.logger.Warn("end-of-call-report without call id, nothing to record", "event_key", evt.LogKey())
		return nil
	}
	summary := evt.Summary
	if summary == "" {
		summary = evt.Call.Summary
	}
	rawAnalysis := evt.Analysis
	if rawAnalysis == nil {
		rawAnalysis = evt.Call.Analysis
	}
	endedAt := evt.Call.EndedAt

	_, err := r.calls.Upsert(ctx, calls.CallRecord{
		VapiCallID:      callID,
		EndedAt:         endedAt,
		DurationSeconds: evt.Call.Duration(),
		CostUSD:         evt.Call.Cost,
		RecordingURL:    evt.Call.RecordingURL,
		Transcript:      transcriptText(evt),
		AISummary:       summary,
		AIAnalysis:      rawAnalysis,
	})
	if err != nil {
		return fmt.Errorf("record end-of-call report: %w", err)
	}
	return nil
}

// resolveOrg resolves the organization once per event: the existing call
// record wins, the metadata the dialer attached is the fallback. Empty
// means unknown, which only suppresses AI enrichment.
func (r *Reconciler) resolveOrg(ctx context.Context, evt events.Event) string {
	if callID := evt.CallID(); callID != "" {
		if rec, err := r.calls.FindByAnyID(ctx, callID); err == nil && rec.OrganizationID != "" {
			return rec.OrganizationID
		}
	}
	return evt.Call.Metadata.OrganizationID
}

// analyze scores the transcript and merges the result into the record.
// Analysis failures are logged and swallowed; the call itself is already
// persisted.
func (r *Reconciler) analyze(ctx context.Context, orgID, callID, transcript string) {
	if r.analyzer == nil {
		return
	}
	analyzeCtx, cancel := context.WithTimeout(ctx, r.analysisTimeout)
	defer cancel()

	result, err := r.analyzer.Analyze(analyzeCtx, transcript)
	if err != nil {
		r.logger.Warn("transcript analysis failed", "call_id", callID, "org_id", orgID, "error", err)
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		r.logger.Warn("transcript analysis marshal failed", "call_id", callID, "error", err)
		return
	}
	score := result.SentimentScore
	if _, err := r.calls.Upsert(ctx, calls.CallRecord{
		VapiCallID:     callID,
		SentimentScore: &score,
		AISummary:      result.Summary,
		AIAnalysis:     raw,
	}); err != nil {
		r.logger.Warn("persist analysis failed", "call_id", callID, "error", err)
	}
}

func (r *Reconciler) markFailed(ctx context.Context, evt events.Event, message string) {
	if err := r.eventLog.MarkFailed(ctx, evt.LogKey(), message); err != nil {
		r.logger.Warn("mark failed failed", "event_key", evt.LogKey(), "error", err)
	}
}

// transcriptText returns the event's transcript: the top-level field, the
// call payload's field, or a reconstruction from the message list.
func transcriptText(evt events.Event) string {
	if s := strings.TrimSpace(evt.Transcript); s != "" {
		return evt.Transcript
	}
	if s := strings.TrimSpace(evt.Call.Transcript); s != "" {
		return evt.Call.Transcript
	}
	var b strings.Builder
	for _, m := range evt.Call.Messages {
		if m.Role != "user" && m.Role != "assistant" {
			continue
		}
		text := strings.TrimSpace(m.Text())
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(text)
	}
	return b.String()
}

func customerNumber(call events.CallPayload) string {
	if call.Customer.Number != "" {
		return call.Customer.Number
	}
	return call.PhoneNumber.Number
}
