package reconcile

import (
	"context"
	"time"

	"github.com/sheep1986/apex-sub005/internal/calls"
)

// scheduleTranscriptFetch arms a one-shot delayed fetch for a call that
// ended without a transcript. Best effort and fire-and-forget: the timer
// is cancelled by ctx on shutdown and a lost retry is repaired by the
// next bulk sync, so nothing here is idempotency-guarded.
func (r *Reconciler) scheduleTranscriptFetch(ctx context.Context, orgID, callID string) {
	if r.provider == nil || callID == "" {
		return
	}
	go func() {
		timer := time.NewTimer(r.retryDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		fetchCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		call, err := r.provider.GetCall(fetchCtx, orgID, callID)
		if err != nil {
			r.logger.Warn("transcript retry fetch failed", "call_id", callID, "error", err)
			return
		}
		transcript := call.TranscriptText()
		if transcript == "" {
			r.logger.Info("transcript retry found no transcript yet", "call_id", callID)
			return
		}

		saved, err := r.calls.Upsert(fetchCtx, calls.CallRecord{
			VapiCallID:      callID,
			Transcript:      transcript,
			RecordingURL:    call.RecordingURL,
			CostUSD:         call.Cost,
			DurationSeconds: call.Duration(),
		})
		if err != nil {
			r.logger.Warn("transcript retry persist failed", "call_id", callID, "error", err)
			return
		}
		if saved.OrganizationID != "" {
			r.analyze(fetchCtx, saved.OrganizationID, callID, transcript)
		}
	}()
}
