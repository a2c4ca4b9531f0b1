package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/sheep1986/apex-sub005/internal/events"
	"github.com/sheep1986/apex-sub005/internal/observability/metrics"
	"github.com/sheep1986/apex-sub005/pkg/logging"
)

// maxWebhookBody caps how much of a webhook payload is read. The provider
// sends reports of a few hundred KB at most; anything bigger is hostile.
const maxWebhookBody = 4 << 20

// captureWait bounds how long the handler lingers after responding to
// surface event-log persist errors into logs.
const captureWait = 2 * time.Second

// eventCapture is the slice of the event log the receiver writes.
type eventCapture interface {
	Insert(ctx context.Context, evt events.Event) error
}

// eventDispatcher hands an acknowledged event to the reconcile workers.
type eventDispatcher interface {
	Dispatch(evt events.Event) bool
}

// WebhookHandler is the fast-ack entry point for provider webhooks. Its
// contract with the provider: acknowledge within the delivery timeout,
// answer 400 only when the payload has no event type, and never 5xx.
// All real work happens after the response is on the wire.
type WebhookHandler struct {
	eventLog   eventCapture
	dispatcher eventDispatcher
	logger     *logging.Logger
	metrics    *metrics.WebhookMetrics
}

type WebhookConfig struct {
	EventLog   eventCapture
	Dispatcher eventDispatcher
	Logger     *logging.Logger
	Metrics    *metrics.WebhookMetrics
}

func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &WebhookHandler{
		eventLog:   cfg.EventLog,
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

type webhookAck struct {
	Received  bool   `json:"received"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	CallID    string `json:"callId,omitempty"`
}

// Handle acknowledges one webhook delivery. Ordering is the whole point:
// capture starts before validation, the 200 is written before anything
// else runs, and reconciliation is dispatched strictly after the response.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	receivedAt := time.Now().UTC()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.metrics.ObserveEvent("unreadable", "rejected")
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	evt, parseErr := events.ParseEvent(body, receivedAt)

	// Fire-and-forget persist of whatever arrived, valid or not. An
	// undecodable body is captured under a synthesized key; the audit
	// trail must show the delivery even when the payload is garbage.
	// Uses a background context so a provider-side disconnect cannot
	// cancel it.
	captureDone := make(chan error, 1)
	if h.eventLog != nil {
		captured := evt
		if parseErr != nil {
			captured = events.Unparseable(body, receivedAt)
		}
		go func() {
			captureDone <- h.eventLog.Insert(context.Background(), captured)
		}()
	} else {
		captureDone <- nil
	}

	if parseErr != nil || evt.RawType == "" {
		if parseErr != nil {
			h.logger.Warn("webhook payload undecodable", "error", parseErr)
		}
		h.metrics.ObserveEvent(evt.RawType, "rejected")
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing event type"})
		return
	}

	ack := webhookAck{
		Received:  true,
		Timestamp: receivedAt.Format(time.RFC3339),
		Type:      evt.RawType,
		CallID:    evt.CallID(),
	}
	respondJSON(w, http.StatusOK, ack)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	h.metrics.ObserveEvent(evt.RawType, "accepted")
	h.metrics.ObserveAckLatency(evt.RawType, time.Since(receivedAt).Seconds())

	// The response is flushed; everything below is post-ack.
	if !h.dispatcher.Dispatch(evt) {
		h.logger.Warn("event not dispatched", "event_key", evt.LogKey(), "event_type", evt.Type)
	}

	select {
	case err := <-captureDone:
		if err != nil {
			h.logger.Error("event log persist failed", "event_key", evt.LogKey(), "error", err)
		}
	case <-time.After(captureWait):
		h.logger.Warn("event log persist still pending", "event_key", evt.LogKey())
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
