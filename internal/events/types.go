package events

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Type is the canonical webhook event type. Provider payloads use several
// spellings for transcript readiness; they all canonicalize to
// TypeTranscript. Anything unrecognized is TypeUnhandled: logged, dropped.
type Type string

const (
	TypeCallStarted     Type = "call-started"
	TypeCallEnded       Type = "call-ended"
	TypeTranscript      Type = "transcript"
	TypeEndOfCallReport Type = "end-of-call-report"
	TypeUnhandled       Type = "unhandled"
)

func canonicalType(raw string) Type {
	switch raw {
	case "call-started":
		return TypeCallStarted
	case "call-ended":
		return TypeCallEnded
	case "transcript", "transcript-ready", "transcript-complete":
		return TypeTranscript
	case "end-of-call-report":
		return TypeEndOfCallReport
	default:
		return TypeUnhandled
	}
}

// TranscriptMessage is one turn of the provider's structured transcript.
// Providers alternate between "message" and "content" for the text field.
type TranscriptMessage struct {
	Role    string `json:"role"`
	Message string `json:"message"`
	Content string `json:"content"`
}

// Text returns whichever text field the provider populated.
func (m TranscriptMessage) Text() string {
	if m.Message != "" {
		return m.Message
	}
	return m.Content
}

// CallMetadata carries campaign attribution our dialer attached at
// call-creation time. It may be missing or stale; phone matching wins.
type CallMetadata struct {
	CampaignID     string `json:"campaignId"`
	LeadID         string `json:"leadId"`
	OrganizationID string `json:"organizationId"`
}

// CallPayload is the call object embedded in a webhook event. Every field
// is optional: the provider omits whatever it does not have yet.
type CallPayload struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	EndedReason string `json:"endedReason"`
	AssistantID string `json:"assistantId"`
	Customer    struct {
		Number string `json:"number"`
	} `json:"customer"`
	PhoneNumber struct {
		Number string `json:"number"`
	} `json:"phoneNumber"`
	StartedAt       *time.Time          `json:"startedAt"`
	EndedAt         *time.Time          `json:"endedAt"`
	DurationSeconds float64             `json:"durationSeconds"`
	Cost            float64             `json:"cost"`
	RecordingURL    string              `json:"recordingUrl"`
	Transcript      string              `json:"transcript"`
	Summary         string              `json:"summary"`
	Analysis        json.RawMessage     `json:"analysis"`
	Messages        []TranscriptMessage `json:"messages"`
	Metadata        CallMetadata        `json:"metadata"`
}

// Duration returns the call duration in whole seconds, from the explicit
// field when present, otherwise derived from the start/end timestamps.
func (c CallPayload) Duration() int {
	if c.DurationSeconds > 0 {
		return int(math.Round(c.DurationSeconds))
	}
	if c.StartedAt != nil && c.EndedAt != nil && c.EndedAt.After(*c.StartedAt) {
		return int(c.EndedAt.Sub(*c.StartedAt).Seconds())
	}
	return 0
}

// Event is one webhook delivery, parsed into the fields the reconciler
// uses plus the untouched raw payload for the audit log.
type Event struct {
	ID         string
	RawType    string
	Type       Type
	ReceivedAt time.Time
	Call       CallPayload
	Transcript string
	Summary    string
	Analysis   json.RawMessage
	Raw        json.RawMessage
}

// Unparseable wraps a payload that failed to decode so the delivery
// still leaves an audit row. Nothing in the body can be trusted, so the
// log key is synthesized purely from arrival time, and the body is
// stored as a JSON string since it is not valid JSON itself.
func Unparseable(raw []byte, receivedAt time.Time) Event {
	quoted, _ := json.Marshal(string(raw))
	return Event{
		RawType:    "unparseable",
		Type:       TypeUnhandled,
		ReceivedAt: receivedAt,
		Raw:        quoted,
	}
}

// CallID returns the provider call id, if the event carried one.
func (e Event) CallID() string {
	return e.Call.ID
}

// LogKey is the event-log row key: the provider event id when present,
// otherwise a key synthesized from the type and receipt time.
func (e Event) LogKey() string {
	if e.ID != "" {
		return e.ID
	}
	return fmt.Sprintf("%s_%d", e.RawType, e.ReceivedAt.UnixMilli())
}

// DedupeKeys returns every key under which a prior delivery of this event
// could have been recorded as processed.
func (e Event) DedupeKeys() []string {
	var keys []string
	if e.ID != "" {
		keys = append(keys, e.ID)
	}
	if e.Call.ID != "" {
		keys = append(keys, fmt.Sprintf("%s_%s", e.RawType, e.Call.ID))
	}
	return keys
}

type envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Timestamp  *time.Time      `json:"timestamp"`
	Call       *CallPayload    `json:"call"`
	Transcript string          `json:"transcript"`
	Summary    string          `json:"summary"`
	Analysis   json.RawMessage `json:"analysis"`
	Message    *envelope       `json:"message"`
}

// ParseEvent decodes a webhook body. The provider sends two shapes: the
// event fields at the top level, or nested under a "message" wrapper.
// A body without an event type anywhere parses successfully with an empty
// RawType; the receiver decides whether that is a 400.
func ParseEvent(body []byte, receivedAt time.Time) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Event{}, fmt.Errorf("events: decode webhook body: %w", err)
	}
	inner := env
	if env.Type == "" && env.Message != nil {
		inner = *env.Message
		if inner.ID == "" {
			inner.ID = env.ID
		}
	}

	evt := Event{
		ID:         strings.TrimSpace(inner.ID),
		RawType:    strings.TrimSpace(inner.Type),
		Type:       canonicalType(strings.TrimSpace(inner.Type)),
		ReceivedAt: receivedAt.UTC(),
		Transcript: inner.Transcript,
		Summary:    inner.Summary,
		Analysis:   inner.Analysis,
		Raw:        append(json.RawMessage(nil), body...),
	}
	if inner.Call != nil {
		evt.Call = *inner.Call
		if evt.Call.Transcript != "" {
			evt.Transcript = evt.Call.Transcript
		}
		if evt.Call.Summary != "" {
			evt.Summary = evt.Call.Summary
		}
		if len(evt.Call.Analysis) > 0 {
			evt.Analysis = evt.Call.Analysis
		}
	}
	return evt, nil
}
