package events

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

var receivedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestParseEventTopLevel(t *testing.T) {
	body := []byte(`{
		"id": "evt-1",
		"type": "call-ended",
		"call": {
			"id": "vapi-1",
			"endedReason": "customer-ended-call",
			"durationSeconds": 42.4,
			"cost": 0.12,
			"customer": {"number": "+15551234567"},
			"transcript": "hello world"
		}
	}`)
	evt, err := ParseEvent(body, receivedAt)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if evt.ID != "evt-1" || evt.Type != TypeCallEnded || evt.CallID() != "vapi-1" {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if evt.Call.Duration() != 42 {
		t.Fatalf("duration = %d, want 42", evt.Call.Duration())
	}
	if evt.Transcript != "hello world" {
		t.Fatalf("transcript = %q", evt.Transcript)
	}
}

func TestParseEventMessageWrapped(t *testing.T) {
	body := []byte(`{
		"message": {
			"type": "end-of-call-report",
			"call": {"id": "vapi-2"},
			"summary": "caller asked about pricing",
			"transcript": "AI: hi"
		}
	}`)
	evt, err := ParseEvent(body, receivedAt)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if evt.Type != TypeEndOfCallReport || evt.CallID() != "vapi-2" {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if evt.Summary != "caller asked about pricing" || evt.Transcript != "AI: hi" {
		t.Fatalf("wrapper fields lost: %+v", evt)
	}
}

func TestParseEventTranscriptVariants(t *testing.T) {
	for _, raw := range []string{"transcript", "transcript-ready", "transcript-complete"} {
		evt, err := ParseEvent([]byte(`{"type":"`+raw+`"}`), receivedAt)
		if err != nil {
			t.Fatalf("parse %s: %v", raw, err)
		}
		if evt.Type != TypeTranscript {
			t.Fatalf("%s canonicalized to %s", raw, evt.Type)
		}
		if evt.RawType != raw {
			t.Fatalf("raw type lost: %s", evt.RawType)
		}
	}
}

func TestParseEventUnhandledType(t *testing.T) {
	evt, err := ParseEvent([]byte(`{"type":"speech-update"}`), receivedAt)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if evt.Type != TypeUnhandled {
		t.Fatalf("expected unhandled, got %s", evt.Type)
	}
}

func TestParseEventMissingType(t *testing.T) {
	evt, err := ParseEvent([]byte(`{"call":{"id":"vapi-3"}}`), receivedAt)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if evt.RawType != "" {
		t.Fatalf("expected empty raw type, got %q", evt.RawType)
	}
}

func TestParseEventInvalidJSON(t *testing.T) {
	if _, err := ParseEvent([]byte(`{not json`), receivedAt); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestUnparseableEvent(t *testing.T) {
	evt := Unparseable([]byte(`{not json`), receivedAt)
	if !strings.HasPrefix(evt.LogKey(), "unparseable_") {
		t.Fatalf("unexpected log key: %s", evt.LogKey())
	}
	if evt.Type != TypeUnhandled {
		t.Fatalf("unexpected type: %s", evt.Type)
	}
	// The raw body is stored as a JSON string, since it is not JSON.
	var body string
	if err := json.Unmarshal(evt.Raw, &body); err != nil {
		t.Fatalf("raw must be a JSON string: %v", err)
	}
	if body != `{not json` {
		t.Fatalf("body round-trip lost content: %q", body)
	}
}

func TestLogKeySynthesized(t *testing.T) {
	evt := Event{RawType: "call-started", ReceivedAt: receivedAt}
	key := evt.LogKey()
	if !strings.HasPrefix(key, "call-started_") {
		t.Fatalf("unexpected synthesized key: %s", key)
	}
	evt.ID = "evt-9"
	if evt.LogKey() != "evt-9" {
		t.Fatalf("event id must win: %s", evt.LogKey())
	}
}

func TestDedupeKeys(t *testing.T) {
	evt := Event{ID: "evt-1", RawType: "call-ended"}
	evt.Call.ID = "vapi-1"
	keys := evt.DedupeKeys()
	if len(keys) != 2 || keys[0] != "evt-1" || keys[1] != "call-ended_vapi-1" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	anonymous := Event{RawType: "call-ended"}
	if got := anonymous.DedupeKeys(); len(got) != 0 {
		t.Fatalf("expected no keys without ids, got %v", got)
	}
}

func TestDurationDerivedFromTimestamps(t *testing.T) {
	started := receivedAt
	ended := receivedAt.Add(95 * time.Second)
	c := CallPayload{StartedAt: &started, EndedAt: &ended}
	if got := c.Duration(); got != 95 {
		t.Fatalf("derived duration = %d, want 95", got)
	}
	if got := (CallPayload{}).Duration(); got != 0 {
		t.Fatalf("empty payload duration = %d, want 0", got)
	}
}

func TestTranscriptMessageText(t *testing.T) {
	if (TranscriptMessage{Message: "a", Content: "b"}).Text() != "a" {
		t.Fatal("message field must win")
	}
	if (TranscriptMessage{Content: "b"}).Text() != "b" {
		t.Fatal("content fallback broken")
	}
}
