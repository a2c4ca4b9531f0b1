package vapi

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// Call is the provider's call resource. Every field beyond the id is
// optional: duration, transcript, cost and recording all arrive late or
// not at all, and callers must default rather than reject.
type Call struct {
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
	StartedAt       *time.Time      `json:"startedAt"`
	EndedAt         *time.Time      `json:"endedAt"`
	DurationSeconds float64         `json:"durationSeconds"`
	Cost            float64         `json:"cost"`
	RecordingURL    string          `json:"recordingUrl"`
	Transcript      string          `json:"transcript"`
	Summary         string          `json:"summary"`
	Analysis        json.RawMessage `json:"analysis"`
	Messages        []Message       `json:"messages"`
	Metadata        struct {
		CampaignID string `json:"campaignId"`
		LeadID     string `json:"leadId"`
	} `json:"metadata"`
}

// Message is one turn in the provider's structured conversation log.
type Message struct {
	Role    string `json:"role"`
	Message string `json:"message"`
	Content string `json:"content"`
}

// Text returns whichever text field the provider populated.
func (m Message) Text() string {
	if m.Message != "" {
		return m.Message
	}
	return m.Content
}

// Duration returns the call duration in whole seconds, preferring the
// explicit field and deriving from timestamps otherwise.
func (c Call) Duration() int {
	if c.DurationSeconds > 0 {
		return int(math.Round(c.DurationSeconds))
	}
	if c.StartedAt != nil && c.EndedAt != nil && c.EndedAt.After(*c.StartedAt) {
		return int(c.EndedAt.Sub(*c.StartedAt).Seconds())
	}
	return 0
}

// TranscriptText returns the flat transcript when the provider sent one,
// otherwise reconstructs it from the message list as "role: text" lines,
// keeping only user and assistant turns in their original order.
func (c Call) TranscriptText() string {
	if strings.TrimSpace(c.Transcript) != "" {
		return c.Transcript
	}
	var b strings.Builder
	for _, m := range c.Messages {
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

// PhoneNumber is a provider-managed phone number resource.
type PhoneNumber struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Name   string `json:"name"`
}

// Assistant is a provider voice-assistant resource.
type Assistant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
