// Package outcome classifies how a call ended from the provider's
// ended-reason string and the call duration. The mapping is a heuristic
// reverse-engineered from observed provider behavior, not a documented
// contract, so the rule table is data rather than code: deployments can
// swap it without touching the classifier.
package outcome

import "strings"

// Outcome is a coarse classification of how a call ended, used for
// campaign reporting and filtering.
type Outcome string

const (
	Connected Outcome = "connected"
	Completed Outcome = "completed"
	Failed    Outcome = "failed"
	NoAnswer  Outcome = "no_answer"
	Unknown   Outcome = "unknown"
)

// connectedThresholdSeconds is the duration past which a call with no
// specific ended reason is assumed to have actually connected.
const connectedThresholdSeconds = 30

// Rule maps an ended-reason match to an outcome. Exactly one of Equals or
// Contains is set. Rules are evaluated in order; first match wins.
type Rule struct {
	Equals   string
	Contains string
	Outcome  Outcome
}

// DefaultRules is the ordered provider-reason table. Do not reorder
// without re-deriving from real provider data.
var DefaultRules = []Rule{
	{Equals: "customer-ended-call", Outcome: Connected},
	{Equals: "assistant-ended-call", Outcome: Completed},
	{Contains: "pipeline-error", Outcome: Failed},
	{Equals: "silence-timeout", Outcome: NoAnswer},
	{Equals: "exceeded-max-duration", Outcome: Connected},
}

// Classifier maps (endedReason, duration) pairs to an Outcome. The zero
// value uses DefaultRules.
type Classifier struct {
	rules []Rule
}

// NewClassifier returns a classifier with the default rule table.
func NewClassifier() Classifier {
	return Classifier{rules: DefaultRules}
}

// WithRules returns a classifier using the given ordered rule table.
func (c Classifier) WithRules(rules []Rule) Classifier {
	return Classifier{rules: rules}
}

// Classify is pure and deterministic. An absent reason with a long enough
// duration counts as connected, otherwise unknown. A reason no rule covers
// falls back on duration: connected when long, no_answer when short.
func (c Classifier) Classify(endedReason string, durationSeconds int) Outcome {
	reason := strings.TrimSpace(endedReason)
	if reason == "" {
		if durationSeconds > connectedThresholdSeconds {
			return Connected
		}
		return Unknown
	}
	rules := c.rules
	if rules == nil {
		rules = DefaultRules
	}
	for _, r := range rules {
		if r.Equals != "" && reason == r.Equals {
			return r.Outcome
		}
		if r.Contains != "" && strings.Contains(reason, r.Contains) {
			return r.Outcome
		}
	}
	if durationSeconds > connectedThresholdSeconds {
		return Connected
	}
	return NoAnswer
}
