// Package analysis scores completed call transcripts: sentiment, interest
// level and a short summary a campaign operator can scan.
package analysis

import "context"

// Analysis is the structured result of scoring one transcript.
type Analysis struct {
	SentimentScore float64  `json:"sentimentScore"`
	InterestLevel  string   `json:"interestLevel"`
	IsInterested   bool     `json:"isInterested"`
	Summary        string   `json:"summary"`
	NextSteps      []string `json:"nextSteps"`
}

// Analyzer scores a call transcript. Implementations must treat analysis
// as best effort; a failed analysis never blocks call persistence.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string) (*Analysis, error)
}
