package session

import (
	"github.com/kaiwadev/kaiwa/pkg/chat"
)

// Defaults for the character-based token approximation. The backend is
// authoritative for real usage; this estimator only needs to be stable
// and monotonic so it can drive threshold comparisons.
const (
	DefaultCharsPerToken   = 4
	DefaultPerTurnOverhead = 4
)

// Estimator approximates the token cost of conversation context.
type Estimator struct {
	CharsPerToken   int
	PerTurnOverhead int
}

// NewEstimator returns an estimator with the default heuristic.
func NewEstimator() *Estimator {
	return &Estimator{
		CharsPerToken:   DefaultCharsPerToken,
		PerTurnOverhead: DefaultPerTurnOverhead,
	}
}

// Estimate returns a deterministic token approximation for the given
// turns plus summary. Appending content never decreases the result.
func (e *Estimator) Estimate(turns []chat.Turn, summary string) int {
	perToken := e.CharsPerToken
	if perToken <= 0 {
		perToken = DefaultCharsPerToken
	}

	total := 0
	if summary != "" {
		total += tokensForChars(len(summary), perToken) + e.PerTurnOverhead
	}
	for _, t := range turns {
		total += e.PerTurnOverhead
		for _, p := range t.Parts {
			if p.File != nil {
				// Embedded file bytes cost roughly like text of the
				// same length once they reach the backend.
				total += tokensForChars(len(p.File.Data)+len(p.File.Name), perToken)
				continue
			}
			total += tokensForChars(len(p.Text), perToken)
		}
	}
	return total
}

func tokensForChars(n, perToken int) int {
	return (n + perToken - 1) / perToken
}
