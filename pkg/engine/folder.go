package engine

import (
	"context"

	"github.com/kaiwadev/kaiwa/pkg/chat"
	pkgLogger "github.com/kaiwadev/kaiwa/pkg/logger"
	"github.com/kaiwadev/kaiwa/pkg/session"
)

var logger = pkgLogger.NewComponentLogger("engine")

// Defaults for the fold policy. The original behavior is only described
// qualitatively, so all three knobs are configuration.
const (
	DefaultTriggerTokens   = 24576
	DefaultMinFoldTurns    = 6
	DefaultKeepRecentTurns = 2
)

// FoldConfig controls when history is folded into the summary.
type FoldConfig struct {
	// TriggerTokens is the estimated context size above which a fold is
	// attempted.
	TriggerTokens int
	// MinFoldTurns is the minimum number of un-folded turns required
	// before folding, so a single exchange is never summarized away.
	MinFoldTurns int
	// KeepRecentTurns is how many trailing turns stay verbatim. At least
	// one full exchange is always kept.
	KeepRecentTurns int
}

// DefaultFoldConfig returns the default fold policy.
func DefaultFoldConfig() FoldConfig {
	return FoldConfig{
		TriggerTokens:   DefaultTriggerTokens,
		MinFoldTurns:    DefaultMinFoldTurns,
		KeepRecentTurns: DefaultKeepRecentTurns,
	}
}

func (c FoldConfig) withDefaults() FoldConfig {
	if c.TriggerTokens <= 0 {
		c.TriggerTokens = DefaultTriggerTokens
	}
	if c.MinFoldTurns <= 0 {
		c.MinFoldTurns = DefaultMinFoldTurns
	}
	if c.KeepRecentTurns < 2 {
		c.KeepRecentTurns = DefaultKeepRecentTurns
	}
	return c
}

// Folder decides when to compact history and runs the summarization
// pass. Folding only changes the context sent to the backend; the stored
// turn history is never touched.
type Folder struct {
	backend   Backend
	estimator *session.Estimator
	config    FoldConfig
}

// NewFolder creates a folder with the given policy.
func NewFolder(backend Backend, estimator *session.Estimator, config FoldConfig) *Folder {
	if estimator == nil {
		estimator = session.NewEstimator()
	}
	return &Folder{
		backend:   backend,
		estimator: estimator,
		config:    config.withDefaults(),
	}
}

// FoldIfNeeded applies the trigger policy to the session and, when it
// fires, summarizes the older un-folded turns and advances the cursor.
// It returns whether a fold happened. A failed summarization leaves the
// session untouched and returns the error; callers treat it as a
// non-fatal warning since folding is an optimization.
func (f *Folder) FoldIfNeeded(ctx context.Context, s *session.Session) (bool, error) {
	estimate := f.estimator.Estimate(s.ContextTurns(), s.Summary)
	if estimate <= f.config.TriggerTokens {
		logger.Debug("Context below fold threshold",
			"session", s.Name, "estimate", estimate, "trigger", f.config.TriggerTokens)
		return false, nil
	}

	unfolded := len(s.Turns) - s.Cursor
	if unfolded <= f.config.MinFoldTurns {
		logger.Debug("Too few un-folded turns to fold",
			"session", s.Name, "unfolded", unfolded, "min", f.config.MinFoldTurns)
		return false, nil
	}

	foldPoint := f.foldPoint(s)
	if foldPoint <= s.Cursor {
		return false, nil
	}

	logger.InfoWithIcon("📝", "Folding conversation history",
		"session", s.Name, "estimate", estimate,
		"fold_range", foldPoint-s.Cursor, "keep_verbatim", len(s.Turns)-foldPoint)

	summary, err := f.backend.Summarize(ctx, s.Summary, s.Turns[s.Cursor:foldPoint])
	if err != nil {
		// Summary and cursor stay unchanged; the next send simply
		// carries the larger un-folded context.
		return false, &BackendError{Op: "summarize", Err: err}
	}

	if err := s.Fold(summary, foldPoint); err != nil {
		return false, err
	}
	logger.Debug("Fold complete", "session", s.Name, "cursor", s.Cursor, "summary_len", len(summary))
	return true, nil
}

// foldPoint picks the boundary up to which history is summarized. It
// starts KeepRecentTurns from the end and walks back to a user turn so
// the kept tail always opens with a complete exchange.
func (f *Folder) foldPoint(s *session.Session) int {
	point := len(s.Turns) - f.config.KeepRecentTurns
	for point > s.Cursor && s.Turns[point].Role != chat.RoleUser {
		point--
	}
	return point
}
