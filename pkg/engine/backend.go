// Package engine orchestrates conversations: it routes messages through
// the model backend, persists sessions, and folds old history into a
// running summary to keep context within the token budget.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/kaiwadev/kaiwa/pkg/chat"
)

// Request carries everything a backend needs for one model invocation.
// Turns contains only the un-folded history; Summary stands in for
// everything before the fold cursor.
type Request struct {
	SystemInstruction string
	Summary           string
	Turns             []chat.Turn
	Thinking          bool
}

// Usage is the backend's token accounting for a single invocation.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns the combined token count.
func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

// Backend is the model collaborator. Both calls block until the model
// responds; cancellation and timeouts arrive through ctx and surface as
// ordinary errors.
type Backend interface {
	// Invoke sends the conversation context and returns the model turn.
	Invoke(ctx context.Context, req Request) (chat.Turn, Usage, error)
	// Summarize condenses turns (together with any existing summary)
	// into an updated summary text.
	Summarize(ctx context.Context, existingSummary string, turns []chat.Turn) (string, error)
}

// BackendError wraps a failed model backend call. The engine does not
// distinguish transient from permanent failures; retry policy belongs to
// the caller.
type BackendError struct {
	Op  string // "invoke" or "summarize"
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("model backend %s failed: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// summarySystemPrompt instructs the model when condensing history. All
// backends share it so sessions summarize the same way regardless of
// provider.
const summarySystemPrompt = `You compress earlier conversation history for a chat assistant. ` +
	`Preserve facts, names, decisions, and open threads the assistant will need in future turns. ` +
	`Omit pleasantries and repetition. Respond with the summary text only.`

// SummaryPrompt returns the system and user text for a summarization
// request over the given range, folding in the existing summary if any.
func SummaryPrompt(existingSummary string, turns []chat.Turn) (system, user string) {
	var b strings.Builder
	if existingSummary != "" {
		b.WriteString("Summary of the conversation so far:\n")
		b.WriteString(existingSummary)
		b.WriteString("\n\n")
	}
	b.WriteString("Conversation to fold into the summary:\n\n")
	for _, t := range turns {
		b.WriteString("[")
		b.WriteString(string(t.Role))
		b.WriteString("] ")
		b.WriteString(t.Text())
		for _, name := range t.FileNames() {
			b.WriteString("\n(attached file: ")
			b.WriteString(name)
			b.WriteString(")")
		}
		b.WriteString("\n\n")
	}
	b.WriteString("Produce one updated summary covering everything above.")
	return summarySystemPrompt, b.String()
}
