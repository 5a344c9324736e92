// Package session holds the durable conversation state: the Session type,
// its persistent store, and the token budget estimator.
package session

import (
	"fmt"
	"regexp"
	"time"

	"github.com/kaiwadev/kaiwa/pkg/chat"
)

// validName matches filesystem-safe session names. A leading dot is
// rejected so session files never collide with hidden files.
var validName = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9._-]*$`)

// Session is one named conversation: the full append-only turn history,
// the running summary, and the fold cursor separating summarized turns
// from verbatim ones.
type Session struct {
	Name              string
	Turns             []chat.Turn
	SystemInstruction string
	Summary           string
	// Cursor marks the fold boundary: Turns[:Cursor] are represented by
	// Summary in the context sent to the backend, Turns[Cursor:] are sent
	// verbatim. The stored history always keeps every turn.
	Cursor    int
	Thinking  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates an empty session with the given name.
func New(name string) (*Session, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Session{
		Name:      name,
		Turns:     make([]chat.Turn, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ValidateName reports whether a session name is acceptable as a
// filesystem name.
func ValidateName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("invalid session name %q: use letters, digits, '.', '_' or '-'", name)
	}
	return nil
}

// Append adds a turn to the history.
func (s *Session) Append(t chat.Turn) {
	s.Turns = append(s.Turns, t)
	s.UpdatedAt = time.Now().UTC()
}

// ContextTurns returns the un-folded turns, the only ones ever sent to
// the backend as raw history.
func (s *Session) ContextTurns() []chat.Turn {
	return s.Turns[s.Cursor:]
}

// Fold replaces the summary and advances the cursor after a successful
// summarization pass. The cursor may only move forward and must stay
// within the history.
func (s *Session) Fold(summary string, cursor int) error {
	if cursor < s.Cursor {
		return fmt.Errorf("fold cursor moved backwards: %d -> %d", s.Cursor, cursor)
	}
	if cursor > len(s.Turns) {
		return fmt.Errorf("fold cursor %d past end of history (%d turns)", cursor, len(s.Turns))
	}
	s.Summary = summary
	s.Cursor = cursor
	s.UpdatedAt = time.Now().UTC()
	return nil
}
