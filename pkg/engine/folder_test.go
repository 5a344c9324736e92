package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kaiwadev/kaiwa/pkg/chat"
	"github.com/kaiwadev/kaiwa/pkg/session"
)

func sessionWithExchanges(t *testing.T, n int) *session.Session {
	t.Helper()
	s, err := session.New("test")
	if err != nil {
		t.Fatalf("session.New failed: %v", err)
	}
	for i := 0; i < n; i++ {
		s.Append(chat.NewTextTurn(chat.RoleUser, strings.Repeat("question ", 10)))
		s.Append(chat.NewTextTurn(chat.RoleModel, strings.Repeat("answer ", 10)))
	}
	return s
}

func TestFoldBelowThresholdIsNoop(t *testing.T) {
	backend := &fakeBackend{}
	folder := NewFolder(backend, session.NewEstimator(), FoldConfig{
		TriggerTokens:   1 << 20,
		MinFoldTurns:    4,
		KeepRecentTurns: 2,
	})
	s := sessionWithExchanges(t, 10)

	folded, err := folder.FoldIfNeeded(context.Background(), s)
	if err != nil {
		t.Fatalf("FoldIfNeeded failed: %v", err)
	}
	if folded || backend.summarizeCalls != 0 {
		t.Fatal("No fold expected below the trigger threshold")
	}
}

func TestFoldRespectsMinFoldTurns(t *testing.T) {
	backend := &fakeBackend{}
	folder := NewFolder(backend, session.NewEstimator(), FoldConfig{
		TriggerTokens:   1,
		MinFoldTurns:    6,
		KeepRecentTurns: 2,
	})
	s := sessionWithExchanges(t, 3) // 6 turns, not more than the minimum

	folded, err := folder.FoldIfNeeded(context.Background(), s)
	if err != nil {
		t.Fatalf("FoldIfNeeded failed: %v", err)
	}
	if folded {
		t.Fatal("A single-minimum history must not be folded")
	}
}

func TestFoldKeepsLastExchangeVerbatim(t *testing.T) {
	backend := &fakeBackend{summary: "compact"}
	folder := NewFolder(backend, session.NewEstimator(), FoldConfig{
		TriggerTokens:   1,
		MinFoldTurns:    4,
		KeepRecentTurns: 2,
	})
	s := sessionWithExchanges(t, 5) // 10 turns

	folded, err := folder.FoldIfNeeded(context.Background(), s)
	if err != nil {
		t.Fatalf("FoldIfNeeded failed: %v", err)
	}
	if !folded {
		t.Fatal("Expected a fold")
	}
	if s.Cursor != 8 {
		t.Fatalf("Expected cursor 8, got %d", s.Cursor)
	}
	if s.Turns[s.Cursor].Role != chat.RoleUser {
		t.Fatal("The verbatim tail must start with a user turn")
	}
	if len(backend.lastSummarized) != 8 {
		t.Fatalf("Expected 8 turns summarized, got %d", len(backend.lastSummarized))
	}
	if len(s.Turns) != 10 {
		t.Fatalf("Folding must not change stored history: %d turns", len(s.Turns))
	}
}

func TestFoldPointWalksBackToUserTurn(t *testing.T) {
	backend := &fakeBackend{summary: "compact"}
	folder := NewFolder(backend, session.NewEstimator(), FoldConfig{
		TriggerTokens:   1,
		MinFoldTurns:    4,
		KeepRecentTurns: 3, // lands on a model turn; must walk back
	})
	s := sessionWithExchanges(t, 5) // 10 turns, index 7 is a model turn

	folded, err := folder.FoldIfNeeded(context.Background(), s)
	if err != nil {
		t.Fatalf("FoldIfNeeded failed: %v", err)
	}
	if !folded {
		t.Fatal("Expected a fold")
	}
	if s.Turns[s.Cursor].Role != chat.RoleUser {
		t.Fatalf("Fold point must align to a user turn, got %s at %d", s.Turns[s.Cursor].Role, s.Cursor)
	}
	if s.Cursor != 6 {
		t.Fatalf("Expected cursor walked back to 6, got %d", s.Cursor)
	}
}

func TestFoldFailureLeavesSessionUntouched(t *testing.T) {
	backend := &fakeBackend{summarizeErr: errors.New("backend down")}
	folder := NewFolder(backend, session.NewEstimator(), FoldConfig{
		TriggerTokens:   1,
		MinFoldTurns:    4,
		KeepRecentTurns: 2,
	})
	s := sessionWithExchanges(t, 5)
	s.Summary = "previous summary"
	if err := s.Fold("previous summary", 2); err != nil {
		t.Fatalf("Setup fold failed: %v", err)
	}

	folded, err := folder.FoldIfNeeded(context.Background(), s)
	if folded {
		t.Fatal("A failed summarization must not fold")
	}
	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("Expected BackendError, got %v", err)
	}
	if s.Cursor != 2 || s.Summary != "previous summary" {
		t.Fatalf("Session changed by a failed fold: cursor=%d summary=%q", s.Cursor, s.Summary)
	}
}

func TestFoldIncludesExistingSummary(t *testing.T) {
	backend := &fakeBackend{summary: "merged"}
	folder := NewFolder(backend, session.NewEstimator(), FoldConfig{
		TriggerTokens:   1,
		MinFoldTurns:    2,
		KeepRecentTurns: 2,
	})
	s := sessionWithExchanges(t, 4)
	if err := s.Fold("old facts", 2); err != nil {
		t.Fatalf("Setup fold failed: %v", err)
	}

	folded, err := folder.FoldIfNeeded(context.Background(), s)
	if err != nil {
		t.Fatalf("FoldIfNeeded failed: %v", err)
	}
	if !folded {
		t.Fatal("Expected a fold")
	}
	if backend.lastExisting != "old facts" {
		t.Fatalf("Existing summary not passed to the backend: %q", backend.lastExisting)
	}
	if len(backend.lastSummarized) != 4 {
		t.Fatalf("Expected the 4 turns between old and new cursor, got %d", len(backend.lastSummarized))
	}
	if s.Summary != "merged" || s.Cursor != 6 {
		t.Fatalf("Expected merged summary at cursor 6, got %q at %d", s.Summary, s.Cursor)
	}
}

func TestSummaryPromptRendersTurns(t *testing.T) {
	turns := []chat.Turn{
		chat.NewTextTurn(chat.RoleUser, "how do I fold history"),
		chat.NewUserTurn("see attached", []chat.Attachment{
			{Path: "design.txt", MediaType: "text/plain", Data: []byte("x")},
		}),
	}
	system, user := SummaryPrompt("", turns)

	if system == "" {
		t.Fatal("Expected a system prompt")
	}
	if !strings.Contains(user, "[user] how do I fold history") {
		t.Fatalf("Turn text missing from prompt:\n%s", user)
	}
	if !strings.Contains(user, "design.txt") {
		t.Fatalf("Attachment name missing from prompt:\n%s", user)
	}
}
