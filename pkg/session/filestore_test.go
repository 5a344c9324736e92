package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kaiwadev/kaiwa/pkg/chat"
)

func newTestSession(t *testing.T, name string) *Session {
	t.Helper()
	s, err := New(name)
	if err != nil {
		t.Fatalf("New(%q) failed: %v", name, err)
	}
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewFileStore(t.TempDir())

	s := newTestSession(t, "demo")
	s.SystemInstruction = "be terse"
	s.Thinking = true
	s.Append(chat.NewUserTurn("hello", []chat.Attachment{
		{Path: "/tmp/notes.txt", MediaType: "text/plain", Data: []byte("notes body")},
	}))
	s.Append(chat.NewTextTurn(chat.RoleModel, "hi there"))
	if err := s.Fold("earlier: greetings", 0); err != nil {
		t.Fatalf("Fold failed: %v", err)
	}

	if err := store.Save(s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load("demo")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Name != s.Name ||
		loaded.SystemInstruction != s.SystemInstruction ||
		loaded.Summary != s.Summary ||
		loaded.Cursor != s.Cursor ||
		loaded.Thinking != s.Thinking {
		t.Fatalf("Session fields did not round-trip: %+v vs %+v", loaded, s)
	}
	if len(loaded.Turns) != len(s.Turns) {
		t.Fatalf("Expected %d turns, got %d", len(s.Turns), len(loaded.Turns))
	}
	for i := range s.Turns {
		if !loaded.Turns[i].Equal(s.Turns[i]) {
			t.Fatalf("Turn %d did not round-trip exactly", i)
		}
	}
}

func TestLoadMissingSession(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if _, err := store.Load("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "sessions")
	store := NewFileStore(dir)

	if err := store.Save(newTestSession(t, "a")); err != nil {
		t.Fatalf("Save should create the directory: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.json")); err != nil {
		t.Fatalf("Expected record file: %v", err)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	s := newTestSession(t, "tidy")
	for i := 0; i < 5; i++ {
		s.Append(chat.NewTextTurn(chat.RoleUser, "ping"))
		if err := store.Save(s); err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("Leftover temp file after save: %s", e.Name())
		}
	}
}

func TestListLexicographic(t *testing.T) {
	store := NewFileStore(t.TempDir())
	for _, name := range []string{"zebra", "alpha", "mid"} {
		if err := store.Save(newTestSession(t, name)); err != nil {
			t.Fatalf("Save(%s) failed: %v", name, err)
		}
	}

	names, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"alpha", "mid", "zebra"}
	if len(names) != len(want) {
		t.Fatalf("Expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, names)
		}
	}
}

func TestListEmptyStore(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "never-created"))
	names, err := store.List()
	if err != nil {
		t.Fatalf("List on missing directory should not fail: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("Expected no names, got %v", names)
	}
}

func TestDeleteThenLoadFails(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.Save(newTestSession(t, "gone")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Delete("gone"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load("gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}
	// Repeat delete fails; deletion is not idempotent.
	if err := store.Delete("gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestInvalidSessionNames(t *testing.T) {
	store := NewFileStore(t.TempDir())
	for _, name := range []string{"", "../escape", "has space", ".hidden", "a/b"} {
		if err := ValidateName(name); err == nil {
			t.Fatalf("Expected %q to be rejected", name)
		}
		if _, err := store.Load(name); err == nil {
			t.Fatalf("Load(%q) should fail", name)
		}
	}
}

func TestFoldCursorNeverDecreases(t *testing.T) {
	s := newTestSession(t, "demo")
	for i := 0; i < 6; i++ {
		s.Append(chat.NewTextTurn(chat.RoleUser, "u"))
		s.Append(chat.NewTextTurn(chat.RoleModel, "m"))
	}

	if err := s.Fold("first summary", 4); err != nil {
		t.Fatalf("Fold failed: %v", err)
	}
	if err := s.Fold("second summary", 8); err != nil {
		t.Fatalf("Second fold failed: %v", err)
	}
	if err := s.Fold("bad", 2); err == nil {
		t.Fatal("Fold must reject a cursor moving backwards")
	}
	if err := s.Fold("bad", 99); err == nil {
		t.Fatal("Fold must reject a cursor past the end of history")
	}
	if s.Cursor != 8 || s.Summary != "second summary" {
		t.Fatalf("Failed folds must not change state: cursor=%d summary=%q", s.Cursor, s.Summary)
	}
}
