package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kaiwadev/kaiwa/pkg/chat"
	"github.com/kaiwadev/kaiwa/pkg/engine"
	"github.com/kaiwadev/kaiwa/pkg/session"
)

type stubBackend struct{}

func (stubBackend) Invoke(ctx context.Context, req engine.Request) (chat.Turn, engine.Usage, error) {
	return chat.NewTextTurn(chat.RoleModel, "ok"), engine.Usage{}, nil
}

func (stubBackend) Summarize(ctx context.Context, existingSummary string, turns []chat.Turn) (string, error) {
	return "summary", nil
}

func TestOpenOrCreatePersistsThinkingDefault(t *testing.T) {
	store := session.NewFileStore(filepath.Join(t.TempDir(), "sessions"))
	manager := engine.NewManager(store, stubBackend{}, nil, nil)

	if err := openOrCreate(manager, "fresh", true); err != nil {
		t.Fatalf("openOrCreate failed: %v", err)
	}

	// The flag must be on disk immediately, not only after a later save.
	loaded, err := store.Load("fresh")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !loaded.Thinking {
		t.Fatal("Thinking default was not persisted with the new session")
	}
}

func TestOpenOrCreateKeepsExistingSessionFlag(t *testing.T) {
	store := session.NewFileStore(filepath.Join(t.TempDir(), "sessions"))
	manager := engine.NewManager(store, stubBackend{}, nil, nil)

	if err := openOrCreate(manager, "fresh", true); err != nil {
		t.Fatalf("openOrCreate failed: %v", err)
	}
	// Reopening must not override the session's own flag with the default.
	if err := openOrCreate(manager, "fresh", false); err != nil {
		t.Fatalf("openOrCreate failed: %v", err)
	}
	if s := manager.Active(); s == nil || !s.Thinking {
		t.Fatal("Existing session's thinking flag was overridden on reopen")
	}
}

func TestResolveStringFlagPrefersShort(t *testing.T) {
	if got := resolveStringFlag("short", "long"); got != "short" {
		t.Fatalf("Expected short flag to win, got %q", got)
	}
	if got := resolveStringFlag("", "long"); got != "long" {
		t.Fatalf("Expected long flag fallback, got %q", got)
	}
}
