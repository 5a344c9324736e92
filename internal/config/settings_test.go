package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kaiwadev/kaiwa/pkg/engine"
)

func TestLoadSettingsAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"llm":{"backend":"ollama","model":"qwen3"}}`), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if settings.LLM.Backend != "ollama" || settings.LLM.Model != "qwen3" {
		t.Fatalf("Explicit fields lost: %+v", settings.LLM)
	}
	if settings.Engine.TriggerTokens != engine.DefaultTriggerTokens {
		t.Fatalf("Expected default trigger tokens, got %d", settings.Engine.TriggerTokens)
	}
	if settings.Engine.SessionsDir == "" {
		t.Fatal("Expected a default sessions directory")
	}
	if settings.LogLevel != "info" {
		t.Fatalf("Expected default log level, got %q", settings.LogLevel)
	}
}

func TestLoadSettingsCreatesFileWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "settings.json")

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if settings.LLM.Backend == "" {
		t.Fatal("Expected default backend")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected settings file to be created: %v", err)
	}
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	settings := GetDefaultSettings()
	settings.LLM.Backend = "gemini"
	settings.Engine.TriggerTokens = 4096

	if err := SaveSettings(path, settings); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	loaded, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if loaded.LLM.Backend != "gemini" || loaded.Engine.TriggerTokens != 4096 {
		t.Fatalf("Settings did not round-trip: %+v", loaded)
	}
}

func TestValidateSettingsRejectsUnknownBackend(t *testing.T) {
	settings := GetDefaultSettings()
	settings.LLM.Backend = "mainframe"
	if err := ValidateSettings(settings); err == nil {
		t.Fatal("Expected unknown backend to be rejected")
	}
}

func TestFoldConfigFromSettings(t *testing.T) {
	e := EngineSettings{TriggerTokens: 1000, MinFoldTurns: 3, KeepRecentTurns: 4, CharsPerToken: 5}
	cfg := e.FoldConfig()
	if cfg.TriggerTokens != 1000 || cfg.MinFoldTurns != 3 || cfg.KeepRecentTurns != 4 {
		t.Fatalf("FoldConfig lost values: %+v", cfg)
	}
	if est := e.Estimator(); est.CharsPerToken != 5 {
		t.Fatalf("Estimator lost chars-per-token: %d", est.CharsPerToken)
	}
}
