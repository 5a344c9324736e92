// Package config loads and persists application settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kaiwadev/kaiwa/pkg/engine"
	"github.com/kaiwadev/kaiwa/pkg/session"
)

const settingsDirName = ".kaiwa"

// Settings represents the main application settings
type Settings struct {
	LLM      LLMSettings    `json:"llm"`
	Engine   EngineSettings `json:"engine"`
	LogLevel string         `json:"log_level,omitempty"`
}

// LLMSettings contains model backend configuration
type LLMSettings struct {
	Backend   string `json:"backend"`              // "ollama", "anthropic", "openai", or "gemini"
	Model     string `json:"model,omitempty"`      // model name (empty = backend default)
	Thinking  bool   `json:"thinking,omitempty"`   // default thinking mode for new sessions
	MaxTokens int    `json:"max_tokens,omitempty"` // maximum tokens for model responses (0 = backend default)
}

// EngineSettings contains conversation engine configuration
type EngineSettings struct {
	SessionsDir     string `json:"sessions_dir,omitempty"`      // where session records live
	TriggerTokens   int    `json:"trigger_tokens,omitempty"`    // estimated context size that triggers a fold
	MinFoldTurns    int    `json:"min_fold_turns,omitempty"`    // minimum un-folded turns before folding
	KeepRecentTurns int    `json:"keep_recent_turns,omitempty"` // trailing turns kept verbatim
	CharsPerToken   int    `json:"chars_per_token,omitempty"`   // token estimator heuristic
}

// FoldConfig converts the engine settings into a fold policy.
func (e EngineSettings) FoldConfig() engine.FoldConfig {
	return engine.FoldConfig{
		TriggerTokens:   e.TriggerTokens,
		MinFoldTurns:    e.MinFoldTurns,
		KeepRecentTurns: e.KeepRecentTurns,
	}
}

// Estimator converts the engine settings into a token estimator.
func (e EngineSettings) Estimator() *session.Estimator {
	est := session.NewEstimator()
	if e.CharsPerToken > 0 {
		est.CharsPerToken = e.CharsPerToken
	}
	return est
}

// LoadSettings loads application settings from a JSON file. An empty
// path searches the usual locations and falls back to defaults, writing
// a default settings file on first run.
func LoadSettings(configPath string) (*Settings, error) {
	if configPath == "" {
		configPath = findSettingsFile()
		if configPath == "" {
			return createDefaultSettingsFile()
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		settings := GetDefaultSettings()
		if err := SaveSettings(configPath, settings); err != nil {
			return settings, nil // defaults still usable without the file
		}
		return settings, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	applyDefaults(&settings)
	return &settings, nil
}

// SaveSettings saves application settings to a JSON file
func SaveSettings(configPath string, settings *Settings) error {
	if configPath == "" {
		configPath = findSettingsFile()
		if configPath == "" {
			configPath = defaultSettingsPath()
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// GetDefaultSettings returns default application settings
func GetDefaultSettings() *Settings {
	return &Settings{
		LLM: LLMSettings{
			Backend:  "anthropic",
			Thinking: false,
		},
		Engine: EngineSettings{
			SessionsDir:     defaultSessionsDir(),
			TriggerTokens:   engine.DefaultTriggerTokens,
			MinFoldTurns:    engine.DefaultMinFoldTurns,
			KeepRecentTurns: engine.DefaultKeepRecentTurns,
			CharsPerToken:   session.DefaultCharsPerToken,
		},
		LogLevel: "info",
	}
}

// ValidateSettings validates the settings configuration
func ValidateSettings(settings *Settings) error {
	switch settings.LLM.Backend {
	case "ollama", "anthropic", "openai", "gemini":
	default:
		return fmt.Errorf("unsupported LLM backend: %s (must be 'ollama', 'anthropic', 'openai', or 'gemini')", settings.LLM.Backend)
	}

	if settings.Engine.TriggerTokens < 0 || settings.Engine.MinFoldTurns < 0 || settings.Engine.KeepRecentTurns < 0 {
		return fmt.Errorf("engine thresholds must not be negative")
	}
	return nil
}

// applyDefaults fills in missing fields with default values
func applyDefaults(settings *Settings) {
	defaults := GetDefaultSettings()

	if settings.LLM.Backend == "" {
		settings.LLM.Backend = defaults.LLM.Backend
	}
	if settings.Engine.SessionsDir == "" {
		settings.Engine.SessionsDir = defaults.Engine.SessionsDir
	}
	if settings.Engine.TriggerTokens == 0 {
		settings.Engine.TriggerTokens = defaults.Engine.TriggerTokens
	}
	if settings.Engine.MinFoldTurns == 0 {
		settings.Engine.MinFoldTurns = defaults.Engine.MinFoldTurns
	}
	if settings.Engine.KeepRecentTurns == 0 {
		settings.Engine.KeepRecentTurns = defaults.Engine.KeepRecentTurns
	}
	if settings.Engine.CharsPerToken == 0 {
		settings.Engine.CharsPerToken = defaults.Engine.CharsPerToken
	}
	if settings.LogLevel == "" {
		settings.LogLevel = defaults.LogLevel
	}
}

// createDefaultSettingsFile writes defaults to the home settings path
// and returns them.
func createDefaultSettingsFile() (*Settings, error) {
	settings := GetDefaultSettings()
	if err := SaveSettings(defaultSettingsPath(), settings); err != nil {
		// Defaults remain usable even if the file can't be written.
		return settings, nil
	}
	return settings, nil
}

// findSettingsFile searches for settings.json in order of preference:
// 1. .kaiwa/settings.json in the current directory
// 2. $HOME/.kaiwa/settings.json
// Returns empty string if none found
func findSettingsFile() string {
	currentDirPath := filepath.Join(settingsDirName, "settings.json")
	if _, err := os.Stat(currentDirPath); err == nil {
		return currentDirPath
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		homeDirPath := filepath.Join(homeDir, settingsDirName, "settings.json")
		if _, err := os.Stat(homeDirPath); err == nil {
			return homeDirPath
		}
	}
	return ""
}

func defaultSettingsPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(settingsDirName, "settings.json")
	}
	return filepath.Join(homeDir, settingsDirName, "settings.json")
}

func defaultSessionsDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(settingsDirName, "sessions")
	}
	return filepath.Join(homeDir, settingsDirName, "sessions")
}
