// Package client selects a concrete model backend implementation.
package client

import (
	"fmt"
	"strings"

	"github.com/kaiwadev/kaiwa/pkg/client/anthropic"
	"github.com/kaiwadev/kaiwa/pkg/client/gemini"
	"github.com/kaiwadev/kaiwa/pkg/client/ollama"
	"github.com/kaiwadev/kaiwa/pkg/client/openai"
	"github.com/kaiwadev/kaiwa/pkg/engine"
)

// New creates the backend named by the settings. maxTokens of 0 uses
// each backend's default.
func New(backend, model string, maxTokens int) (engine.Backend, error) {
	switch strings.ToLower(backend) {
	case "anthropic":
		return anthropic.New(model, maxTokens)
	case "openai":
		return openai.New(model, maxTokens)
	case "gemini":
		return gemini.New(model, maxTokens)
	case "ollama":
		return ollama.New(model, maxTokens)
	default:
		return nil, fmt.Errorf("unknown backend %q (want anthropic, openai, gemini, or ollama)", backend)
	}
}
