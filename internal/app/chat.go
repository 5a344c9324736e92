// Package app is the interactive REPL: thin glue between the terminal
// and the conversation engine. All invariants live in pkg/engine and
// pkg/session; this package only parses input and prints results.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kaiwadev/kaiwa/internal/prompts"
	"github.com/kaiwadev/kaiwa/pkg/engine"
	pkgLogger "github.com/kaiwadev/kaiwa/pkg/logger"
)

// Chat drives one interactive conversation UI over an engine.Manager.
type Chat struct {
	manager *engine.Manager
	presets prompts.PresetMap
	logger  *pkgLogger.Logger
	out     io.Writer
}

// NewChat wires the REPL to its collaborators.
func NewChat(manager *engine.Manager, presets prompts.PresetMap, logger *pkgLogger.Logger, out io.Writer) *Chat {
	return &Chat{
		manager: manager,
		presets: presets,
		logger:  logger,
		out:     out,
	}
}

// Manager exposes the underlying engine, used by one-shot mode.
func (c *Chat) Manager() *engine.Manager { return c.manager }

// Send routes one user message through the engine and prints the reply.
func (c *Chat) Send(ctx context.Context, text string) {
	reply, usage, err := c.manager.SendMessage(ctx, text)
	if err != nil {
		var backendErr *engine.BackendError
		if errors.As(err, &backendErr) {
			fmt.Fprintf(c.out, "❌ The model call failed: %v\n", backendErr.Err)
			fmt.Fprintln(c.out, "💡 Your message was saved; try sending again.")
			return
		}
		if errors.Is(err, engine.ErrNoActiveSession) {
			fmt.Fprintln(c.out, "❌ No active session. Use /new <name> or /switch first.")
			return
		}
		fmt.Fprintf(c.out, "❌ Send failed: %v\n", err)
		return
	}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, strings.TrimSpace(reply.Text()))
	fmt.Fprintln(c.out)
	c.logger.Debug("Exchange complete",
		"input_tokens", usage.InputTokens, "output_tokens", usage.OutputTokens)
}

// activeName returns the active session name for the prompt, or "".
func (c *Chat) activeName() string {
	if s := c.manager.Active(); s != nil {
		return s.Name
	}
	return ""
}
