package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/kaiwadev/kaiwa/pkg/session"
)

// SlashCommand represents a command that starts with /
type SlashCommand struct {
	Name        string
	Description string
	Handler     func(ctx context.Context, c *Chat, args []string) bool // Returns true if should exit
}

// getSlashCommands returns all available slash commands
func getSlashCommands() []SlashCommand {
	return []SlashCommand{
		{
			Name:        "help",
			Description: "Show available commands and usage information",
			Handler: func(ctx context.Context, c *Chat, args []string) bool {
				showHelp(c)
				return false
			},
		},
		{
			Name:        "sessions",
			Description: "List saved sessions",
			Handler:     cmdSessions,
		},
		{
			Name:        "new",
			Description: "Create a session: /new <name>",
			Handler:     cmdNew,
		},
		{
			Name:        "switch",
			Description: "Switch to a saved session: /switch [name]",
			Handler:     cmdSwitch,
		},
		{
			Name:        "delete",
			Description: "Delete a saved session: /delete <name>",
			Handler:     cmdDelete,
		},
		{
			Name:        "attach",
			Description: "Stage a file for the next message: /attach <path>",
			Handler:     cmdAttach,
		},
		{
			Name:        "attachments",
			Description: "List staged attachments",
			Handler:     cmdAttachments,
		},
		{
			Name:        "drop",
			Description: "Clear staged attachments without sending",
			Handler: func(ctx context.Context, c *Chat, args []string) bool {
				c.manager.ClearStaged()
				fmt.Fprintln(c.out, "🧹 Staged attachments cleared.")
				return false
			},
		},
		{
			Name:        "system",
			Description: "Set the system instruction: /system <preset name or free text>",
			Handler:     cmdSystem,
		},
		{
			Name:        "thinking",
			Description: "Toggle thinking mode: /thinking on|off",
			Handler:     cmdThinking,
		},
		{
			Name:        "tokens",
			Description: "Show the estimated token cost of the current context",
			Handler:     cmdTokens,
		},
		{
			Name:        "view",
			Description: "Show the full stored history: /view [last-n]",
			Handler:     cmdView,
		},
		{
			Name:        "summarize",
			Description: "Fold older history into the summary now",
			Handler:     cmdSummarize,
		},
		{
			Name:        "quit",
			Description: "Exit the interactive session",
			Handler: func(ctx context.Context, c *Chat, args []string) bool {
				fmt.Fprintln(c.out, "👋 Goodbye!")
				return true
			},
		},
		{
			Name:        "exit",
			Description: "Exit the interactive session (alias for quit)",
			Handler: func(ctx context.Context, c *Chat, args []string) bool {
				fmt.Fprintln(c.out, "👋 Goodbye!")
				return true
			},
		},
	}
}

// handleSlashCommand processes commands that start with /
// Returns true if the command requests program exit, false otherwise
func handleSlashCommand(ctx context.Context, input string, c *Chat) bool {
	// A bare "/" opens the interactive command selector.
	if strings.TrimSpace(input) == "/" {
		return showCommandSelector(ctx, c)
	}

	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false
	}

	commandName := strings.TrimPrefix(parts[0], "/")
	args := parts[1:]

	for _, cmd := range getSlashCommands() {
		if cmd.Name == commandName {
			return cmd.Handler(ctx, c, args)
		}
	}

	fmt.Fprintf(c.out, "❌ Unknown command: /%s\n", commandName)
	fmt.Fprintln(c.out, "💡 Type /help for the command list, or just '/' for a selector.")
	return false
}

// showCommandSelector shows an interactive command selector using promptui
func showCommandSelector(ctx context.Context, c *Chat) bool {
	commands := getSlashCommands()

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}?",
		Active:   "▸ {{ .Name | cyan }} - {{ .Description | faint }}",
		Inactive: "  {{ .Name | cyan }} - {{ .Description | faint }}",
		Selected: "{{ .Name | cyan }}",
	}

	searcher := func(input string, index int) bool {
		name := strings.ToLower(commands[index].Name)
		return strings.Contains(name, strings.ToLower(strings.TrimSpace(input)))
	}

	prompt := promptui.Select{
		Label:     "Choose a command",
		Items:     commands,
		Templates: templates,
		Size:      10,
		Searcher:  searcher,
	}

	i, _, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			fmt.Fprintln(c.out, "\nCancelled.")
			return false
		}
		fmt.Fprintf(c.out, "Command selection failed: %v\n", err)
		return false
	}
	return commands[i].Handler(ctx, c, nil)
}

func cmdSessions(ctx context.Context, c *Chat, args []string) bool {
	names, err := c.manager.Sessions()
	if err != nil {
		fmt.Fprintf(c.out, "❌ Failed to list sessions: %v\n", err)
		return false
	}
	if len(names) == 0 {
		fmt.Fprintln(c.out, "📭 No saved sessions. Create one with /new <name>.")
		return false
	}
	active := c.activeName()
	for _, name := range names {
		marker := "  "
		if name == active {
			marker = "▸ "
		}
		fmt.Fprintf(c.out, "%s%s\n", marker, name)
	}
	return false
}

func cmdNew(ctx context.Context, c *Chat, args []string) bool {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: /new <name>")
		return false
	}
	name := args[0]
	if _, err := c.manager.NewSession(name); err != nil {
		if errors.Is(err, session.ErrAlreadyExists) {
			fmt.Fprintf(c.out, "❌ Session %q already exists. Use /switch %s.\n", name, name)
			return false
		}
		fmt.Fprintf(c.out, "❌ Failed to create session: %v\n", err)
		return false
	}
	fmt.Fprintf(c.out, "✨ Session %q created and active.\n", name)
	return false
}

func cmdSwitch(ctx context.Context, c *Chat, args []string) bool {
	name := ""
	if len(args) > 0 {
		name = args[0]
	} else {
		picked, ok := pickSession(c)
		if !ok {
			return false
		}
		name = picked
	}

	s, err := c.manager.SwitchSession(name)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			fmt.Fprintf(c.out, "❌ No session named %q. Create it with /new %s.\n", name, name)
			return false
		}
		fmt.Fprintf(c.out, "❌ Failed to load session: %v\n", err)
		return false
	}
	fmt.Fprintf(c.out, "💬 Switched to %q (%d turns).\n", s.Name, len(s.Turns))
	return false
}

// pickSession shows a promptui selector over the saved session names.
func pickSession(c *Chat) (string, bool) {
	names, err := c.manager.Sessions()
	if err != nil || len(names) == 0 {
		fmt.Fprintln(c.out, "📭 No saved sessions to switch to.")
		return "", false
	}
	prompt := promptui.Select{
		Label: "Choose a session",
		Items: names,
		Size:  10,
	}
	_, name, err := prompt.Run()
	if err != nil {
		if err != promptui.ErrInterrupt {
			fmt.Fprintf(c.out, "Session selection failed: %v\n", err)
		}
		return "", false
	}
	return name, true
}

func cmdDelete(ctx context.Context, c *Chat, args []string) bool {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: /delete <name>")
		return false
	}
	name := args[0]

	confirm := promptui.Prompt{
		Label:     fmt.Sprintf("Delete session %q permanently", name),
		IsConfirm: true,
	}
	if _, err := confirm.Run(); err != nil {
		fmt.Fprintln(c.out, "Cancelled.")
		return false
	}

	if err := c.manager.DeleteSession(name); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			fmt.Fprintf(c.out, "❌ No session named %q.\n", name)
			return false
		}
		fmt.Fprintf(c.out, "❌ Failed to delete session: %v\n", err)
		return false
	}
	fmt.Fprintf(c.out, "🗑️ Session %q deleted.\n", name)
	if c.manager.Active() == nil {
		fmt.Fprintln(c.out, "💡 That was the active session; select another with /switch or /new.")
	}
	return false
}

func cmdAttach(ctx context.Context, c *Chat, args []string) bool {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: /attach <path>")
		return false
	}
	a, err := c.manager.Attach(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "❌ %v\n", err)
		return false
	}
	fmt.Fprintf(c.out, "📎 Staged %s (%s, %d bytes). It will be sent with your next message.\n",
		a.Name(), a.MediaType, len(a.Data))
	return false
}

func cmdAttachments(ctx context.Context, c *Chat, args []string) bool {
	staged := c.manager.Staged()
	if len(staged) == 0 {
		fmt.Fprintln(c.out, "📭 No staged attachments.")
		return false
	}
	for _, a := range staged {
		fmt.Fprintf(c.out, "  📎 %s (%s, %d bytes)\n", a.Path, a.MediaType, len(a.Data))
	}
	return false
}

func cmdSystem(ctx context.Context, c *Chat, args []string) bool {
	if len(args) == 0 {
		if s := c.manager.Active(); s != nil && s.SystemInstruction != "" {
			fmt.Fprintf(c.out, "Current system instruction:\n%s\n", s.SystemInstruction)
		} else {
			fmt.Fprintln(c.out, "No system instruction set.")
		}
		fmt.Fprintf(c.out, "Presets: %s\n", strings.Join(c.presets.Names(), ", "))
		return false
	}

	instruction := strings.Join(args, " ")
	if preset, ok := c.presets[args[0]]; ok && len(args) == 1 {
		instruction = preset.Instruction
		fmt.Fprintf(c.out, "📜 Using preset %q.\n", preset.Name)
	}

	if err := c.manager.SetSystemInstruction(instruction); err != nil {
		fmt.Fprintf(c.out, "❌ %v\n", err)
		return false
	}
	fmt.Fprintln(c.out, "✅ System instruction updated.")
	return false
}

func cmdThinking(ctx context.Context, c *Chat, args []string) bool {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		fmt.Fprintln(c.out, "Usage: /thinking on|off")
		return false
	}
	if err := c.manager.SetThinking(args[0] == "on"); err != nil {
		fmt.Fprintf(c.out, "❌ %v\n", err)
		return false
	}
	fmt.Fprintf(c.out, "💭 Thinking mode %s.\n", args[0])
	return false
}

func cmdTokens(ctx context.Context, c *Chat, args []string) bool {
	s := c.manager.Active()
	if s == nil {
		fmt.Fprintln(c.out, "❌ No active session.")
		return false
	}
	fmt.Fprintf(c.out, "📊 Estimated context: ~%d tokens (%d verbatim turns",
		c.manager.ContextTokens(), len(s.ContextTurns()))
	if s.Summary != "" {
		fmt.Fprintf(c.out, " + summary of %d folded turns", s.Cursor)
	}
	fmt.Fprintln(c.out, ")")
	return false
}

func cmdView(ctx context.Context, c *Chat, args []string) bool {
	s := c.manager.Active()
	if s == nil {
		fmt.Fprintln(c.out, "❌ No active session.")
		return false
	}

	turns := s.Turns
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			fmt.Fprintln(c.out, "Usage: /view [last-n]")
			return false
		}
		if n < len(turns) {
			turns = turns[len(turns)-n:]
		}
	}

	if len(turns) == 0 {
		fmt.Fprintln(c.out, "📜 No conversation history yet.")
		return false
	}
	for _, t := range turns {
		fmt.Fprintf(c.out, "[%s] %s\n", t.Role, strings.TrimSpace(t.Text()))
		for _, name := range t.FileNames() {
			fmt.Fprintf(c.out, "  📎 %s\n", name)
		}
	}
	return false
}

func cmdSummarize(ctx context.Context, c *Chat, args []string) bool {
	folded, err := c.manager.Summarize(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "⚠️ Summarization failed (history unchanged): %v\n", err)
		return false
	}
	if !folded {
		fmt.Fprintln(c.out, "📜 Nothing to fold yet.")
		return false
	}
	s := c.manager.Active()
	fmt.Fprintf(c.out, "📝 History folded: %d turns summarized, %d kept verbatim.\n",
		s.Cursor, len(s.ContextTurns()))
	return false
}

func showHelp(c *Chat) {
	fmt.Fprintln(c.out, "💬 Type a message to chat; commands start with '/'.")
	fmt.Fprintln(c.out)
	for _, cmd := range getSlashCommands() {
		fmt.Fprintf(c.out, "  /%-12s %s\n", cmd.Name, cmd.Description)
	}
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "💡 Tip: type just '/' to see an interactive command selector!")
}
