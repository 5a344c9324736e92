package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// StartInteractiveMode runs the readline-based REPL
func StartInteractiveMode(ctx context.Context, c *Chat) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            promptFor(c),
		HistoryFile:       "",
		AutoComplete:      createAutoCompleter(c),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		HistoryLimit:      2000,
	})
	if err != nil {
		fmt.Fprintf(c.out, "❌ Failed to initialize interactive mode: %v\n", err)
		return
	}
	defer rl.Close()

	fmt.Fprintln(c.out, "💬 Commands start with '/', everything else is sent to the model.")
	fmt.Fprintln(c.out, "⌨️ Tab completes commands; Ctrl+R searches this session's input.")
	fmt.Fprintln(c.out, strings.Repeat("=", 60))

	for {
		rl.SetPrompt(promptFor(c))

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if handleSlashCommand(ctx, input, c) {
				break
			}
			continue
		}

		c.Send(ctx, input)
	}
}

// promptFor shows the active session name in the prompt so it is always
// clear where a message will land.
func promptFor(c *Chat) string {
	if name := c.activeName(); name != "" {
		return fmt.Sprintf("[%s] > ", name)
	}
	return "> "
}

// createAutoCompleter builds tab completion for slash commands, with
// session names completed for the commands that take one.
func createAutoCompleter(c *Chat) readline.AutoCompleter {
	sessionNames := func(string) []string {
		names, err := c.manager.Sessions()
		if err != nil {
			return nil
		}
		return names
	}

	items := make([]readline.PrefixCompleterInterface, 0, 16)
	for _, cmd := range getSlashCommands() {
		switch cmd.Name {
		case "switch", "delete":
			items = append(items, readline.PcItem("/"+cmd.Name, readline.PcItemDynamic(sessionNames)))
		default:
			items = append(items, readline.PcItem("/"+cmd.Name))
		}
	}
	return readline.NewPrefixCompleter(items...)
}
