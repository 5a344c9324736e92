package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/kaiwadev/kaiwa/internal/app"
	"github.com/kaiwadev/kaiwa/internal/config"
	"github.com/kaiwadev/kaiwa/internal/prompts"
	"github.com/kaiwadev/kaiwa/pkg/client"
	"github.com/kaiwadev/kaiwa/pkg/engine"
	pkgLogger "github.com/kaiwadev/kaiwa/pkg/logger"
	"github.com/kaiwadev/kaiwa/pkg/session"
)

const defaultSessionName = "default"

// resolveStringFlag returns the non-empty value, preferring short flag over long flag
func resolveStringFlag(shortVal, longVal string) string {
	if shortVal != "" {
		return shortVal
	}
	return longVal
}

func printUsage() {
	fmt.Println("kaiwa - persistent multi-session chat for hosted language models")
	fmt.Println()
	fmt.Println("Conversations are saved per session and old history is folded into a")
	fmt.Println("running summary so long sessions stay within the model's context.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  kaiwa                                  # Interactive mode, 'default' session")
	fmt.Println("  kaiwa -S work                          # Interactive mode, 'work' session")
	fmt.Println("  kaiwa \"explain this error\"             # One-shot message to the default session")
	fmt.Println("  kaiwa -b openai -m gpt-4o              # Pick backend and model")
	fmt.Println("  kaiwa -l                               # List saved sessions and exit")
	fmt.Println("  kaiwa -v                               # Verbose debug logging")
	fmt.Println()
}

func main() {
	ctx := context.Background()

	var backend = flag.String("b", "", "LLM backend (ollama, anthropic, openai, or gemini)")
	var backendLong = flag.String("backend", "", "LLM backend (ollama, anthropic, openai, or gemini)")
	var model = flag.String("m", "", "Model name to use")
	var modelLong = flag.String("model", "", "Model name to use")
	var sessionName = flag.String("S", "", "Session name to open")
	var sessionLong = flag.String("session", "", "Session name to open")
	var settingsPath = flag.String("settings", "", "Path to settings file")
	var listSessions = flag.Bool("l", false, "List saved sessions and exit")
	var listLong = flag.Bool("list", false, "List saved sessions and exit")
	var verbose = flag.Bool("v", false, "Enable verbose logging (debug level)")
	var verboseLong = flag.Bool("verbose", false, "Enable verbose logging (debug level)")
	var help = flag.Bool("h", false, "Show this help message")
	var helpLong = flag.Bool("help", false, "Show this help message")

	flag.Usage = func() {
		printUsage()
		fmt.Println("Flags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *help || *helpLong {
		flag.Usage()
		return
	}

	// API keys may live in a local .env during development.
	_ = godotenv.Load()

	settings, err := config.LoadSettings(*settingsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load settings: %v\n", err)
		os.Exit(1)
	}
	if b := resolveStringFlag(*backend, *backendLong); b != "" {
		settings.LLM.Backend = b
	}
	if m := resolveStringFlag(*model, *modelLong); m != "" {
		settings.LLM.Model = m
	}
	if err := config.ValidateSettings(settings); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Invalid settings: %v\n", err)
		os.Exit(1)
	}

	if *verbose || *verboseLong {
		pkgLogger.SetGlobalLogLevel(pkgLogger.LogLevelDebug)
	} else {
		pkgLogger.SetGlobalLogLevel(pkgLogger.LogLevel(settings.LogLevel))
	}
	logger := pkgLogger.NewComponentLogger("main")

	store := session.NewFileStore(settings.Engine.SessionsDir)

	if *listSessions || *listLong {
		names, err := store.List()
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ Failed to list sessions: %v\n", err)
			os.Exit(1)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	backendClient, err := client.New(settings.LLM.Backend, settings.LLM.Model, settings.LLM.MaxTokens)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to create %s backend: %v\n", settings.LLM.Backend, err)
		os.Exit(1)
	}

	estimator := settings.Engine.Estimator()
	folder := engine.NewFolder(backendClient, estimator, settings.Engine.FoldConfig())
	manager := engine.NewManager(store, backendClient, folder, estimator)

	name := resolveStringFlag(*sessionName, *sessionLong)
	if name == "" {
		name = defaultSessionName
	}
	if err := openOrCreate(manager, name, settings.LLM.Thinking); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to open session %q: %v\n", name, err)
		os.Exit(1)
	}
	logger.Debug("Session ready", "session", name, "backend", settings.LLM.Backend)

	presets, err := prompts.LoadBuiltinPresets()
	if err != nil {
		logger.Warn("Failed to load system instruction presets", "error", err)
		presets = make(prompts.PresetMap)
	}

	chat := app.NewChat(manager, presets, logger, os.Stdout)

	// One-shot mode: remaining args form a single message.
	if flag.NArg() > 0 {
		chat.Send(ctx, strings.Join(flag.Args(), " "))
		return
	}

	fmt.Printf("🧠 %s / %s — session %q\n", settings.LLM.Backend, displayModel(settings), name)
	app.StartInteractiveMode(ctx, chat)
}

// openOrCreate switches to the named session, creating it on first use.
func openOrCreate(manager *engine.Manager, name string, thinking bool) error {
	_, err := manager.SwitchSession(name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, session.ErrNotFound) {
		return err
	}
	if _, err := manager.NewSession(name); err != nil {
		return err
	}
	return manager.SetThinking(thinking)
}

func displayModel(settings *config.Settings) string {
	if settings.LLM.Model != "" {
		return settings.LLM.Model
	}
	return "default model"
}
