package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/expense-snap/internal/capture"
	"github.com/zombor/expense-snap/internal/category"
	"github.com/zombor/expense-snap/internal/extraction"
	"github.com/zombor/expense-snap/internal/receipt"
	"github.com/zombor/expense-snap/internal/retry"
	"github.com/zombor/expense-snap/internal/scanning"
	"github.com/zombor/expense-snap/internal/trigger"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("expense-snap")
	var (
		port            = fs.IntLong("port", 8080, "HTTP server port")
		dbPath          = fs.StringLong("db", "expense-snap.db", "Database file path")
		storagePath     = fs.StringLong("storage", "./captures", "Directory for captured screen images")
		engineType      = fs.StringLong("engine", "gemini", "Text recognition engine: 'gemini' or 'ollama'")
		geminiKey       = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel     = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL       = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel     = fs.StringLong("ollama-model", "qwen2.5vl", "Ollama vision model name")
		captureType     = fs.StringLong("capture", "screen", "Capture source: 'screen' or 'file'")
		captureFile     = fs.StringLong("capture-file", "", "Image or PDF read by the 'file' capture source")
		display         = fs.IntLong("display", 0, "Display index for screen capture")
		serialPort      = fs.StringLong("serial-port", "", "Serial device that sends one line per trigger gesture (optional)")
		serialBaud      = fs.IntLong("serial-baud", 9600, "Serial baud rate")
		stdinTrigger    = fs.BoolLong("stdin-trigger", "Trigger on every line read from stdin")
		triggerInterval = fs.DurationLong("trigger-interval", 0, "Trigger periodically (0 disables)")
		categoriesPath  = fs.StringLong("categories", "", "YAML category keyword table (optional)")
		confirmWindow   = fs.DurationLong("confirm-window", receipt.DefaultConfirmWindow, "Time to cancel before the screen is captured")
		cooldown        = fs.DurationLong("cooldown", receipt.DefaultCooldown, "Delay before returning to idle after a cancel")
		maxRetries      = fs.IntLong("max-retries", retry.DefaultMaxRetries, "Retries for transient recognition errors")
		retryDelays     = fs.StringLong("retry-delays", "1s,2s,5s", "Comma separated retry delays; the last one repeats")
		minBlockConf    = fs.Float64Long("min-block-confidence", 0.3, "Drop text blocks below this confidence")
		minOverallConf  = fs.Float64Long("min-overall-confidence", 0.5, "Fail recognition below this mean confidence")
		authUser        = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass        = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel        = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		showVersion     = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("EXPENSE_SNAP"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	var level slog.LevelVar
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level})))

	delays, err := parseDelays(*retryDelays)
	if err != nil {
		slog.Error("Invalid retry delays", "value", *retryDelays, "error", err)
		os.Exit(1)
	}
	if err := validateMaxRetries(*maxRetries); err != nil {
		slog.Error("Invalid max retries", "value", *maxRetries, "error", err)
		os.Exit(1)
	}

	slog.Info("Initializing database...")
	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var engine scanning.Engine
	switch *engineType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini engine...", "model", *geminiModel)
		engine, err = scanning.NewGemini(apiKey, *geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama engine...", "url", *ollamaURL, "model", *ollamaModel)
		engine, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
	default:
		slog.Error("Invalid engine type", "type", *engineType, "valid", "gemini or ollama")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to initialize engine", "engine", *engineType, "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	var capturer receipt.Capturer
	switch *captureType {
	case "screen":
		capturer = capture.NewScreen(*display)
	case "file":
		if *captureFile == "" {
			slog.Error("--capture-file is required with --capture=file")
			os.Exit(1)
		}
		capturer = capture.NewFile(*captureFile)
	default:
		slog.Error("Invalid capture type", "type", *captureType, "valid", "screen or file")
		os.Exit(1)
	}

	table := category.DefaultTable()
	if *categoriesPath != "" {
		slog.Info("Loading category table...", "path", *categoriesPath)
		table, err = category.LoadTable(*categoriesPath)
		if err != nil {
			slog.Error("Failed to load category table", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Initializing storage...")
	store, err := receipt.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	service := receipt.NewService(db, store)

	opts := scanning.DefaultOptions()
	opts.MinBlockConfidence = *minBlockConf
	opts.MinOverallConfidence = *minOverallConf

	orchestrator := receipt.NewOrchestrator(
		capturer,
		scanning.NewRecognizer(engine, opts),
		extraction.NewExtractor(time.Local),
		category.NewScorer(table),
		receipt.Config{
			ConfirmWindow: *confirmWindow,
			Cooldown:      *cooldown,
			Retry:         &retry.Policy{MaxRetries: *maxRetries, Delays: delays},
			Sink:          service,
		},
	)
	defer orchestrator.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources := platformTriggers()
	if *serialPort != "" {
		serialTrigger, err := trigger.OpenSerial(*serialPort, *serialBaud)
		if err != nil {
			slog.Error("Failed to open serial trigger", "port", *serialPort, "error", err)
			os.Exit(1)
		}
		defer serialTrigger.Close()
		sources["serial"] = serialTrigger
	}
	if *stdinTrigger {
		sources["stdin"] = trigger.NewLines(os.Stdin)
	}
	if *triggerInterval > 0 {
		sources["interval"] = trigger.NewTicker(*triggerInterval)
	}
	for name, src := range sources {
		go func() {
			if err := orchestrator.Listen(ctx, src); err != nil {
				slog.Error("Trigger source stopped", "source", name, "error", err)
			}
		}()
	}
	slog.Info("Listening for triggers", "pid", os.Getpid(), "sources", len(sources))

	server := receipt.NewServer(orchestrator, service, receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	})
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	if err := server.Run(ctx, fmt.Sprintf(":%d", *port)); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutting down...")
}

func parseDelays(s string) ([]time.Duration, error) {
	var delays []time.Duration
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := time.ParseDuration(part)
		if err != nil {
			return nil, err
		}
		if d < 0 {
			return nil, fmt.Errorf("negative delay %s", d)
		}
		delays = append(delays, d)
	}
	if len(delays) == 0 {
		return append([]time.Duration(nil), retry.DefaultDelays...), nil
	}
	return delays, nil
}

func validateMaxRetries(n int) error {
	if n < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", n)
	}
	return nil
}
