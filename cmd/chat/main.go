package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/statekit/statekit/chat"
	"github.com/statekit/statekit/logging"
	"github.com/statekit/statekit/observability"
	"github.com/statekit/statekit/store"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to chat config JSON file (optional)")
		botName    = flag.String("bot", "", "Bot display name (overrides config)")
		userName   = flag.String("user", "", "Your display name (overrides config)")
		logFile    = flag.String("log", "", "Append dispatch logs to this file instead of discarding them")
		verbose    = flag.Bool("verbose", false, "Emit store events as slog lines to the log file")
	)
	flag.Parse()

	cfg := chat.DefaultConfig()
	if *configFile != "" {
		loaded, err := chat.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	} else if err := cfg.ApplyEnv(); err != nil {
		log.Fatalf("Failed to apply environment overrides: %v", err)
	}

	if *botName != "" {
		cfg.BotName = *botName
	}
	if *userName != "" {
		cfg.UserName = *userName
	}

	// The TUI owns the terminal, so dispatch logs go to a file or
	// nowhere at all.
	var sink logging.Sink = logging.SinkFunc(func(tag, message string) {})
	opts := []chat.AppOption{}

	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()

		logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		sink = logging.SlogSink(logger)
		if *verbose {
			observability.RegisterObserver("slog-file", observability.NewSlogObserver(logger))
			cfg.Observer = "slog-file"
			opts = append(opts, chat.WithStoreOptions(
				store.WithLogger[chat.State](logger),
			))
		}
	}
	opts = append(opts, chat.WithLogSink(sink))

	app, err := chat.NewApp(cfg, opts...)
	if err != nil {
		log.Fatalf("Failed to create chat app: %v", err)
	}
	defer app.Close()

	if err := chat.Run(app); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
