package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"

	"github.com/tablab/tablab/internal/api"
	"github.com/tablab/tablab/internal/config"
	"github.com/tablab/tablab/internal/observability"
	"github.com/tablab/tablab/internal/studio"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to the config file")
	flag.Parse()

	fs := afero.NewOsFs()
	cfg, err := config.Load(fs, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logOut := io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		logOut = f
	}

	var capture func(error)
	if cfg.SentryDSN != "" {
		capture = observability.InitSentry(cfg.SentryDSN, version)
	}

	logger := observability.NewCoreLogger(observability.Params{
		Out:     logOut,
		Level:   slog.LevelInfo,
		Capture: capture,
	})
	defer logger.Reraise()

	client, err := api.NewClient(api.ClientParams{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.RequestTimeout.Std(),
		Logger:  logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create API client: %v\n", err)
		os.Exit(1)
	}

	model := studio.NewModel(studio.ModelParams{
		Config:  cfg,
		Service: client,
		Logger:  logger,
		Fs:      fs,
	})

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		logger.CaptureError(fmt.Errorf("main: tui exited: %w", err))
		fmt.Fprintf(os.Stderr, "tui exited with error: %v\n", err)
		os.Exit(1)
	}
}

// version is stamped at build time.
var version = "dev"
