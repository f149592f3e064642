// Command cardwatch runs the card loading-state compliance harness against a
// dashboard instance and exits non-zero when the CI gate fails.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rishi-jat/cardwatch/compliance"
	"github.com/rishi-jat/cardwatch/compliance/report"
	"github.com/rishi-jat/cardwatch/runstore"
)

func main() {
	var (
		configPath   = flag.String("config", "", "path to YAML config (optional)")
		baseURL      = flag.String("url", "", "dashboard base URL (overrides config)")
		outputDir    = flag.String("out", "", "artifact output directory (overrides config)")
		historyPath  = flag.String("history", "", "SQLite run-history database (empty = disabled)")
		remoteURL    = flag.String("remote", "", "WebSocket URL of an external Chromium (overrides config)")
		headful      = flag.Bool("headful", false, "run the browser with a visible window")
		forceRefresh = flag.Bool("force-refresh", false, "click each card's refresh control after the cold load")
		logLevel     = flag.String("log-level", "info", "log level: debug, info, warn, error")
	)
	flag.Parse()

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	cfg, err := buildConfig(*configPath, *baseURL)
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(2)
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *remoteURL != "" {
		cfg.RemoteBrowser = *remoteURL
	}
	if *headful {
		cfg.Headful = true
	}
	if *forceRefresh {
		cfg.ForceRefresh = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := compliance.New(cfg, logger)
	rep, runErr := h.Run(ctx)

	gatePassed := runErr == nil
	if rep != nil {
		if _, err := report.NewConsoleWriter(os.Stdout).Write(rep); err != nil {
			logger.Warn("console summary not written", "error", err)
		}
	}
	if rep != nil && *historyPath != "" {
		if err := saveRun(ctx, *historyPath, rep, gatePassed); err != nil {
			logger.Warn("run history not saved", "error", err)
		}
	}

	switch {
	case runErr == nil:
		logger.Info("gate passed",
			"cards", rep.Summary.TotalCards, "failed", rep.Summary.Failed)
	case errors.Is(runErr, report.ErrGateFailed):
		logger.Error("gate failed", "error", runErr)
		os.Exit(1)
	default:
		logger.Error("compliance run aborted", "error", runErr)
		os.Exit(1)
	}
}

func buildConfig(configPath, baseURL string) (*compliance.Config, error) {
	if configPath == "" {
		if baseURL == "" {
			return nil, fmt.Errorf("either -config or -url is required")
		}
		return compliance.DefaultConfig(baseURL), nil
	}
	cfg, err := compliance.LoadConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return cfg, nil
}

func saveRun(ctx context.Context, path string, rep *report.Report, gatePassed bool) error {
	store, err := runstore.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(ctx, rep, gatePassed)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
