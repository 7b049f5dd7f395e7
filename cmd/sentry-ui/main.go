// Command sentry-ui is the management process. It serves the REST/SSE API
// over a read-through cache that polls the shared store files on a fixed
// interval; it never talks to the decision daemon directly.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/netsentry-io/netsentry/pkg/api"
	"github.com/netsentry-io/netsentry/pkg/api/service"
	"github.com/netsentry-io/netsentry/pkg/config"
	"github.com/netsentry-io/netsentry/pkg/pending"
	"github.com/netsentry-io/netsentry/pkg/rules"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		logger.Error("sentry-ui exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	flagSet := flag.NewFlagSet("sentry-ui", flag.ContinueOnError)
	configPath := flagSet.String("config", "", "Path to configuration file")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	ruleStore := rules.NewStore(cfg.RulesPath())
	if err := ruleStore.Load(); err != nil {
		logger.Warn("failed to load rules", "error", err)
	}
	queue := pending.NewQueue(cfg.PendingPath(), cfg.PendingCap)
	if err := queue.Load(); err != nil {
		logger.Warn("failed to load pending queue", "error", err)
	}

	svc := service.NewMonitor(ruleStore, queue, cfg.LogPath(), logger)
	go svc.Run(ctx, cfg.RefreshInterval)

	logger.Info("management api starting",
		"addr", cfg.Management.Addr,
		"data_dir", cfg.DataDir,
		"refresh_interval", cfg.RefreshInterval,
	)

	srv := api.NewManagementServer(api.Config{
		Addr:           cfg.Management.Addr,
		APIKey:         cfg.Management.APIKey,
		StreamInterval: cfg.StreamInterval,
	}, svc, logger)
	return srv.Run(ctx)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
