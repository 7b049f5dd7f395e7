// Command sentryd is the interceptor-side decision daemon. It owns the
// default-deny engine and exposes the admission endpoint the traffic
// intercepting proxy calls once per outbound request. Rule edits made by
// the management process are picked up through the shared store files.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/netsentry-io/netsentry/pkg/accesslog"
	"github.com/netsentry-io/netsentry/pkg/api"
	"github.com/netsentry-io/netsentry/pkg/config"
	"github.com/netsentry-io/netsentry/pkg/firewall"
	"github.com/netsentry-io/netsentry/pkg/pending"
	"github.com/netsentry-io/netsentry/pkg/rules"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		logger.Error("sentryd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	flagSet := flag.NewFlagSet("sentryd", flag.ContinueOnError)
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
		// Malformed rules are non-fatal: start default deny with an
		// empty set and let a later rewrite repair it.
		logger.Warn("failed to load rules, starting empty", "error", err)
	}
	logger.Info("loaded network rules", "count", ruleStore.Len(), "path", cfg.RulesPath())

	queue := pending.NewQueue(cfg.PendingPath(), cfg.PendingCap)
	if err := queue.Load(); err != nil {
		logger.Warn("failed to load pending queue, starting empty", "error", err)
	}

	engine := firewall.New(ruleStore, queue, accesslog.NewLogger(cfg.LogPath()), logger)

	srv := api.NewAdmissionServer(api.Config{Addr: cfg.Admission.Addr}, engine, logger)
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
