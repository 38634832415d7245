// Package main implements the entry point for the Tasklane API server, which
// serves the task board over REST and streams task comments live over
// WebSocket.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/tasklane/tasklane-api/internal/config"
	"github.com/tasklane/tasklane-api/internal/platform/logger"
	"github.com/tasklane/tasklane-api/internal/platform/postgres"
)

// options are the command line flags.
type options struct {
	migrate     string
	autoMigrate bool
	dbWait      time.Duration
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("tasklane-server", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.migrate, "migrate", "",
		fmt.Sprintf("run a migration command and exit (one of %v)", postgres.MigrationCommands))
	fs.BoolVar(&opts.autoMigrate, "auto-migrate", false, "apply pending migrations before serving")
	fs.DurationVar(&opts.dbWait, "db-wait", 30*time.Second, "how long to wait for the database at startup")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"environment", cfg.Server.Environment,
		"log_level", cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Database, opts.dbWait, log)
	if err != nil {
		return err
	}

	if opts.migrate != "" {
		defer db.Close()
		return postgres.Migrate(ctx, db, opts.migrate, log)
	}
	if opts.autoMigrate {
		if err := postgres.Migrate(ctx, db, "up", log); err != nil {
			_ = db.Close()
			return err
		}
	}

	app, err := newApplication(cfg, log, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
