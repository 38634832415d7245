package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/sethvargo/go-retry"
	"github.com/tasklane/tasklane-api/internal/config"
)

// Open connects to PostgreSQL, configures the pool and waits for the server
// to answer a ping, retrying with exponential backoff for up to maxWait.
func Open(ctx context.Context, cfg config.DatabaseConfig, maxWait time.Duration, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "database"))

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	backoff := retry.WithMaxDuration(maxWait, retry.WithCappedDuration(5*time.Second, retry.NewExponential(250*time.Millisecond)))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			log.Warn("database ping failed", slog.Int("attempt", attempt), slog.String("error", err.Error()))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("database connection established", slog.Int("attempts", attempt))
	return db, nil
}
