package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/tasklane/tasklane-api/internal/config"
	"github.com/tasklane/tasklane-api/internal/events"
	"github.com/tasklane/tasklane-api/internal/platform/postgres"
	"github.com/tasklane/tasklane-api/internal/realtime"
	"github.com/tasklane/tasklane-api/internal/service"
	"github.com/tasklane/tasklane-api/internal/service/auth"
	"github.com/tasklane/tasklane-api/internal/store"
)

// stores groups the persistence dependencies so tests can substitute mocks.
type stores struct {
	users    store.UserStore
	tasks    store.TaskStore
	comments store.CommentStore
}

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	stores stores

	jwtService     auth.JWTService
	tokenValidator *auth.TokenValidator

	userService    service.UserService
	taskService    service.TaskService
	commentService service.CommentService

	eventEmitter *events.InMemoryEventEmitter
	engine       *realtime.Engine
}

// newApplication wires the application against PostgreSQL stores.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	return newApplicationWithStores(cfg, logger, db, stores{
		users:    postgres.NewPostgresUserStore(db, cfg.Auth.BCryptCost, logger),
		tasks:    postgres.NewPostgresTaskStore(db, logger),
		comments: postgres.NewPostgresCommentStore(db, logger),
	})
}

func newApplicationWithStores(cfg *config.Config, logger *slog.Logger, db *sql.DB, s stores) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
		stores: s,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)
	app.tokenValidator = auth.NewTokenValidator(app.jwtService, s.users, logger)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)

	app.userService = service.NewUserService(s.users, auth.NewBcryptVerifier(), db, logger)
	app.taskService = service.NewTaskService(s.tasks, db, logger)
	commentService := service.NewCommentService(
		s.comments,
		s.tasks,
		db,
		app.eventEmitter,
		cfg.Realtime.MaxCommentLength,
		logger,
	)
	app.commentService = commentService

	app.engine = realtime.NewEngine(
		realtime.NewRegistry(logger),
		app.tokenValidator,
		s.tasks,
		commentService,
		cfg.Realtime,
		cfg.Server.AllowedOrigins,
		logger,
	)
	// Every persisted comment, REST or live, fans out through the engine.
	app.eventEmitter.RegisterHandler(app.engine)

	logger.Info("application initialized")
	return app, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
