package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/tasklane/tasklane-api/internal/domain"
	"github.com/tasklane/tasklane-api/internal/platform/logger"
	"github.com/tasklane/tasklane-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

const taskColumns = `t.id, t.title, t.description, t.status, t.created_by, t.created_at, t.updated_at, u.email`

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (title, description, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		task.Title, task.Description, task.Status, task.CreatedBy, task.CreatedAt, task.UpdatedAt,
	).Scan(&task.ID)
	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrUserNotFound) {
			return store.ErrUserNotFound
		}
		log.Error("failed to create task", slog.String("error", err.Error()))
		return store.NewStoreError("task", "create", "insert failed", mapped)
	}

	log.Info("task created",
		slog.Int64("task_id", task.ID),
		slog.Int64("created_by", task.CreatedBy))
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + `
		FROM tasks t
		JOIN users u ON u.id = t.created_by
		WHERE t.id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task", slog.String("error", err.Error()), slog.Int64("task_id", id))
		return nil, store.NewStoreError("task", "get", "query failed", MapError(err))
	}
	return task, nil
}

// Exists implements store.TaskStore.Exists
func (s *PostgresTaskStore) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to check task existence",
			slog.String("error", err.Error()), slog.Int64("task_id", id))
		return false, store.NewStoreError("task", "exists", "query failed", MapError(err))
	}
	return exists, nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var status any
	if filter.Status != nil {
		status = string(*filter.Status)
	}

	query := `SELECT ` + taskColumns + `
		FROM tasks t
		JOIN users u ON u.id = t.created_by
		WHERE ($1::text IS NULL OR t.status = $1)
		ORDER BY t.created_at DESC, t.id DESC
		OFFSET $2 LIMIT $3`

	rows, err := s.db.QueryContext(ctx, query, status, filter.Offset, filter.Limit)
	if err != nil {
		log.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, store.NewStoreError("task", "list", "scan failed", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "list", "iteration failed", err)
	}
	return tasks, nil
}

// Update implements store.TaskStore.Update
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, updated_at = $4
		WHERE id = $5`,
		task.Title, task.Description, task.Status, task.UpdatedAt, task.ID)
	if err != nil {
		log.Error("failed to update task", slog.String("error", err.Error()), slog.Int64("task_id", task.ID))
		return store.NewStoreError("task", "update", "update failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete task", slog.String("error", err.Error()), slog.Int64("task_id", id))
		return store.NewStoreError("task", "delete", "delete failed", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	log.Info("task deleted", slog.Int64("task_id", id))
	return nil
}

// Stats implements store.TaskStore.Stats
func (s *PostgresTaskStore) Stats(ctx context.Context) (domain.TaskStats, error) {
	var stats domain.TaskStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'in_progress'),
		       COUNT(*) FILTER (WHERE status = 'completed')
		FROM tasks`).Scan(&stats.Total, &stats.InProgress, &stats.Completed)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to compute task stats",
			slog.String("error", err.Error()))
		return domain.TaskStats{}, store.NewStoreError("task", "stats", "query failed", MapError(err))
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task        domain.Task
		description sql.NullString
		status      string
		email       string
	)
	err := row.Scan(
		&task.ID,
		&task.Title,
		&description,
		&status,
		&task.CreatedBy,
		&task.CreatedAt,
		&task.UpdatedAt,
		&email,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		task.Description = &description.String
	}
	task.Status = domain.TaskStatus(status)
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	task.Creator = &domain.UserSummary{ID: task.CreatedBy, Email: email}
	return &task, nil
}
