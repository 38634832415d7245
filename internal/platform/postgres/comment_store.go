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

// PostgresCommentStore implements the store.CommentStore interface.
type PostgresCommentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCommentStore creates a new PostgreSQL implementation of the CommentStore interface.
func NewPostgresCommentStore(db store.DBTX, logger *slog.Logger) *PostgresCommentStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCommentStore{
		db:     db,
		logger: logger.With(slog.String("component", "comment_store")),
	}
}

var _ store.CommentStore = (*PostgresCommentStore)(nil)

// WithTx implements store.CommentStore.WithTx
func (s *PostgresCommentStore) WithTx(tx *sql.Tx) store.CommentStore {
	return &PostgresCommentStore{db: tx, logger: s.logger}
}

// Create implements store.CommentStore.Create.
// The database clock assigns created_at so ordering follows commit order.
func (s *PostgresCommentStore) Create(ctx context.Context, comment *domain.Comment) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO comments (content, task_id, user_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := s.db.QueryRowContext(ctx, query, comment.Content, comment.TaskID, comment.UserID).
		Scan(&comment.ID, &comment.CreatedAt)
	if err != nil {
		mapped := MapError(err)
		switch {
		case errors.Is(mapped, store.ErrTaskNotFound):
			log.Debug("comment rejected, task missing", slog.Int64("task_id", comment.TaskID))
			return store.ErrTaskNotFound
		case errors.Is(mapped, store.ErrUserNotFound):
			return store.ErrUserNotFound
		}
		log.Error("failed to create comment",
			slog.String("error", err.Error()),
			slog.Int64("task_id", comment.TaskID),
			slog.Int64("user_id", comment.UserID))
		return store.NewStoreError("comment", "create", "insert failed", mapped)
	}

	comment.CreatedAt = comment.CreatedAt.UTC()
	log.Debug("comment created",
		slog.Int64("comment_id", comment.ID),
		slog.Int64("task_id", comment.TaskID))
	return nil
}

const commentColumns = `c.id, c.content, c.task_id, c.user_id, c.created_at, u.email`

// GetByID implements store.CommentStore.GetByID
func (s *PostgresCommentStore) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	query := `SELECT ` + commentColumns + `
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.id = $1`

	comment, err := scanComment(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCommentNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get comment",
			slog.String("error", err.Error()), slog.Int64("comment_id", id))
		return nil, store.NewStoreError("comment", "get", "query failed", MapError(err))
	}
	return comment, nil
}

// ListByTask implements store.CommentStore.ListByTask
func (s *PostgresCommentStore) ListByTask(
	ctx context.Context,
	taskID int64,
	offset, limit int,
) ([]*domain.Comment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + commentColumns + `
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.task_id = $1
		ORDER BY c.created_at ASC, c.id ASC
		OFFSET $2 LIMIT $3`

	rows, err := s.db.QueryContext(ctx, query, taskID, offset, limit)
	if err != nil {
		log.Error("failed to list comments", slog.String("error", err.Error()), slog.Int64("task_id", taskID))
		return nil, store.NewStoreError("comment", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	comments := make([]*domain.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, store.NewStoreError("comment", "list", "scan failed", err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("comment", "list", "iteration failed", err)
	}
	return comments, nil
}

// Delete implements store.CommentStore.Delete
func (s *PostgresCommentStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete comment",
			slog.String("error", err.Error()), slog.Int64("comment_id", id))
		return store.NewStoreError("comment", "delete", "delete failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrCommentNotFound)
}

func scanComment(row rowScanner) (*domain.Comment, error) {
	var (
		comment domain.Comment
		email   string
	)
	if err := row.Scan(
		&comment.ID,
		&comment.Content,
		&comment.TaskID,
		&comment.UserID,
		&comment.CreatedAt,
		&email,
	); err != nil {
		return nil, err
	}
	comment.CreatedAt = comment.CreatedAt.UTC()
	comment.User = &domain.UserSummary{ID: comment.UserID, Email: email}
	return &comment, nil
}
