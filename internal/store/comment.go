package store

import (
	"context"
	"database/sql"

	"github.com/tasklane/tasklane-api/internal/domain"
)

// CommentStore defines the interface for comment persistence.
// Comments are append-only; the store assigns ID and CreatedAt.
type CommentStore interface {
	// Create inserts comment and fills in its ID and CreatedAt.
	// Returns ErrTaskNotFound if the task does not exist.
	Create(ctx context.Context, comment *domain.Comment) error

	// GetByID returns ErrCommentNotFound if the comment does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Comment, error)

	// ListByTask returns the comments of a task in ascending creation order,
	// with author summaries populated.
	ListByTask(ctx context.Context, taskID int64, offset, limit int) ([]*domain.Comment, error)

	// Delete returns ErrCommentNotFound if the comment does not exist.
	Delete(ctx context.Context, id int64) error

	// WithTx returns a CommentStore bound to tx.
	WithTx(tx *sql.Tx) CommentStore
}
