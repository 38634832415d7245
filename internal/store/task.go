package store

import (
	"context"
	"database/sql"

	"github.com/tasklane/tasklane-api/internal/domain"
)

// TaskFilter narrows TaskStore.List. A nil Status matches every task.
type TaskFilter struct {
	Status *domain.TaskStatus
	Offset int
	Limit  int
}

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task and assigns its ID and timestamps.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID returns the task with its creator summary populated.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Task, error)

	// Exists reports whether a task with the given ID exists.
	Exists(ctx context.Context, id int64) (bool, error)

	// List returns tasks ordered by creation time, newest first.
	List(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// Update persists title, description and status of an existing task.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes the task and, by cascade, its comments.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id int64) error

	// Stats counts tasks by status.
	Stats(ctx context.Context) (domain.TaskStats, error)

	// WithTx returns a TaskStore bound to tx.
	WithTx(tx *sql.Tx) TaskStore
}
