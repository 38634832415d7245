package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/tasklane/tasklane-api/internal/domain"
	"github.com/tasklane/tasklane-api/internal/store"
)

// Task listing bounds.
const (
	DefaultTaskLimit = 100
	MaxTaskLimit     = 100
)

// TaskService manages the shared task board.
type TaskService interface {
	Create(ctx context.Context, author domain.Principal, title string, description *string) (*domain.Task, error)
	Get(ctx context.Context, taskID int64) (*domain.Task, error)
	List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error)
	Update(ctx context.Context, taskID int64, update domain.TaskUpdate) (*domain.Task, error)
	Delete(ctx context.Context, taskID int64) error
	Stats(ctx context.Context) (domain.TaskStats, error)
}

// TaskServiceImpl implements TaskService.
type TaskServiceImpl struct {
	tasks  store.TaskStore
	db     store.TxBeginner
	logger *slog.Logger
}

// NewTaskService creates a new TaskService.
func NewTaskService(tasks store.TaskStore, db store.TxBeginner, logger *slog.Logger) *TaskServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskServiceImpl{
		tasks:  tasks,
		db:     db,
		logger: logger.With("component", "task_service"),
	}
}

var _ TaskService = (*TaskServiceImpl)(nil)

// Create implements TaskService.Create
func (s *TaskServiceImpl) Create(
	ctx context.Context,
	author domain.Principal,
	title string,
	description *string,
) (*domain.Task, error) {
	task, err := domain.NewTask(author.ID, title, description)
	if err != nil {
		return nil, err
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	task.Creator = &domain.UserSummary{ID: author.ID, Email: author.Email}
	return task, nil
}

// Get implements TaskService.Get
func (s *TaskServiceImpl) Get(ctx context.Context, taskID int64) (*domain.Task, error) {
	if taskID <= 0 {
		return nil, store.ErrTaskNotFound
	}
	return s.tasks.GetByID(ctx, taskID)
}

// List implements TaskService.List. A zero limit selects DefaultTaskLimit.
func (s *TaskServiceImpl) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	if filter.Limit == 0 {
		filter.Limit = DefaultTaskLimit
	}
	if filter.Offset < 0 || filter.Limit < 1 || filter.Limit > MaxTaskLimit {
		return nil, ErrInvalidPagination
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, domain.ErrInvalidTaskStatus
	}
	return s.tasks.List(ctx, filter)
}

// Update implements TaskService.Update. The read and write share a transaction.
func (s *TaskServiceImpl) Update(ctx context.Context, taskID int64, update domain.TaskUpdate) (*domain.Task, error) {
	var task *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		current, err := txTasks.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		if err := current.Apply(update); err != nil {
			return err
		}
		if err := txTasks.Update(ctx, current); err != nil {
			return err
		}
		task = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("task updated", "task_id", taskID, "status", string(task.Status))
	return task, nil
}

// Delete implements TaskService.Delete
func (s *TaskServiceImpl) Delete(ctx context.Context, taskID int64) error {
	return s.tasks.Delete(ctx, taskID)
}

// Stats implements TaskService.Stats
func (s *TaskServiceImpl) Stats(ctx context.Context) (domain.TaskStats, error) {
	return s.tasks.Stats(ctx)
}
