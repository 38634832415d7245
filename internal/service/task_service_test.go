package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasklane/tasklane-api/internal/domain"
	"github.com/tasklane/tasklane-api/internal/mocks"
	"github.com/tasklane/tasklane-api/internal/service"
	"github.com/tasklane/tasklane-api/internal/store"
)

func TestTaskService_Create(t *testing.T) {
	tasks := mocks.NewMockTaskStore()
	svc := service.NewTaskService(tasks, mocks.NewTxDB(t, 0), nil)
	author := domain.Principal{ID: 5, Email: "e@example.com"}

	task, err := svc.Create(context.Background(), author, "Write docs", nil)

	require.NoError(t, err)
	assert.Positive(t, task.ID)
	assert.Equal(t, domain.TaskStatusInProgress, task.Status)
	require.NotNil(t, task.Creator)
	assert.Equal(t, "e@example.com", task.Creator.Email)

	_, err = svc.Create(context.Background(), author, "   ", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyTaskTitle)
}

func TestTaskService_List(t *testing.T) {
	older := mocks.NewTask(1, 5, "older")
	older.CreatedAt = time.Now().Add(-time.Hour)
	done := mocks.NewTask(2, 5, "done")
	done.Status = domain.TaskStatusCompleted
	svc := service.NewTaskService(mocks.NewMockTaskStore(older, done), mocks.NewTxDB(t, 0), nil)
	ctx := context.Background()

	all, err := svc.List(ctx, store.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(2), all[0].ID, "newest first")

	completed := domain.TaskStatusCompleted
	filtered, err := svc.List(ctx, store.TaskFilter{Status: &completed})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "done", filtered[0].Title)

	tests := []struct {
		name   string
		filter store.TaskFilter
		want   error
	}{
		{"negative offset", store.TaskFilter{Offset: -1}, service.ErrInvalidPagination},
		{"limit too large", store.TaskFilter{Limit: service.MaxTaskLimit + 1}, service.ErrInvalidPagination},
		{"negative limit", store.TaskFilter{Limit: -1}, service.ErrInvalidPagination},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.List(ctx, tc.filter)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestTaskService_Update(t *testing.T) {
	ctx := context.Background()
	tasks := mocks.NewMockTaskStore(mocks.NewTask(1, 5, "draft"))
	svc := service.NewTaskService(tasks, mocks.NewTxDB(t, 3), nil)

	completed := domain.TaskStatusCompleted
	title := "final"
	task, err := svc.Update(ctx, 1, domain.TaskUpdate{Title: &title, Status: &completed})
	require.NoError(t, err)
	assert.Equal(t, "final", task.Title)
	assert.Equal(t, domain.TaskStatusCompleted, task.Status)

	stored, err := tasks.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "final", stored.Title)

	bad := domain.TaskStatus("archived")
	_, err = svc.Update(ctx, 1, domain.TaskUpdate{Status: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidTaskStatus)

	_, err = svc.Update(ctx, 42, domain.TaskUpdate{Title: &title})
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestTaskService_DeleteAndStats(t *testing.T) {
	ctx := context.Background()
	done := mocks.NewTask(2, 5, "done")
	done.Status = domain.TaskStatusCompleted
	tasks := mocks.NewMockTaskStore(mocks.NewTask(1, 5, "open"), done)
	svc := service.NewTaskService(tasks, mocks.NewTxDB(t, 0), nil)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStats{Total: 2, InProgress: 1, Completed: 1}, stats)

	require.NoError(t, svc.Delete(ctx, 1))
	assert.ErrorIs(t, svc.Delete(ctx, 1), store.ErrTaskNotFound)

	_, err = svc.Get(ctx, 0)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}
