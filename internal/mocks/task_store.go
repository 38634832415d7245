package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/tasklane/tasklane-api/internal/domain"
	"github.com/tasklane/tasklane-api/internal/store"
)

// MockTaskStore implements store.TaskStore for testing
type MockTaskStore struct {
	CreateFn  func(ctx context.Context, task *domain.Task) error
	GetByIDFn func(ctx context.Context, id int64) (*domain.Task, error)
	ExistsFn  func(ctx context.Context, id int64) (bool, error)
	ListFn    func(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error)
	UpdateFn  func(ctx context.Context, task *domain.Task) error
	DeleteFn  func(ctx context.Context, id int64) error
	StatsFn   func(ctx context.Context) (domain.TaskStats, error)

	mu     sync.Mutex
	tasks  map[int64]*domain.Task
	nextID int64
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// NewMockTaskStore creates a mock task store seeded with tasks.
func NewMockTaskStore(tasks ...*domain.Task) *MockTaskStore {
	m := &MockTaskStore{tasks: make(map[int64]*domain.Task)}
	for _, t := range tasks {
		m.tasks[t.ID] = t
		if t.ID > m.nextID {
			m.nextID = t.ID
		}
	}
	return m
}

// Create implements the TaskStore interface
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	task.ID = m.nextID
	m.tasks[task.ID] = task
	return nil
}

// GetByID implements the TaskStore interface
func (m *MockTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	clone := *t
	return &clone, nil
}

// Exists implements the TaskStore interface
func (m *MockTaskStore) Exists(ctx context.Context, id int64) (bool, error) {
	if m.ExistsFn != nil {
		return m.ExistsFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tasks[id]
	return ok, nil
}

// List implements the TaskStore interface
func (m *MockTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if filter.Status == nil || t.Status == *filter.Status {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Offset >= len(out) {
		return []*domain.Task{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Update implements the TaskStore interface
func (m *MockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, task)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	clone := *task
	m.tasks[task.ID] = &clone
	return nil
}

// Delete implements the TaskStore interface
func (m *MockTaskStore) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

// Stats implements the TaskStore interface
func (m *MockTaskStore) Stats(ctx context.Context) (domain.TaskStats, error) {
	if m.StatsFn != nil {
		return m.StatsFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats domain.TaskStats
	for _, t := range m.tasks {
		stats.Total++
		switch t.Status {
		case domain.TaskStatusInProgress:
			stats.InProgress++
		case domain.TaskStatusCompleted:
			stats.Completed++
		}
	}
	return stats, nil
}

// WithTx returns the same mock.
func (m *MockTaskStore) WithTx(*sql.Tx) store.TaskStore {
	return m
}

// NewTask returns a persisted-looking task for seeding mocks.
func NewTask(id, createdBy int64, title string) *domain.Task {
	now := time.Now().UTC()
	return &domain.Task{
		ID:        id,
		Title:     title,
		Status:    domain.TaskStatusInProgress,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
