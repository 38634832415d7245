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

// MockCommentStore implements store.CommentStore for testing
type MockCommentStore struct {
	CreateFn     func(ctx context.Context, comment *domain.Comment) error
	GetByIDFn    func(ctx context.Context, id int64) (*domain.Comment, error)
	ListByTaskFn func(ctx context.Context, taskID int64, offset, limit int) ([]*domain.Comment, error)
	DeleteFn     func(ctx context.Context, id int64) error

	// Now supplies CreatedAt for stored comments; defaults to time.Now.
	Now func() time.Time

	mu       sync.Mutex
	comments map[int64]*domain.Comment
	nextID   int64
	creates  int
}

var _ store.CommentStore = (*MockCommentStore)(nil)

// NewMockCommentStore creates a new in-memory comment store.
func NewMockCommentStore() *MockCommentStore {
	return &MockCommentStore{comments: make(map[int64]*domain.Comment)}
}

// Create implements the CommentStore interface
func (m *MockCommentStore) Create(ctx context.Context, comment *domain.Comment) error {
	m.mu.Lock()
	m.creates++
	createFn := m.CreateFn
	m.mu.Unlock()

	if createFn != nil {
		return createFn(ctx, comment)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	m.nextID++
	comment.ID = m.nextID
	comment.CreatedAt = now().UTC()
	clone := *comment
	m.comments[comment.ID] = &clone
	return nil
}

// SetCreateFn replaces CreateFn while the mock may be in concurrent use.
func (m *MockCommentStore) SetCreateFn(fn func(ctx context.Context, comment *domain.Comment) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateFn = fn
}

// CreateCalls reports how many times Create was invoked.
func (m *MockCommentStore) CreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates
}

// GetByID implements the CommentStore interface
func (m *MockCommentStore) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, store.ErrCommentNotFound
	}
	clone := *c
	return &clone, nil
}

// ListByTask implements the CommentStore interface
func (m *MockCommentStore) ListByTask(ctx context.Context, taskID int64, offset, limit int) ([]*domain.Comment, error) {
	if m.ListByTaskFn != nil {
		return m.ListByTaskFn(ctx, taskID, offset, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.Comment, 0)
	for _, c := range m.comments {
		if c.TaskID == taskID {
			clone := *c
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if offset >= len(out) {
		return []*domain.Comment{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// Delete implements the CommentStore interface
func (m *MockCommentStore) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[id]; !ok {
		return store.ErrCommentNotFound
	}
	delete(m.comments, id)
	return nil
}

// WithTx returns the same mock.
func (m *MockCommentStore) WithTx(*sql.Tx) store.CommentStore {
	return m
}
