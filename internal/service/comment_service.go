package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tasklane/tasklane-api/internal/domain"
	"github.com/tasklane/tasklane-api/internal/events"
	"github.com/tasklane/tasklane-api/internal/store"
)

// Comment listing bounds.
const (
	DefaultCommentLimit = 100
	MaxCommentLimit     = 1000
)

// CommentService handles creation, listing and deletion of task comments.
// Both the REST endpoints and the live channel persist through it.
type CommentService interface {
	// Create validates and persists a comment, then emits events.TypeCommentCreated.
	// Returns domain.ErrEmptyCommentContent, domain.ErrCommentTooLong or
	// store.ErrTaskNotFound for rejected input.
	Create(ctx context.Context, author domain.Principal, taskID int64, content string) (*domain.Comment, error)

	// List returns the comments of an existing task, oldest first.
	List(ctx context.Context, taskID int64, offset, limit int) ([]*domain.Comment, error)

	// Delete removes a comment authored by actor. Returns ErrNotOwned for
	// somebody else's comment and store.ErrCommentNotFound when the comment
	// does not belong to taskID.
	Delete(ctx context.Context, actor domain.Principal, taskID, commentID int64) error
}

// CommentServiceImpl implements CommentService.
type CommentServiceImpl struct {
	comments  store.CommentStore
	tasks     store.TaskStore
	db        store.TxBeginner
	emitter   events.EventEmitter
	maxLength int
	logger    *slog.Logger
}

// NewCommentService creates a new CommentService. emitter may be nil.
// maxLength bounds comment content in characters; zero selects the default.
func NewCommentService(
	comments store.CommentStore,
	tasks store.TaskStore,
	db store.TxBeginner,
	emitter events.EventEmitter,
	maxLength int,
	logger *slog.Logger,
) *CommentServiceImpl {
	if comments == nil || tasks == nil || db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependencies
		panic("comments, tasks and db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if maxLength <= 0 {
		maxLength = domain.DefaultMaxCommentLength
	}
	return &CommentServiceImpl{
		comments:  comments,
		tasks:     tasks,
		db:        db,
		emitter:   emitter,
		maxLength: maxLength,
		logger:    logger.With("component", "comment_service"),
	}
}

var _ CommentService = (*CommentServiceImpl)(nil)

// Create implements CommentService.Create
func (s *CommentServiceImpl) Create(
	ctx context.Context,
	author domain.Principal,
	taskID int64,
	content string,
) (*domain.Comment, error) {
	comment, err := domain.NewComment(taskID, author, content, s.maxLength)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidID) {
			return nil, store.ErrTaskNotFound
		}
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		exists, err := s.tasks.WithTx(tx).Exists(ctx, taskID)
		if err != nil {
			return err
		}
		if !exists {
			return store.ErrTaskNotFound
		}
		return s.comments.WithTx(tx).Create(ctx, comment)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("comment persisted",
		"comment_id", comment.ID,
		"task_id", taskID,
		"user_id", author.ID)

	s.emitCreated(ctx, comment)
	return comment, nil
}

// emitCreated publishes the persisted comment. Delivery failures never undo
// the write.
func (s *CommentServiceImpl) emitCreated(ctx context.Context, comment *domain.Comment) {
	if s.emitter == nil {
		return
	}
	event, err := events.NewEvent(events.TypeCommentCreated, comment)
	if err != nil {
		s.logger.Error("failed to build comment event", "error", err, "comment_id", comment.ID)
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.Warn("comment event delivery failed", "error", err, "comment_id", comment.ID)
	}
}

// List implements CommentService.List. A zero limit selects DefaultCommentLimit.
func (s *CommentServiceImpl) List(ctx context.Context, taskID int64, offset, limit int) ([]*domain.Comment, error) {
	if limit == 0 {
		limit = DefaultCommentLimit
	}
	if offset < 0 || limit < 1 || limit > MaxCommentLimit {
		return nil, ErrInvalidPagination
	}

	exists, err := s.tasks.Exists(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to check task: %w", err)
	}
	if !exists {
		return nil, store.ErrTaskNotFound
	}

	return s.comments.ListByTask(ctx, taskID, offset, limit)
}

// Delete implements CommentService.Delete
func (s *CommentServiceImpl) Delete(ctx context.Context, actor domain.Principal, taskID, commentID int64) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.TaskID != taskID {
		return store.ErrCommentNotFound
	}
	if comment.UserID != actor.ID {
		s.logger.Debug("comment delete refused, not author",
			"comment_id", commentID,
			"actor_id", actor.ID)
		return ErrNotOwned
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		return err
	}
	s.logger.Info("comment deleted", "comment_id", commentID, "task_id", taskID)
	return nil
}
