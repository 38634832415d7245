package api

import (
	"time"

	"github.com/samber/lo"
	"github.com/tasklane/tasklane-api/internal/domain"
)

// RegisterRequest defines the payload for the user registration endpoint.
// Password strength is checked by the domain.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`

	// ExpiresAt is the RFC 3339 time the access token expires.
	ExpiresAt string `json:"expires_at"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateTaskRequest defines the payload for POST /tasks.
type CreateTaskRequest struct {
	Title       string  `json:"title"       validate:"required,max=255"`
	Description *string `json:"description"`
}

// UpdateTaskRequest defines the payload for PUT /tasks/{id}. Omitted fields
// are left unchanged.
type UpdateTaskRequest struct {
	Title       *string `json:"title"       validate:"omitempty,max=255"`
	Description *string `json:"description"`
	Status      *string `json:"status"      validate:"omitempty,oneof=in_progress completed"`
}

// TaskResponse is the public view of a task.
type TaskResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Status      string    `json:"status"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Creator     *UserRef  `json:"creator,omitempty"`
}

// UserRef identifies the author of a task or comment.
type UserRef struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// CreateCommentRequest defines the payload for POST /tasks/{id}/comments.
// Content rules are enforced by the comment service so REST and the live
// channel reject the same input.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// CommentResponse is the public view of a comment. It has the same shape as
// the comment embedded in new_comment frames.
type CommentResponse struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	TaskID    int64     `json:"task_id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	User      *UserRef  `json:"user"`
}

func userRef(u *domain.UserSummary) *UserRef {
	if u == nil {
		return nil
	}
	return &UserRef{ID: u.ID, Email: u.Email}
}

func userToResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt.UTC()}
}

func taskToResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
		Creator:     userRef(t.Creator),
	}
}

func tasksToResponse(tasks []*domain.Task) []TaskResponse {
	return lo.Map(tasks, func(t *domain.Task, _ int) TaskResponse {
		return taskToResponse(t)
	})
}

func commentToResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		Content:   c.Content,
		TaskID:    c.TaskID,
		UserID:    c.UserID,
		CreatedAt: c.CreatedAt.UTC(),
		User:      userRef(c.User),
	}
}

func commentsToResponse(comments []*domain.Comment) []CommentResponse {
	return lo.Map(comments, func(c *domain.Comment, _ int) CommentResponse {
		return commentToResponse(c)
	})
}

// toTaskUpdate converts a validated request into a domain update.
func (r UpdateTaskRequest) toTaskUpdate() domain.TaskUpdate {
	update := domain.TaskUpdate{
		Title:       r.Title,
		Description: r.Description,
	}
	if r.Status != nil {
		update.Status = lo.ToPtr(domain.TaskStatus(*r.Status))
	}
	return update
}
