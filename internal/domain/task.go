package domain

import (
	"errors"
	"strings"
	"time"
)

// TaskStatus represents the progress state of a task.
type TaskStatus string

// Possible task status values
const (
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Task validation errors
var (
	ErrEmptyTaskTitle     = errors.New("task title cannot be empty")
	ErrTaskTitleTooLong   = errors.New("task title must be at most 255 characters long")
	ErrInvalidTaskStatus  = errors.New("invalid task status")
	ErrEmptyTaskCreatorID = errors.New("task creator ID cannot be empty")
)

// MaxTaskTitleLength bounds Task.Title in characters.
const MaxTaskTitleLength = 255

// Task is a shared unit of work. Every authenticated user can see and comment
// on every task.
type Task struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	Status      TaskStatus   `json:"status"`
	CreatedBy   int64        `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Creator     *UserSummary `json:"creator,omitempty"`
}

// TaskStats is a count of tasks by status.
type TaskStats struct {
	Total      int `json:"total"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

// TaskUpdate carries a partial update; nil fields are left unchanged.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *TaskStatus
}

// NewTask creates an in-progress task owned by createdBy.
func NewTask(createdBy int64, title string, description *string) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		Title:       strings.TrimSpace(title),
		Description: description,
		Status:      TaskStatusInProgress,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.CreatedBy <= 0 {
		return ErrEmptyTaskCreatorID
	}
	if t.Title == "" {
		return ErrEmptyTaskTitle
	}
	if len([]rune(t.Title)) > MaxTaskTitleLength {
		return ErrTaskTitleTooLong
	}
	if !t.Status.Valid() {
		return ErrInvalidTaskStatus
	}
	return nil
}

// Apply merges u into t and refreshes UpdatedAt. t is left untouched when the
// result would be invalid.
func (t *Task) Apply(u TaskUpdate) error {
	next := *t
	if u.Title != nil {
		next.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		next.Description = u.Description
	}
	if u.Status != nil {
		next.Status = *u.Status
	}
	if err := next.Validate(); err != nil {
		return err
	}
	next.UpdatedAt = time.Now().UTC()
	*t = next
	return nil
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}
