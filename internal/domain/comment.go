package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultMaxCommentLength bounds comment content in characters.
const DefaultMaxCommentLength = 1000

// Comment validation errors
var (
	ErrEmptyCommentContent = errors.New("comment content cannot be empty")
	ErrCommentTooLong      = errors.New("comment content is too long")
)

// Comment is an immutable, append-only note attached to a task.
// ID and CreatedAt are assigned by the store.
type Comment struct {
	ID        int64        `json:"id"`
	Content   string       `json:"content"`
	TaskID    int64        `json:"task_id"`
	UserID    int64        `json:"user_id"`
	CreatedAt time.Time    `json:"created_at"`
	User      *UserSummary `json:"user"`
}

// NormalizeCommentContent trims content and checks it against maxRunes.
// A non-positive maxRunes selects DefaultMaxCommentLength.
func NormalizeCommentContent(content string, maxRunes int) (string, error) {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxCommentLength
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", ErrEmptyCommentContent
	}
	if utf8.RuneCountInString(trimmed) > maxRunes {
		return "", ErrCommentTooLong
	}
	return trimmed, nil
}

// NewComment builds an unsaved comment authored by author on taskID.
func NewComment(taskID int64, author Principal, content string, maxRunes int) (*Comment, error) {
	if taskID <= 0 || author.ID <= 0 {
		return nil, ErrInvalidID
	}
	normalized, err := NormalizeCommentContent(content, maxRunes)
	if err != nil {
		return nil, err
	}
	return &Comment{
		Content:   normalized,
		TaskID:    taskID,
		UserID:    author.ID,
		CreatedAt: time.Now().UTC(),
		User:      &UserSummary{ID: author.ID, Email: author.Email},
	}, nil
}
