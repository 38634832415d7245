package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/tasklane/tasklane-api/internal/domain"
)

// Wire message types.
const (
	TypeComment = "comment"
	TypeTyping  = "typing"

	TypeNewComment = "new_comment"
	TypeUserJoined = "user_joined"
	TypeUserTyping = "user_typing"
	TypeError      = "error"
)

// ErrMalformedMessage is returned when a frame is not a JSON object.
var ErrMalformedMessage = errors.New("malformed message")

// UnknownTypeError is returned when a frame carries a type tag this side
// does not understand.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown message type %q", e.Type)
}

// Inbound is a message sent by a client. The variants are CommentMessage
// and TypingMessage.
type Inbound interface {
	inbound()
}

// CommentMessage asks the server to persist and broadcast a comment.
type CommentMessage struct {
	Content string
}

// TypingMessage reports the sender's typing state.
type TypingMessage struct {
	IsTyping bool
}

func (CommentMessage) inbound() {}
func (TypingMessage) inbound()  {}

// MarshalJSON encodes the message with its type tag.
func (m CommentMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	}{TypeComment, m.Content})
}

// MarshalJSON encodes the message with its type tag.
func (m TypingMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"type"`
		IsTyping bool   `json:"is_typing"`
	}{TypeTyping, m.IsTyping})
}

// Outbound is a message sent by the server. The variants are
// NewCommentMessage, UserJoinedMessage, UserTypingMessage and ErrorMessage.
type Outbound interface {
	outbound()
}

// NewCommentMessage carries a persisted comment.
type NewCommentMessage struct {
	Comment *domain.Comment
}

// UserJoinedMessage announces a new member to the rest of the room.
type UserJoinedMessage struct {
	UserID  int64
	Message string
}

// UserTypingMessage relays a member's typing state.
type UserTypingMessage struct {
	UserID    int64
	UserEmail string
	IsTyping  bool
}

// ErrorMessage is sent to a single session.
type ErrorMessage struct {
	Message string
}

func (NewCommentMessage) outbound() {}
func (UserJoinedMessage) outbound() {}
func (UserTypingMessage) outbound() {}
func (ErrorMessage) outbound()      {}

// MarshalJSON encodes the message with its type tag.
func (m NewCommentMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string          `json:"type"`
		Comment *domain.Comment `json:"comment"`
	}{TypeNewComment, m.Comment})
}

// MarshalJSON encodes the message with its type tag.
func (m UserJoinedMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string `json:"type"`
		UserID  int64  `json:"user_id"`
		Message string `json:"message"`
	}{TypeUserJoined, m.UserID, m.Message})
}

// MarshalJSON encodes the message with its type tag.
func (m UserTypingMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      string `json:"type"`
		UserID    int64  `json:"user_id"`
		UserEmail string `json:"user_email"`
		IsTyping  bool   `json:"is_typing"`
	}{TypeUserTyping, m.UserID, m.UserEmail, m.IsTyping})
}

// MarshalJSON encodes the message with its type tag.
func (m ErrorMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}{TypeError, m.Message})
}

// envelope is the union of every field any variant carries.
type envelope struct {
	Type      string          `json:"type"`
	Content   *string         `json:"content"`
	IsTyping  *bool           `json:"is_typing"`
	Comment   *domain.Comment `json:"comment"`
	UserID    int64           `json:"user_id"`
	UserEmail string          `json:"user_email"`
	Message   string          `json:"message"`
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	return env, nil
}

// DecodeInbound parses a client frame. It returns an error wrapping
// ErrMalformedMessage for invalid JSON and *UnknownTypeError for an
// unrecognized type tag.
func DecodeInbound(data []byte) (Inbound, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	switch env.Type {
	case TypeComment:
		return CommentMessage{Content: lo.FromPtr(env.Content)}, nil
	case TypeTyping:
		return TypingMessage{IsTyping: lo.FromPtr(env.IsTyping)}, nil
	default:
		return nil, &UnknownTypeError{Type: env.Type}
	}
}

// DecodeOutbound parses a server frame.
func DecodeOutbound(data []byte) (Outbound, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	switch env.Type {
	case TypeNewComment:
		if env.Comment == nil {
			return nil, fmt.Errorf("%w: new_comment without comment", ErrMalformedMessage)
		}
		return NewCommentMessage{Comment: env.Comment}, nil
	case TypeUserJoined:
		return UserJoinedMessage{UserID: env.UserID, Message: env.Message}, nil
	case TypeUserTyping:
		return UserTypingMessage{
			UserID:    env.UserID,
			UserEmail: env.UserEmail,
			IsTyping:  lo.FromPtr(env.IsTyping),
		}, nil
	case TypeError:
		return ErrorMessage{Message: env.Message}, nil
	default:
		return nil, &UnknownTypeError{Type: env.Type}
	}
}
