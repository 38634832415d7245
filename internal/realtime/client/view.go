package client

import (
	"sort"
	"sync"

	"github.com/tasklane/tasklane-api/internal/domain"
	"github.com/tasklane/tasklane-api/internal/realtime"
)

// CommentView is a client's local copy of a task's comments. Comments are
// unique by id and ordered by creation time, then id.
type CommentView struct {
	mu       sync.RWMutex
	byID     map[int64]*domain.Comment
	comments []*domain.Comment
}

// NewCommentView creates an empty view.
func NewCommentView() *CommentView {
	return &CommentView{byID: make(map[int64]*domain.Comment)}
}

func commentLess(a, b *domain.Comment) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Add inserts c unless a comment with the same id is present. It reports
// whether the view changed.
func (v *CommentView) Add(c *domain.Comment) bool {
	if c == nil {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.addLocked(c)
}

func (v *CommentView) addLocked(c *domain.Comment) bool {
	if _, ok := v.byID[c.ID]; ok {
		return false
	}
	i := sort.Search(len(v.comments), func(i int) bool { return commentLess(c, v.comments[i]) })
	v.comments = append(v.comments, nil)
	copy(v.comments[i+1:], v.comments[i:])
	v.comments[i] = c
	v.byID[c.ID] = c
	return true
}

// Merge adds every comment in cs and returns how many were new.
func (v *CommentView) Merge(cs []*domain.Comment) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	added := 0
	for _, c := range cs {
		if c != nil && v.addLocked(c) {
			added++
		}
	}
	return added
}

// Remove deletes the comment with the given id.
func (v *CommentView) Remove(id int64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.byID[id]; !ok {
		return false
	}
	delete(v.byID, id)
	for i, c := range v.comments {
		if c.ID == id {
			v.comments = append(v.comments[:i], v.comments[i+1:]...)
			break
		}
	}
	return true
}

// Comments returns the ordered comments.
func (v *CommentView) Comments() []*domain.Comment {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]*domain.Comment, len(v.comments))
	copy(out, v.comments)
	return out
}

func (v *CommentView) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.comments)
}

// TypingView tracks which other users are typing.
type TypingView struct {
	self int64

	mu     sync.RWMutex
	typing map[int64]string
}

// NewTypingView creates a view that ignores signals about selfID.
func NewTypingView(selfID int64) *TypingView {
	return &TypingView{self: selfID, typing: make(map[int64]string)}
}

// Apply records a typing signal. The newest signal per user wins.
func (v *TypingView) Apply(msg realtime.UserTypingMessage) {
	if msg.UserID == v.self {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if msg.IsTyping {
		v.typing[msg.UserID] = msg.UserEmail
	} else {
		delete(v.typing, msg.UserID)
	}
}

// CommentReceived clears the author's typing flag.
func (v *TypingView) CommentReceived(userID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.typing, userID)
}

// IsTyping reports whether userID is currently typing.
func (v *TypingView) IsTyping(userID int64) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.typing[userID]
	return ok
}

// Typing returns the emails of users currently typing, sorted.
func (v *TypingView) Typing() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]string, 0, len(v.typing))
	for _, email := range v.typing {
		out = append(out, email)
	}
	sort.Strings(out)
	return out
}

// Apply folds a server frame into the views. It returns the comment when
// msg added one.
func Apply(comments *CommentView, typing *TypingView, msg realtime.Outbound) *domain.Comment {
	switch m := msg.(type) {
	case realtime.NewCommentMessage:
		if typing != nil {
			typing.CommentReceived(m.Comment.UserID)
		}
		if comments != nil && comments.Add(m.Comment) {
			return m.Comment
		}
	case realtime.UserTypingMessage:
		if typing != nil {
			typing.Apply(m)
		}
	case realtime.UserJoinedMessage, realtime.ErrorMessage:
	}
	return nil
}
