package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasklane/tasklane-api/internal/api"
	"github.com/tasklane/tasklane-api/internal/domain"
	"github.com/tasklane/tasklane-api/internal/events"
)

func TestCreateComment(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/tasks/42/comments", "alice-token", map[string]string{"content": "  looks good  "})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c := decode[api.CommentResponse](t, rec)
	assert.Equal(t, "looks good", c.Content)
	assert.Equal(t, int64(42), c.TaskID)
	assert.Equal(t, alice.ID, c.UserID)
	require.NotNil(t, c.User)
	assert.Equal(t, alice.Email, c.User.Email)
	assert.Equal(t, "UTC", c.CreatedAt.Location().String())

	emitted := h.events.Events()
	require.Len(t, emitted, 1, "REST comments reach live subscribers")
	assert.Equal(t, events.TypeCommentCreated, emitted[0].Type)
	var payload domain.Comment
	require.NoError(t, emitted[0].UnmarshalPayload(&payload))
	assert.Equal(t, c.ID, payload.ID)
}

func TestCreateComment_SameShapeAsLiveFrame(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/tasks/42/comments", "bob-token", map[string]string{"content": "hi"})
	require.Equal(t, http.StatusCreated, rec.Code)

	emitted := h.events.Events()
	require.Len(t, emitted, 1)
	assert.JSONEq(t, string(emitted[0].Payload), strings.TrimSpace(rec.Body.String()))
}

func TestCreateComment_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		content    string
		wantStatus int
		wantError  string
	}{
		{"blank", "/tasks/42/comments", " \n\t", http.StatusBadRequest, "Comment content cannot be empty"},
		{"too long", "/tasks/42/comments", strings.Repeat("字", 1001), http.StatusBadRequest, "Comment content is too long"},
		{"missing task", "/tasks/9/comments", "hi", http.StatusNotFound, "Task not found"},
		{"bad task id", "/tasks/0/comments", "hi", http.StatusBadRequest, "Invalid task ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)

			rec := h.do(t, http.MethodPost, tt.path, "alice-token", map[string]string{"content": tt.content})

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, decode[errorBody](t, rec).Error)
			assert.Empty(t, h.events.Events())
		})
	}
}

func TestListComments(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	for _, content := range []string{"first", "second", "third"} {
		rec := h.do(t, http.MethodPost, "/tasks/42/comments", "alice-token", map[string]string{"content": content})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := h.do(t, http.MethodGet, "/tasks/42/comments", "bob-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	comments := decode[[]api.CommentResponse](t, rec)
	require.Len(t, comments, 3)
	assert.Equal(t, "first", comments[0].Content, "oldest first")
	assert.Equal(t, "third", comments[2].Content)

	rec = h.do(t, http.MethodGet, "/tasks/42/comments?skip=1&limit=1", "bob-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	comments = decode[[]api.CommentResponse](t, rec)
	require.Len(t, comments, 1)
	assert.Equal(t, "second", comments[0].Content)

	rec = h.do(t, http.MethodGet, "/tasks/9/comments", "bob-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/tasks/42/comments?limit=1001", "bob-token", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListComments_EmptyIsArray(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/tasks/42/comments", "bob-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, "[]", strings.TrimSpace(string(raw)))
}

func TestDeleteComment(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/tasks/42/comments", "alice-token", map[string]string{"content": "mine"})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[api.CommentResponse](t, rec).ID
	path := "/tasks/42/comments/" + jsonNumber(id)

	rec = h.do(t, http.MethodDelete, path, "bob-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You can only delete your own comments", decode[errorBody](t, rec).Error)

	rec = h.do(t, http.MethodDelete, "/tasks/7/comments/"+jsonNumber(id), "alice-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodDelete, path, "alice-token", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(t, http.MethodDelete, path, "alice-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Comment not found", decode[errorBody](t, rec).Error)

	rec = h.do(t, http.MethodDelete, "/tasks/42/comments/x", "alice-token", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateComment_StoreFailureIsOpaque(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.comments.SetCreateFn(func(context.Context, *domain.Comment) error {
		return errors.New("pq: relation \"comments\" does not exist")
	})

	rec := h.do(t, http.MethodPost, "/tasks/42/comments", "alice-token", map[string]string{"content": "hi"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to create comment", decode[errorBody](t, rec).Error)
	assert.Empty(t, h.events.Events())
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
