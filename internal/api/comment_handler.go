package api

import (
	"log/slog"
	"net/http"

	"github.com/tasklane/tasklane-api/internal/api/shared"
	"github.com/tasklane/tasklane-api/internal/service"
)

// CommentHandler handles the REST side of task comments. Comments created
// here reach live subscribers through the comment service's event.
type CommentHandler struct {
	comments service.CommentService
	logger   *slog.Logger
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(comments service.CommentService, logger *slog.Logger) *CommentHandler {
	if comments == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("comments cannot be nil for CommentHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommentHandler{
		comments: comments,
		logger:   logger.With(slog.String("component", "comment_handler")),
	}
}

// ListComments handles GET /tasks/{taskID}/comments?skip=&limit=.
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	taskID, err := getPathID(r, TaskIDParam)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}
	offset, limit, err := getPagination(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid pagination parameters")
		return
	}

	comments, err := h.comments.List(r.Context(), taskID, offset, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list comments")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, commentsToResponse(comments))
}

// CreateComment handles POST /tasks/{taskID}/comments.
func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	taskID, err := getPathID(r, TaskIDParam)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var req CreateCommentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	comment, err := h.comments.Create(r.Context(), principal, taskID, req.Content)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create comment")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, commentToResponse(comment))
}

// DeleteComment handles DELETE /tasks/{taskID}/comments/{commentID}. Only
// the author may delete a comment.
func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	taskID, err := getPathID(r, TaskIDParam)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}
	commentID, err := getPathID(r, CommentIDParam)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid comment ID")
		return
	}

	if err := h.comments.Delete(r.Context(), principal, taskID, commentID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete comment")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
