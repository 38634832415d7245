package api

import (
	"log/slog"
	"net/http"

	"github.com/samber/lo"
	"github.com/tasklane/tasklane-api/internal/api/shared"
	"github.com/tasklane/tasklane-api/internal/domain"
	"github.com/tasklane/tasklane-api/internal/platform/logger"
	"github.com/tasklane/tasklane-api/internal/service"
	"github.com/tasklane/tasklane-api/internal/store"
)

// TaskHandler handles the shared task board.
type TaskHandler struct {
	tasks  service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks service.TaskService, logger *slog.Logger) *TaskHandler {
	if tasks == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("tasks cannot be nil for TaskHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// CreateTask handles POST /tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.Create(r.Context(), principal, req.Title, req.Description)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).
		Info("task created", "task_id", task.ID)
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// ListTasks handles GET /tasks?status=&skip=&limit=.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := getPagination(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid pagination parameters")
		return
	}

	filter := store.TaskFilter{Offset: offset, Limit: limit}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = lo.ToPtr(domain.TaskStatus(status))
	}

	tasks, err := h.tasks.List(r.Context(), filter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// GetTask handles GET /tasks/{taskID}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := getPathID(r, TaskIDParam)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	task, err := h.tasks.Get(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// UpdateTask handles PUT /tasks/{taskID}. Only the supplied fields change.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := getPathID(r, TaskIDParam)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var req UpdateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.Update(r.Context(), taskID, req.toTaskUpdate())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// DeleteTask handles DELETE /tasks/{taskID}. Comments go with the task.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := getPathID(r, TaskIDParam)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	if err := h.tasks.Delete(r.Context(), taskID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).
		Info("task deleted", "task_id", taskID)
	w.WriteHeader(http.StatusNoContent)
}

// TaskStats handles GET /tasks/stats/overview.
func (h *TaskHandler) TaskStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tasks.Stats(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load task statistics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}
