package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tasklane/tasklane-api/internal/api"
	apiMiddleware "github.com/tasklane/tasklane-api/internal/api/middleware"
	"github.com/tasklane/tasklane-api/internal/api/shared"
	"github.com/tasklane/tasklane-api/internal/realtime"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Rooms       int    `json:"rooms"`
	Connections int    `json:"connections"`
}

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))

	authHandler := api.NewAuthHandler(app.userService, app.jwtService, &app.config.Auth, app.logger)
	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	commentHandler := api.NewCommentHandler(app.commentService, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.tokenValidator)

	r.Get("/health", app.handleHealth)

	// The socket authenticates from the token query parameter itself; the
	// request logger middleware would only log the upgrade.
	r.Get("/ws/tasks/{"+realtime.TaskIDParam+"}", app.engine.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Logger)

		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/auth/me", authHandler.Me)

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", taskHandler.CreateTask)
				r.Get("/", taskHandler.ListTasks)
				r.Get("/stats/overview", taskHandler.TaskStats)

				r.Route("/{"+api.TaskIDParam+"}", func(r chi.Router) {
					r.Get("/", taskHandler.GetTask)
					r.Put("/", taskHandler.UpdateTask)
					r.Delete("/", taskHandler.DeleteTask)

					r.Get("/comments", commentHandler.ListComments)
					r.Post("/comments", commentHandler.CreateComment)
					r.Delete("/comments/{"+api.CommentIDParam+"}", commentHandler.DeleteComment)
				})
			})
		})
	})

	return r
}

func (app *application) handleHealth(w http.ResponseWriter, r *http.Request) {
	registry := app.engine.Registry()
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status:      "healthy",
		Environment: app.config.Server.Environment,
		Rooms:       registry.RoomCount(),
		Connections: registry.TotalSessions(),
	})
}
