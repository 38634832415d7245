package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/tasklane/tasklane-api/internal/api"
	"github.com/tasklane/tasklane-api/internal/api/middleware"
	"github.com/tasklane/tasklane-api/internal/config"
	"github.com/tasklane/tasklane-api/internal/domain"
	"github.com/tasklane/tasklane-api/internal/events"
	"github.com/tasklane/tasklane-api/internal/mocks"
	"github.com/tasklane/tasklane-api/internal/service"
	"github.com/tasklane/tasklane-api/internal/service/auth"
)

var (
	alice = &domain.User{ID: 1, Email: "alice@example.com", HashedPassword: "secret1", CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	bob   = &domain.User{ID: 2, Email: "bob@example.com", HashedPassword: "secret2", CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
)

// testTokens maps bearer tokens to user ids for the mock JWT service.
var testTokens = map[string]int64{"alice-token": 1, "bob-token": 2}

type eventLog struct {
	mu     sync.Mutex
	events []*events.Event
}

func (l *eventLog) HandleEvent(_ context.Context, e *events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) Events() []*events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*events.Event(nil), l.events...)
}

type harness struct {
	router   http.Handler
	jwt      *mocks.MockJWTService
	users    *mocks.MockUserStore
	tasks    *mocks.MockTaskStore
	comments *mocks.MockCommentStore
	events   *eventLog
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		users:    mocks.NewMockUserStore(cloneUser(alice), cloneUser(bob)),
		tasks:    mocks.NewMockTaskStore(mocks.NewTask(42, alice.ID, "shared task")),
		comments: mocks.NewMockCommentStore(),
		events:   &eventLog{},
	}
	h.jwt = &mocks.MockJWTService{
		ValidateTokenFn: func(_ context.Context, token string) (*auth.Claims, error) {
			id, ok := testTokens[token]
			if !ok {
				return nil, auth.ErrInvalidToken
			}
			return &auth.Claims{UserID: id, TokenType: auth.TokenTypeAccess}, nil
		},
		Token:        "new-access",
		RefreshToken: "new-refresh",
	}

	db := mocks.NewTxDB(t, 20)
	emitter := events.NewInMemoryEventEmitter(nil)
	emitter.RegisterHandler(h.events)

	userService := service.NewUserService(h.users, &mocks.MockPasswordVerifier{}, db, nil)
	taskService := service.NewTaskService(h.tasks, db, nil)
	commentService := service.NewCommentService(h.comments, h.tasks, db, emitter, 0, nil)

	authHandler := api.NewAuthHandler(userService, h.jwt, &config.AuthConfig{TokenLifetimeMinutes: 30}, nil).
		WithTimeFunc(func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) })
	taskHandler := api.NewTaskHandler(taskService, nil)
	commentHandler := api.NewCommentHandler(commentService, nil)
	authMiddleware := middleware.NewAuthMiddleware(auth.NewTokenValidator(h.jwt, h.users, nil))

	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware(nil))
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
			r.Route("/{taskID}", func(r chi.Router) {
				r.Get("/", taskHandler.GetTask)
				r.Put("/", taskHandler.UpdateTask)
				r.Delete("/", taskHandler.DeleteTask)
				r.Get("/comments", commentHandler.ListComments)
				r.Post("/comments", commentHandler.CreateComment)
				r.Delete("/comments/{commentID}", commentHandler.DeleteComment)
			})
		})
	})
	h.router = r
	return h
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

// do sends a request with an optional JSON body and bearer token.
func (h *harness) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

type errorBody struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id"`
}
