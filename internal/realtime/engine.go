package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"github.com/tasklane/tasklane-api/internal/api/shared"
	"github.com/tasklane/tasklane-api/internal/config"
	"github.com/tasklane/tasklane-api/internal/domain"
	"github.com/tasklane/tasklane-api/internal/events"
	"github.com/tasklane/tasklane-api/internal/platform/logger"
	"github.com/tasklane/tasklane-api/internal/redact"
	"github.com/tasklane/tasklane-api/internal/service/auth"
	"github.com/tasklane/tasklane-api/internal/store"
	"golang.org/x/time/rate"
)

// TaskIDParam is the chi URL parameter holding the task id.
const TaskIDParam = "taskID"

// Messages sent to a single session in error events.
const (
	MsgEmptyComment     = "留言內容不能為空"
	MsgCommentTooLong   = "留言內容不能超過 %d 個字"
	MsgMalformedJSON    = "無效的JSON格式"
	MsgUnknownType      = "未知的訊息類型: %s"
	MsgProcessingFailed = "處理訊息時發生錯誤"
	MsgTaskGone         = "任務不存在"
	MsgRateLimited      = "訊息傳送過於頻繁，請稍後再試"
)

const (
	// maxRateViolations is the number of consecutive rate-limited frames
	// after which the connection is closed.
	maxRateViolations = 10

	persistTimeout = 5 * time.Second
)

// Authenticator resolves a bearer credential. auth.TokenValidator satisfies it.
type Authenticator interface {
	Validate(ctx context.Context, credential string) (domain.Principal, error)
}

// TaskChecker reports whether a task exists. store.TaskStore satisfies it.
type TaskChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// CommentCreator persists a comment. service.CommentService satisfies it.
// Implementations emit events.TypeCommentCreated once the comment is durable;
// the Engine broadcasts from that event rather than from the return value.
type CommentCreator interface {
	Create(ctx context.Context, author domain.Principal, taskID int64, content string) (*domain.Comment, error)
}

// Engine serves the task comment socket.
type Engine struct {
	registry *Registry
	tokens   Authenticator
	tasks    TaskChecker
	comments CommentCreator
	cfg      config.RealtimeConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger

	wg sync.WaitGroup
}

// NewEngine creates an Engine. allowedOrigins lists the Origin values
// accepted on upgrade; when empty only same-host origins are accepted.
func NewEngine(
	registry *Registry,
	tokens Authenticator,
	tasks TaskChecker,
	comments CommentCreator,
	cfg config.RealtimeConfig,
	allowedOrigins []string,
	logger *slog.Logger,
) *Engine {
	if registry == nil || tokens == nil || tasks == nil || comments == nil {
		// ALLOW-PANIC: Constructor enforcing required dependencies
		panic("registry, tokens, tasks and comments cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		registry: registry,
		tokens:   tokens,
		tasks:    tasks,
		comments: comments,
		cfg:      cfg,
		logger:   logger.With("component", "realtime_engine"),
	}
	e.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return e
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if len(allowed) > 0 {
			return lo.Contains(allowed, origin)
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

// Registry returns the engine's room registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// ServeHTTP performs the handshake for GET /ws/tasks/{taskID}. Nothing is
// allocated for the connection until the credential and task check out.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContextOrDefault(ctx, e.logger)

	taskID, err := strconv.ParseInt(chi.URLParam(r, TaskIDParam), 10, 64)
	if err != nil || taskID <= 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	principal, err := e.tokens.Validate(ctx, credentialFromRequest(r))
	if err != nil {
		if auth.IsAuthError(err) {
			log.Debug("websocket handshake rejected", "task_id", taskID, "error", err)
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid or missing token")
			return
		}
		log.Error("token validation failed", "task_id", taskID, "error", redact.Error(err))
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
		return
	}

	exists, err := e.tasks.Exists(ctx, taskID)
	if err != nil {
		log.Error("task lookup failed", "task_id", taskID, "error", redact.Error(err))
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to look up task")
		return
	}
	if !exists {
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return
	}

	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Debug("websocket upgrade failed", "task_id", taskID, "error", err)
		return
	}

	session := NewSession(principal, taskID, e.cfg.SendBufferSize)
	e.serve(conn, session)
}

// credentialFromRequest prefers the token query parameter, which browsers
// can set, over the Authorization header.
func credentialFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	token, _ := shared.BearerToken(r)
	return token
}

func (e *Engine) serve(conn *websocket.Conn, s *Session) {
	log := e.logger.With(
		"task_id", s.TaskID(),
		"session_id", s.ID(),
		"user_id", s.Principal().ID)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.writePump(conn, s, log)
	}()

	if err := e.registry.Join(s.TaskID(), s); err != nil {
		log.Error("failed to join room", "error", err)
		s.CloseWith(websocket.CloseInternalServerErr, "join failed")
		return
	}
	s.Activate()
	log.Info("session connected")

	e.readPump(conn, s, log)

	e.registry.Leave(s.TaskID(), s)
	if s.ClearTyping() {
		e.broadcastTyping(s, false)
	}
	s.Close()
	log.Info("session disconnected")
}

func (e *Engine) readPump(conn *websocket.Conn, s *Session, log *slog.Logger) {
	conn.SetReadLimit(e.cfg.MaxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(e.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		s.Touch()
		return conn.SetReadDeadline(time.Now().Add(e.cfg.PongWait))
	})

	limiter := rate.NewLimiter(rate.Limit(e.cfg.InboundRate), e.cfg.InboundBurst)
	violations := 0

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				log.Debug("connection closed abnormally", "error", err)
			}
			return
		}
		s.Touch()
		_ = conn.SetReadDeadline(time.Now().Add(e.cfg.PongWait))

		if !limiter.Allow() {
			violations++
			if violations >= maxRateViolations {
				log.Warn("closing session for exceeding inbound rate")
				s.CloseWith(websocket.ClosePolicyViolation, "rate limit exceeded")
				return
			}
			e.sendError(s, MsgRateLimited)
			continue
		}
		violations = 0

		e.dispatch(s, data, log)
	}
}

func (e *Engine) dispatch(s *Session, data []byte, log *slog.Logger) {
	msg, err := DecodeInbound(data)
	if err != nil {
		var unknown *UnknownTypeError
		switch {
		case errors.As(err, &unknown):
			e.sendError(s, fmt.Sprintf(MsgUnknownType, unknown.Type))
		default:
			e.sendError(s, MsgMalformedJSON)
		}
		return
	}

	switch m := msg.(type) {
	case CommentMessage:
		e.handleComment(s, m, log)
	case TypingMessage:
		e.handleTyping(s, m)
	default:
		log.Error("unhandled inbound message", "type", fmt.Sprintf("%T", msg))
		e.sendError(s, MsgProcessingFailed)
	}
}

func (e *Engine) handleComment(s *Session, m CommentMessage, log *slog.Logger) {
	content, err := domain.NormalizeCommentContent(m.Content, e.cfg.MaxCommentLength)
	if err != nil {
		e.sendError(s, e.validationMessage(err))
		return
	}

	ctx, cancel := context.WithTimeout(logger.WithLogger(context.Background(), log), persistTimeout)
	defer cancel()

	comment, err := e.comments.Create(ctx, s.Principal(), s.TaskID(), content)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyCommentContent), errors.Is(err, domain.ErrCommentTooLong):
			e.sendError(s, e.validationMessage(err))
		case errors.Is(err, store.ErrTaskNotFound):
			e.sendError(s, MsgTaskGone)
		default:
			log.Error("failed to persist comment", "error", redact.Error(err))
			e.sendError(s, MsgProcessingFailed)
		}
		return
	}

	log.Debug("comment accepted", "comment_id", comment.ID)
	if s.ClearTyping() {
		e.broadcastTyping(s, false)
	}
}

func (e *Engine) validationMessage(err error) string {
	if errors.Is(err, domain.ErrCommentTooLong) {
		limit := e.cfg.MaxCommentLength
		if limit <= 0 {
			limit = domain.DefaultMaxCommentLength
		}
		return fmt.Sprintf(MsgCommentTooLong, limit)
	}
	return MsgEmptyComment
}

func (e *Engine) handleTyping(s *Session, m TypingMessage) {
	s.SetTyping(m.IsTyping, e.cfg.TypingExpiry, func() {
		e.broadcastTyping(s, false)
	})
	e.broadcastTyping(s, m.IsTyping)
}

func (e *Engine) broadcastTyping(s *Session, isTyping bool) {
	p := s.Principal()
	e.registry.Broadcast(s.TaskID(), UserTypingMessage{
		UserID:    p.ID,
		UserEmail: p.Email,
		IsTyping:  isTyping,
	}, s)
}

func (e *Engine) sendError(s *Session, message string) {
	if err := s.Send(ErrorMessage{Message: message}); err != nil && !errors.Is(err, ErrSessionClosed) {
		e.registry.Leave(s.TaskID(), s)
	}
}

func (e *Engine) writePump(conn *websocket.Conn, s *Session, log *slog.Logger) {
	ticker := time.NewTicker(e.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case data := <-s.Outbox():
			_ = conn.SetWriteDeadline(time.Now().Add(e.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug("write failed", "error", err)
				s.CloseWith(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(e.cfg.WriteWait)); err != nil {
				log.Debug("ping failed", "error", err)
				s.CloseWith(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		case <-s.Done():
			e.flush(conn, s)
			code, reason := s.CloseStatus()
			if code != websocket.CloseAbnormalClosure {
				msg := websocket.FormatCloseMessage(code, reason)
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(e.cfg.WriteWait))
			}
			return
		}
	}
}

// flush writes frames queued before the session closed.
func (e *Engine) flush(conn *websocket.Conn, s *Session) {
	for {
		select {
		case data := <-s.Outbox():
			_ = conn.SetWriteDeadline(time.Now().Add(e.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

// HandleEvent implements events.EventHandler. A persisted comment is
// broadcast to every member of its task room, the author included.
func (e *Engine) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeCommentCreated {
		return nil
	}

	var comment domain.Comment
	if err := event.UnmarshalPayload(&comment); err != nil {
		return fmt.Errorf("failed to decode comment event %s: %w", event.ID, err)
	}

	result := e.registry.Broadcast(comment.TaskID, NewCommentMessage{Comment: &comment}, nil)
	logger.FromContextOrDefault(ctx, e.logger).Debug("comment broadcast",
		"task_id", comment.TaskID,
		"comment_id", comment.ID,
		"delivered", result.Delivered,
		"dropped", len(result.Dropped))
	return nil
}

var _ events.EventHandler = (*Engine)(nil)

// Shutdown closes every live session and waits for their writers to exit
// or for ctx to expire.
func (e *Engine) Shutdown(ctx context.Context) error {
	n := e.registry.CloseAll()
	e.logger.Info("closing live sessions", "sessions", n)

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
