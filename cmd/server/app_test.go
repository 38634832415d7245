package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasklane/tasklane-api/internal/config"
	"github.com/tasklane/tasklane-api/internal/domain"
	"github.com/tasklane/tasklane-api/internal/mocks"
	"github.com/tasklane/tasklane-api/internal/platform/logger"
	"github.com/tasklane/tasklane-api/internal/realtime"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "passw0rd"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:                   8000,
			LogLevel:               "error",
			Environment:            "test",
			ShutdownTimeoutSeconds: 5,
		},
		Database: config.DatabaseConfig{URL: "postgres://unused"},
		Auth: config.AuthConfig{
			JWTSecret:                   "test-secret-that-is-at-least-32-characters",
			BCryptCost:                  bcrypt.MinCost,
			TokenLifetimeMinutes:        30,
			RefreshTokenLifetimeMinutes: 60,
		},
		Realtime: config.RealtimeConfig{
			SendBufferSize:   32,
			PingInterval:     time.Second,
			PongWait:         5 * time.Second,
			WriteWait:        time.Second,
			MaxMessageBytes:  4096,
			TypingExpiry:     5 * time.Second,
			MaxCommentLength: 1000,
			InboundRate:      100,
			InboundBurst:     100,
		},
	}
}

func newTestApp(t *testing.T) *application {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := testConfig()
	log := logger.New(io.Discard, cfg.Server)
	app, err := newApplicationWithStores(cfg, log, mocks.NewTxDB(t, 50), stores{
		users: mocks.NewMockUserStore(
			&domain.User{ID: 1, Email: "alice@example.com", HashedPassword: string(hash)},
			&domain.User{ID: 2, Email: "bob@example.com", HashedPassword: string(hash)},
		),
		tasks:    mocks.NewMockTaskStore(mocks.NewTask(42, 1, "shared task")),
		comments: mocks.NewMockCommentStore(),
	})
	require.NoError(t, err)
	return app
}

func postJSON(t *testing.T, url, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func login(t *testing.T, baseURL, email string) string {
	t.Helper()
	resp := postJSON(t, baseURL+"/auth/login", "", map[string]string{"email": email, "password": testPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tokens struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokens))
	require.Equal(t, "bearer", tokens.TokenType)
	return tokens.AccessToken
}

func health(t *testing.T, baseURL string) HealthResponse {
	t.Helper()
	resp, err := http.Get(baseURL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var h HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	return h
}

func dialTask(t *testing.T, baseURL, token string, taskID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws/tasks/" + taskID + "?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) realtime.Outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := realtime.DecodeOutbound(data)
	require.NoError(t, err, string(data))
	return msg
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.setupRouter())
	t.Cleanup(srv.Close)

	h := health(t, srv.URL)
	assert.Equal(t, HealthResponse{Status: "healthy", Environment: "test"}, h)

	token := login(t, srv.URL, "alice@example.com")
	dialTask(t, srv.URL, token, "42")

	require.Eventually(t, func() bool {
		h := health(t, srv.URL)
		return h.Rooms == 1 && h.Connections == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRESTCommentReachesLiveSubscribers(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.setupRouter())
	t.Cleanup(srv.Close)

	aliceToken := login(t, srv.URL, "alice@example.com")
	bobToken := login(t, srv.URL, "bob@example.com")

	conn := dialTask(t, srv.URL, bobToken, "42")
	require.Eventually(t, func() bool { return app.engine.Registry().SessionCount(42) == 1 },
		2*time.Second, 10*time.Millisecond)

	resp := postJSON(t, srv.URL+"/tasks/42/comments", aliceToken, map[string]string{"content": "from REST"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	restBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	msg := readFrame(t, conn)
	nc, ok := msg.(realtime.NewCommentMessage)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, "from REST", nc.Comment.Content)
	assert.Equal(t, "alice@example.com", nc.Comment.User.Email)

	live, err := json.Marshal(nc.Comment)
	require.NoError(t, err)
	assert.JSONEq(t, string(restBody), string(live), "REST and live representations match")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.setupRouter())
	t.Cleanup(srv.Close)

	for _, path := range []string{"/auth/me", "/tasks", "/tasks/42", "/tasks/42/comments", "/tasks/stats/overview"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/tasks/42"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestServe_GracefulShutdownClosesLiveSessions(t *testing.T) {
	app := newTestApp(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	baseURL := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.serve(ctx, ln, app.setupRouter()) }()

	token := login(t, baseURL, "alice@example.com")
	conn := dialTask(t, baseURL, token, "42")
	require.Eventually(t, func() bool { return app.engine.Registry().TotalSessions() == 1 },
		2*time.Second, 10*time.Millisecond)

	cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return")
	}
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"--migrate", "status", "--db-wait", "2s"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "status", opts.migrate)
	assert.Equal(t, 2*time.Second, opts.dbWait)
	assert.False(t, opts.autoMigrate)

	opts, err = parseFlags(nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, opts.dbWait)

	_, err = parseFlags([]string{"--nope"}, io.Discard)
	assert.Error(t, err)

	_, err = parseFlags([]string{"serve"}, io.Discard)
	assert.Error(t, err)
}
