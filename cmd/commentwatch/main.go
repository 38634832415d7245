// Command commentwatch follows the live comment stream of one task. Lines
// read from stdin are posted as comments.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/tasklane/tasklane-api/internal/config"
	"github.com/tasklane/tasklane-api/internal/domain"
	"github.com/tasklane/tasklane-api/internal/platform/logger"
	"github.com/tasklane/tasklane-api/internal/realtime"
	"github.com/tasklane/tasklane-api/internal/realtime/client"
)

type options struct {
	server      string
	token       string
	taskID      int64
	userID      int64
	maxAttempts int
	baseDelay   time.Duration
	verbose     bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("commentwatch", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.server, "server", "http://localhost:8000", "API base URL")
	fs.StringVar(&opts.token, "token", os.Getenv("TASKLANE_TOKEN"), "access token (default $TASKLANE_TOKEN)")
	fs.Int64Var(&opts.taskID, "task", 0, "task to follow")
	fs.Int64Var(&opts.userID, "user", 0, "own user id, to hide own typing signals")
	fs.IntVar(&opts.maxAttempts, "max-attempts", client.DefaultMaxAttempts, "reconnection attempts before giving up")
	fs.DurationVar(&opts.baseDelay, "base-delay", client.DefaultBaseDelay, "first reconnection delay")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "log connection details")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.taskID <= 0 {
		return options{}, errors.New("--task is required")
	}
	if opts.token == "" {
		return options{}, errors.New("--token or TASKLANE_TOKEN is required")
	}
	if _, err := socketURL(opts.server, opts.taskID); err != nil {
		return options{}, err
	}
	return opts, nil
}

// socketURL derives the task socket from the API base URL.
func socketURL(server string, taskID int64) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid --server: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid --server: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + fmt.Sprintf("/ws/tasks/%d", taskID)
	return u.String(), nil
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "commentwatch:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	log := logger.New(stderr, config.ServerConfig{LogLevel: level})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := newWatcher(opts, stdout, log)
	c, err := client.New(client.Options{
		URL:           w.url,
		Token:         opts.token,
		BaseDelay:     opts.baseDelay,
		MaxAttempts:   opts.maxAttempts,
		OnMessage:     w.onMessage,
		OnStateChange: w.onState,
		OnConnected:   w.onConnected,
		Logger:        log,
	})
	if err != nil {
		return err
	}

	go w.pump(ctx, stdin, c)

	err = c.Run(ctx)
	_ = c.Close()
	return err
}

// watcher renders the stream for one task.
type watcher struct {
	url      string
	out      io.Writer
	logger   *slog.Logger
	fetcher  client.CommentFetcher
	comments *client.CommentView
	typing   *client.TypingView
	resync   func(ctx context.Context)
	taskID   int64

	// printed is touched only from the controller's read goroutine.
	printed map[int64]bool
}

func newWatcher(opts options, out io.Writer, log *slog.Logger) *watcher {
	if log == nil {
		log = slog.Default()
	}
	wsURL, _ := socketURL(opts.server, opts.taskID)
	w := &watcher{
		url:      wsURL,
		out:      out,
		logger:   log,
		fetcher:  &client.HTTPCommentFetcher{BaseURL: strings.TrimSuffix(opts.server, "/"), Token: opts.token},
		comments: client.NewCommentView(),
		typing:   client.NewTypingView(opts.userID),
		taskID:   opts.taskID,
		printed:  make(map[int64]bool),
	}
	w.resync = client.Resync(w.fetcher, opts.taskID, w.comments, log)
	return w
}

// onConnected prints whatever the resync added; on first connect that is the
// whole history.
func (w *watcher) onConnected(ctx context.Context) {
	w.resync(ctx)
	for _, c := range w.comments.Comments() {
		w.printComment(c)
	}
}

func (w *watcher) onMessage(msg realtime.Outbound) {
	switch m := msg.(type) {
	case realtime.NewCommentMessage:
		if added := client.Apply(w.comments, w.typing, m); added != nil {
			w.printComment(added)
		}
	case realtime.UserTypingMessage:
		client.Apply(w.comments, w.typing, m)
		if typing := w.typing.Typing(); len(typing) > 0 {
			fmt.Fprintf(w.out, "… %s typing\n", strings.Join(typing, ", "))
		}
	case realtime.UserJoinedMessage:
		fmt.Fprintf(w.out, "* %s\n", m.Message)
	case realtime.ErrorMessage:
		fmt.Fprintf(w.out, "! %s\n", m.Message)
	}
}

func (w *watcher) onState(s client.State) {
	w.logger.Info("connection state", "task_id", w.taskID, "state", s.String())
	if s == client.StateReconnecting {
		fmt.Fprintln(w.out, "* connection lost, reconnecting")
	}
}

func (w *watcher) printComment(c *domain.Comment) {
	if w.printed[c.ID] {
		return
	}
	w.printed[c.ID] = true
	author := fmt.Sprintf("user %d", c.UserID)
	if c.User != nil && c.User.Email != "" {
		author = c.User.Email
	}
	fmt.Fprintf(w.out, "[%s] %s: %s\n", c.CreatedAt.Local().Format("15:04:05"), author, c.Content)
}

// pump posts each non-empty stdin line as a comment.
func (w *watcher) pump(ctx context.Context, stdin io.Reader, c *client.Controller) {
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := c.SendComment(line); err != nil {
			fmt.Fprintf(w.out, "! not sent: %v\n", err)
		}
	}
}
