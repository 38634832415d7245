//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasklane/tasklane-api/internal/config"
	"github.com/tasklane/tasklane-api/internal/domain"
	"github.com/tasklane/tasklane-api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// TestCommentLifecycle runs against the database named by TASKLANE_TEST_DATABASE_URL.
func TestCommentLifecycle(t *testing.T) {
	url := os.Getenv("TASKLANE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TASKLANE_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := Open(ctx, config.DatabaseConfig{URL: url, MaxOpenConns: 4, MaxIdleConns: 2}, 10*time.Second, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(ctx, db, "reset", quietLogger()))
	require.NoError(t, Migrate(ctx, db, "up", quietLogger()))

	users := NewPostgresUserStore(db, bcrypt.MinCost, quietLogger())
	tasks := NewPostgresTaskStore(db, quietLogger())
	comments := NewPostgresCommentStore(db, quietLogger())

	alice, err := domain.NewUser("alice@example.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, alice))

	dup, err := domain.NewUser("ALICE@example.com", "secret123")
	require.NoError(t, err)
	assert.ErrorIs(t, users.Create(ctx, dup), store.ErrEmailExists)

	task, err := domain.NewTask(alice.ID, "Report", nil)
	require.NoError(t, err)
	require.NoError(t, tasks.Create(ctx, task))

	principal := domain.Principal{ID: alice.ID, Email: alice.Email}
	for _, content := range []string{"first", "second"} {
		c, err := domain.NewComment(task.ID, principal, content, 0)
		require.NoError(t, err)
		require.NoError(t, comments.Create(ctx, c))
		assert.Positive(t, c.ID)
	}

	list, err := comments.ListByTask(ctx, task.ID, 0, 100)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Content)
	assert.Equal(t, alice.Email, list[0].User.Email)

	orphan, err := domain.NewComment(task.ID+1000, principal, "orphan", 0)
	require.NoError(t, err)
	assert.ErrorIs(t, comments.Create(ctx, orphan), store.ErrTaskNotFound)

	require.NoError(t, tasks.Delete(ctx, task.ID))
	list, err = comments.ListByTask(ctx, task.ID, 0, 100)
	require.NoError(t, err)
	assert.Empty(t, list, "comments cascade with their task")
}
