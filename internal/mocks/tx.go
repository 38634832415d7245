package mocks

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// NewTxDB returns a go-sqlmock database that accepts any number of
// transactions that either commit or roll back, for services that wrap
// mocked stores in store.RunInTransaction.
func NewTxDB(t testing.TB, transactions int) *sql.DB {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < transactions; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
