package transaction

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	_, err = db.Exec(`
		CREATE TABLE visites (
			id TEXT PRIMARY KEY,
			statut TEXT NOT NULL
		)
	`)
	require.NoError(t, err)

	return db
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM visites").Scan(&n))
	return n
}

func TestWithTransactionCommits(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	mgr := NewManager(db)
	err := mgr.WithTransaction(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO visites (id, statut) VALUES (?, ?)", "v1", "programmee")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countRows(t, db))
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	boom := errors.New("boom")
	mgr := NewManager(db)
	err := mgr.WithTransaction(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO visites (id, statut) VALUES (?, ?)", "v1", "programmee"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countRows(t, db), "insert must be rolled back")
}

func TestWithTransactionRollsBackOnPanic(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	mgr := NewManager(db)
	assert.Panics(t, func() {
		_ = mgr.WithTransaction(context.Background(), func(tx *sql.Tx) error {
			if _, err := tx.Exec("INSERT INTO visites (id, statut) VALUES (?, ?)", "v1", "programmee"); err != nil {
				return err
			}
			panic("resolver blew up")
		})
	})
	assert.Equal(t, 0, countRows(t, db), "insert must be rolled back after panic")
}

func TestTransactionDoubleFinish(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	mgr := NewManager(db)

	tx, err := mgr.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.True(t, tx.IsCommitted())
	assert.ErrorIs(t, tx.Commit(), ErrAlreadyFinished)
	assert.ErrorIs(t, tx.Rollback(), ErrAlreadyFinished)

	tx2, err := mgr.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx2.Rollback())
	assert.True(t, tx2.IsRolledBack())
	assert.NoError(t, tx2.Rollback(), "second rollback is a no-op")
}

func TestTransactionExecAndQuery(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	mgr := NewManager(db)
	tx, err := mgr.Begin(context.Background())
	require.NoError(t, err)

	_, err = tx.Exec("INSERT INTO visites (id, statut) VALUES (?, ?)", "v1", "terminee")
	require.NoError(t, err)

	rows, err := tx.Query("SELECT statut FROM visites WHERE id = ?", "v1")
	require.NoError(t, err)
	require.True(t, rows.Next())
	var statut string
	require.NoError(t, rows.Scan(&statut))
	require.NoError(t, rows.Close())
	assert.Equal(t, "terminee", statut)

	require.NoError(t, tx.Commit())
}

func TestBeginTx(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	mgr := NewManager(db)
	tx, err := mgr.BeginTx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
}
