// Package transaction wraps database/sql transactions for the store.
package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrAlreadyFinished is returned when a transaction is committed or
// rolled back twice.
var ErrAlreadyFinished = errors.New("transaction already finished")

// Manager begins and runs transactions against one database handle.
type Manager struct {
	db *sql.DB
}

// NewManager creates a transaction manager.
func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

// BeginTx starts a plain transaction. It satisfies the store's
// TransactionManager interface.
func (m *Manager) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return m.db.BeginTx(ctx, nil)
}

// Begin starts a transaction with commit/rollback state tracking.
func (m *Manager) Begin(ctx context.Context) (*Transaction, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Transaction{tx: tx, ctx: ctx}, nil
}

// WithTransaction runs fn inside a transaction, committing on success
// and rolling back on error or panic. The panic is re-raised after the
// rollback.
func (m *Manager) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx.tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %w, rollback failed: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// Transaction is a database transaction with double-finish protection.
type Transaction struct {
	tx         *sql.Tx
	ctx        context.Context
	committed  atomic.Bool
	rolledBack atomic.Bool
}

// Tx returns the underlying sql.Tx.
func (t *Transaction) Tx() *sql.Tx { return t.tx }

// Commit commits the transaction.
func (t *Transaction) Commit() error {
	if t.committed.Load() || t.rolledBack.Load() {
		return ErrAlreadyFinished
	}
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.committed.Store(true)
	return nil
}

// Rollback rolls the transaction back. Rolling back twice is a no-op.
func (t *Transaction) Rollback() error {
	if t.committed.Load() {
		return ErrAlreadyFinished
	}
	if t.rolledBack.Load() {
		return nil
	}
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	t.rolledBack.Store(true)
	return nil
}

// Exec executes a statement within the transaction.
func (t *Transaction) Exec(query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(t.ctx, query, args...)
}

// Query runs a query within the transaction.
func (t *Transaction) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.QueryContext(t.ctx, query, args...)
}

// IsCommitted reports whether Commit succeeded.
func (t *Transaction) IsCommitted() bool { return t.committed.Load() }

// IsRolledBack reports whether Rollback ran.
func (t *Transaction) IsRolledBack() bool { return t.rolledBack.Load() }
