// Package store executes CRUD operations for registered entities against
// PostgreSQL. One Operations value serves one entity descriptor; the
// generated REST handlers and graph resolvers depend on the narrow Store
// interface so tests can substitute spies.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/logiflow/logiflow/internal/model"
	"github.com/logiflow/logiflow/internal/store/query"
)

// Store is the per-entity persistence surface consumed by the generated
// API handlers.
type Store interface {
	Find(ctx context.Context, id string) (map[string]interface{}, error)
	FindWhere(ctx context.Context, q *query.Builder) ([]map[string]interface{}, error)
	CountWhere(ctx context.Context, q *query.Builder) (int, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error)
	Update(ctx context.Context, id string, data map[string]interface{}) (map[string]interface{}, error)
	Delete(ctx context.Context, id string) error
	CreateMany(ctx context.Context, items []map[string]interface{}) ([]map[string]interface{}, error)
	DeleteMany(ctx context.Context, ids []string) (int, error)
}

// Validator checks a record against its entity descriptor, aggregating
// every violation.
type Validator interface {
	Validate(ctx context.Context, entity *model.Entity, record map[string]interface{}, op model.Operation) error
}

// TransactionManager runs store operations inside transactions.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error
	BeginTx(ctx context.Context) (*sql.Tx, error)
}

// Operations implements Store for one entity.
type Operations struct {
	entity    *model.Entity
	db        *sql.DB
	validator Validator
	txManager TransactionManager
}

// NewOperations creates the CRUD operations for an entity. validator and
// txManager may be nil; creation and update then run without validation
// or wrap each call in an ad-hoc transaction.
func NewOperations(
	entity *model.Entity,
	db *sql.DB,
	validator Validator,
	txManager TransactionManager,
) *Operations {
	return &Operations{
		entity:    entity,
		db:        db,
		validator: validator,
		txManager: txManager,
	}
}

// Entity returns the descriptor these operations serve.
func (o *Operations) Entity() *model.Entity { return o.entity }

// inTransaction runs fn inside the configured transaction manager, or an
// ad-hoc transaction when none was provided.
func (o *Operations) inTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if o.txManager != nil {
		return o.txManager.WithTransaction(ctx, fn)
	}

	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// validate runs the configured validator, if any.
func (o *Operations) validate(ctx context.Context, record map[string]interface{}, op model.Operation) error {
	if o.validator == nil {
		return nil
	}
	return o.validator.Validate(ctx, o.entity, record, op)
}
