package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/logiflow/logiflow/internal/model"
)

// Runner applies the registry's DDL to a database.
type Runner struct {
	db       *sql.DB
	registry *model.Registry
}

// NewRunner creates a DDL runner for the given registry.
func NewRunner(db *sql.DB, registry *model.Registry) *Runner {
	return &Runner{db: db, registry: registry}
}

// Apply creates every missing table inside one transaction. Statements
// use IF NOT EXISTS, so reruns are harmless.
func (r *Runner) Apply(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, entity := range r.registry.InOrder() {
		stmt := CreateTableSQL(r.registry, entity)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table %s: %w", entity.TableName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
