package store

import (
	"database/sql"

	"github.com/logiflow/logiflow/internal/model"
)

// BuildAll constructs the per-entity operations map the API generators
// consume, sharing one validator and transaction manager across all
// entities.
func BuildAll(
	registry *model.Registry,
	db *sql.DB,
	validator Validator,
	txManager TransactionManager,
) map[string]Store {
	stores := make(map[string]Store, registry.Count())
	for _, entity := range registry.All() {
		stores[entity.Name] = NewOperations(entity, db, validator, txManager)
	}
	return stores
}
