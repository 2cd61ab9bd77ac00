package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// CreateMany inserts a batch of records inside a single transaction.
// One invalid record aborts the whole batch.
func (o *Operations) CreateMany(
	ctx context.Context,
	items []map[string]interface{},
) ([]map[string]interface{}, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no items to create")
	}

	results := make([]map[string]interface{}, 0, len(items))
	err := o.inTransaction(ctx, func(tx *sql.Tx) error {
		for i, item := range items {
			record, err := o.createInTx(ctx, tx, item)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			results = append(results, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteMany removes the records whose primary keys are listed. Missing
// ids are skipped; the count of deleted rows is returned.
func (o *Operations) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	pk := o.entity.PrimaryKey()
	stmt := fmt.Sprintf(
		"DELETE FROM %s WHERE %s = ANY($1)",
		pq.QuoteIdentifier(o.entity.TableName),
		pq.QuoteIdentifier(pk.Name),
	)

	var count int
	err := o.inTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, stmt, pq.Array(ids))
		if err != nil {
			return fmt.Errorf("failed to delete %s batch: %w", o.entity.Name, ConvertDBError(err))
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		count = int(affected)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
