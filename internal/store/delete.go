package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Delete removes a record by primary key. Deleting a missing record
// returns ErrNotFound.
func (o *Operations) Delete(ctx context.Context, id string) error {
	return o.inTransaction(ctx, func(tx *sql.Tx) error {
		return o.deleteInTx(ctx, tx, id)
	})
}

func (o *Operations) deleteInTx(ctx context.Context, tx *sql.Tx, id string) error {
	pk := o.entity.PrimaryKey()

	stmt := fmt.Sprintf(
		"DELETE FROM %s WHERE %s = $1",
		pq.QuoteIdentifier(o.entity.TableName),
		pq.QuoteIdentifier(pk.Name),
	)

	result, err := tx.ExecContext(ctx, stmt, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", o.entity.Name, ConvertDBError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
