package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/logiflow/logiflow/internal/store/query"
)

// Find retrieves a single record by primary key.
func (o *Operations) Find(ctx context.Context, id string) (map[string]interface{}, error) {
	pk := o.entity.PrimaryKey()
	columns := o.returningColumns()

	stmt := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = $1",
		strings.Join(quoteAll(columns), ", "),
		pq.QuoteIdentifier(o.entity.TableName),
		pq.QuoteIdentifier(pk.Name),
	)

	row := o.db.QueryRowContext(ctx, stmt, id)
	record, err := scanRowWithColumns(row, columns)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return record, nil
}

// FindWhere runs the given query and returns all matching records.
func (o *Operations) FindWhere(ctx context.Context, qb *query.Builder) ([]map[string]interface{}, error) {
	stmt, args, err := qb.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build query for %s: %w", o.entity.Name, err)
	}

	rows, err := o.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", o.entity.Name, ConvertDBError(err))
	}
	defer rows.Close()

	return ScanRows(rows)
}

// CountWhere counts the records matching the given query, ignoring its
// pagination.
func (o *Operations) CountWhere(ctx context.Context, qb *query.Builder) (int, error) {
	stmt, args, err := qb.ToCountSQL()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query for %s: %w", o.entity.Name, err)
	}

	var count int
	if err := o.db.QueryRowContext(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", o.entity.Name, ConvertDBError(err))
	}
	return count, nil
}

// Exists reports whether a record with the given primary key exists.
func (o *Operations) Exists(ctx context.Context, id string) (bool, error) {
	pk := o.entity.PrimaryKey()

	stmt := fmt.Sprintf(
		"SELECT EXISTS(SELECT 1 FROM %s WHERE %s = $1)",
		pq.QuoteIdentifier(o.entity.TableName),
		pq.QuoteIdentifier(pk.Name),
	)

	var exists bool
	if err := o.db.QueryRowContext(ctx, stmt, id).Scan(&exists); err != nil {
		return false, ConvertDBError(err)
	}
	return exists, nil
}
