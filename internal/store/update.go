package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/logiflow/logiflow/internal/model"
)

// Update merges the given data over the stored record, validates the
// result, and writes it back. The full updated row is returned.
func (o *Operations) Update(
	ctx context.Context,
	id string,
	data map[string]interface{},
) (map[string]interface{}, error) {
	var result map[string]interface{}
	err := o.inTransaction(ctx, func(tx *sql.Tx) error {
		record, err := o.updateInTx(ctx, tx, id, data)
		if err != nil {
			return err
		}
		result = record
		return nil
	})
	return result, err
}

func (o *Operations) updateInTx(
	ctx context.Context,
	tx *sql.Tx,
	id string,
	data map[string]interface{},
) (map[string]interface{}, error) {
	existing, err := o.findInTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	record := o.mergeForUpdate(existing, data)
	o.populateAutoFields(record, model.OpUpdate)

	if err := o.validate(ctx, record, model.OpUpdate); err != nil {
		return nil, err
	}

	updated, err := o.updateRecord(ctx, tx, id, record)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", o.entity.Name, ConvertDBError(err))
	}
	return updated, nil
}

// findInTx loads the current row inside the transaction so concurrent
// updates cannot slip between the read and the write.
func (o *Operations) findInTx(
	ctx context.Context,
	tx *sql.Tx,
	id string,
) (map[string]interface{}, error) {
	pk := o.entity.PrimaryKey()
	columns := o.returningColumns()

	stmt := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = $1 FOR UPDATE",
		strings.Join(quoteAll(columns), ", "),
		pq.QuoteIdentifier(o.entity.TableName),
		pq.QuoteIdentifier(pk.Name),
	)

	row := tx.QueryRowContext(ctx, stmt, id)
	record, err := scanRowWithColumns(row, columns)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return record, nil
}

// mergeForUpdate lays the submitted fields over the stored record.
// The primary key and server-assigned creation fields never move.
func (o *Operations) mergeForUpdate(
	existing map[string]interface{},
	data map[string]interface{},
) map[string]interface{} {
	record := make(map[string]interface{}, len(existing))
	for k, v := range existing {
		record[k] = v
	}
	for k, v := range data {
		if f := o.entity.Field(k); f != nil && (f.PrimaryKey || f.Auto) {
			continue
		}
		record[k] = v
	}
	return record
}

func (o *Operations) updateRecord(
	ctx context.Context,
	tx *sql.Tx,
	id string,
	record map[string]interface{},
) (map[string]interface{}, error) {
	pk := o.entity.PrimaryKey()

	var assignments []string
	var values []interface{}
	counter := 1

	for _, f := range o.entity.Fields {
		if f.PrimaryKey {
			continue
		}
		if value, ok := record[f.Name]; ok {
			assignments = append(assignments, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(f.Name), counter))
			values = append(values, value)
			counter++
		}
	}

	if len(assignments) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	returning := o.returningColumns()
	stmt := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = $%d RETURNING %s",
		pq.QuoteIdentifier(o.entity.TableName),
		strings.Join(assignments, ", "),
		pq.QuoteIdentifier(pk.Name),
		counter,
		strings.Join(quoteAll(returning), ", "),
	)
	values = append(values, id)

	row := tx.QueryRowContext(ctx, stmt, values...)
	updated, err := scanRowWithColumns(row, returning)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return updated, nil
}
