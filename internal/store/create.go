package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/logiflow/logiflow/internal/model"
)

// Create validates and inserts a record, returning the stored row with
// server-assigned fields filled in.
func (o *Operations) Create(
	ctx context.Context,
	data map[string]interface{},
) (map[string]interface{}, error) {
	var result map[string]interface{}
	err := o.inTransaction(ctx, func(tx *sql.Tx) error {
		record, err := o.createInTx(ctx, tx, data)
		if err != nil {
			return err
		}
		result = record
		return nil
	})
	return result, err
}

// createInTx inserts one record within a transaction.
func (o *Operations) createInTx(
	ctx context.Context,
	tx *sql.Tx,
	data map[string]interface{},
) (map[string]interface{}, error) {
	record := o.copyWithoutAutoFields(data)
	o.populateAutoFields(record, model.OpCreate)

	if err := o.validate(ctx, record, model.OpCreate); err != nil {
		return nil, err
	}

	inserted, err := o.insertRecord(ctx, tx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to insert %s: %w", o.entity.Name, ConvertDBError(err))
	}
	return inserted, nil
}

// insertRecord builds and runs the INSERT statement.
func (o *Operations) insertRecord(
	ctx context.Context,
	tx *sql.Tx,
	record map[string]interface{},
) (map[string]interface{}, error) {
	var fields []string
	var placeholders []string
	var values []interface{}
	counter := 1

	// Field declaration order keeps the statement deterministic.
	for _, f := range o.entity.Fields {
		if value, ok := record[f.Name]; ok {
			fields = append(fields, pq.QuoteIdentifier(f.Name))
			placeholders = append(placeholders, fmt.Sprintf("$%d", counter))
			values = append(values, value)
			counter++
		}
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("no fields to insert")
	}

	returning := o.returningColumns()
	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		pq.QuoteIdentifier(o.entity.TableName),
		strings.Join(fields, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(quoteAll(returning), ", "),
	)

	row := tx.QueryRowContext(ctx, stmt, values...)
	return scanRowWithColumns(row, returning)
}

// copyWithoutAutoFields copies client input, dropping server-assigned
// fields so submitted ids or timestamps cannot override the store.
func (o *Operations) copyWithoutAutoFields(data map[string]interface{}) map[string]interface{} {
	record := make(map[string]interface{}, len(data))
	for k, v := range data {
		if f := o.entity.Field(k); f != nil && f.Auto {
			continue
		}
		record[k] = v
	}
	return record
}

// populateAutoFields fills the primary key, timestamps, and declared
// defaults.
func (o *Operations) populateAutoFields(record map[string]interface{}, op model.Operation) {
	now := time.Now().UTC()

	for _, f := range o.entity.Fields {
		switch {
		case op == model.OpCreate && f.PrimaryKey && f.Auto:
			if _, exists := record[f.Name]; !exists && f.Type == model.TypeUUID {
				record[f.Name] = uuid.New().String()
			}

		case op == model.OpCreate && f.Auto && f.Type == model.TypeTimestamp:
			if _, exists := record[f.Name]; !exists {
				record[f.Name] = now
			}

		case op == model.OpUpdate && f.Name == "updated_at" && f.Type == model.TypeTimestamp:
			record[f.Name] = now
		}

		if op == model.OpCreate && f.Default != nil && !f.Auto {
			if _, exists := record[f.Name]; !exists {
				record[f.Name] = f.Default
			}
		}
	}
}

// returningColumns lists every entity column in declaration order.
func (o *Operations) returningColumns() []string {
	return o.entity.FieldNames()
}

func quoteAll(columns []string) []string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	return quoted
}
