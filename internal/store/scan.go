package store

import (
	"database/sql"
)

// normalizeValue converts driver-specific scan results into values the
// web layers can encode directly. lib/pq returns []byte for text, uuid,
// and numeric columns; JSON encoding would base64 those.
func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// scanRowWithColumns scans a single row with a known column order.
func scanRowWithColumns(row *sql.Row, columns []string) (map[string]interface{}, error) {
	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	if err := row.Scan(valuePtrs...); err != nil {
		return nil, err
	}

	record := make(map[string]interface{}, len(columns))
	for i, col := range columns {
		record[col] = normalizeValue(values[i])
	}
	return record, nil
}

// ScanRows scans every row into a record map using the result's own
// column list. Exported because the relations loader shares it.
func ScanRows(rows *sql.Rows) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		record := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			record[col] = normalizeValue(values[i])
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
