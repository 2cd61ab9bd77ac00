// Package request parses JSON request bodies for the generated write
// operations. Unknown fields are left in the decoded map on purpose:
// the validation engine reports them, aggregated with every other
// violation, instead of the parser rejecting the first one.
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBodySize caps request bodies at 10 MB.
const MaxBodySize = 10 << 20

// ErrEmptyBody is returned when a write operation receives no body.
var ErrEmptyBody = errors.New("request body is empty")

// ParseRecord decodes the request body into a record map.
func ParseRecord(w http.ResponseWriter, r *http.Request) (map[string]interface{}, error) {
	var record map[string]interface{}
	if err := decode(w, r, &record); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrEmptyBody
	}
	return record, nil
}

// BulkCreateBody is the body of POST /api/<entity>/bulk/.
type BulkCreateBody struct {
	Items []map[string]interface{} `json:"items"`
}

// ParseBulkCreate decodes a bulk-create body.
func ParseBulkCreate(w http.ResponseWriter, r *http.Request) (*BulkCreateBody, error) {
	var body BulkCreateBody
	if err := decode(w, r, &body); err != nil {
		return nil, err
	}
	if len(body.Items) == 0 {
		return nil, fmt.Errorf("items must not be empty")
	}
	return &body, nil
}

// BulkDeleteBody is the body of DELETE /api/<entity>/bulk/.
type BulkDeleteBody struct {
	IDs []string `json:"ids"`
}

// ParseBulkDelete decodes a bulk-delete body.
func ParseBulkDelete(w http.ResponseWriter, r *http.Request) (*BulkDeleteBody, error) {
	var body BulkDeleteBody
	if err := decode(w, r, &body); err != nil {
		return nil, err
	}
	if len(body.IDs) == 0 {
		return nil, fmt.Errorf("ids must not be empty")
	}
	return &body, nil
}

// decode reads one JSON document from the body, bounded by MaxBodySize,
// and rejects trailing garbage after it.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil {
		return ErrEmptyBody
	}

	body := http.MaxBytesReader(w, r.Body, MaxBodySize)
	dec := json.NewDecoder(body)

	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", MaxBodySize)
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if dec.More() {
		return fmt.Errorf("unexpected data after JSON document")
	}
	return nil
}
