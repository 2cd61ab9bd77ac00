// Package response renders the JSON envelopes the generated surfaces
// return. Success envelopes carry a status marker and, for writes, a
// human-readable message naming the entity; list responses carry the
// pagination envelope.
package response

import (
	"encoding/json"
	"net/http"
)

// ListEnvelope is the paginated list response.
type ListEnvelope struct {
	Status      string                   `json:"status"`
	Count       int                      `json:"count"`
	TotalPages  int                      `json:"total_pages"`
	CurrentPage int                      `json:"current_page"`
	Next        *string                  `json:"next"`
	Previous    *string                  `json:"previous"`
	Results     []map[string]interface{} `json:"results"`
}

// DataEnvelope wraps a single record with a status and message.
type DataEnvelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MessageEnvelope carries a status and message with no data.
type MessageEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RenderJSON writes v as a JSON response with the given status code.
func RenderJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// RenderJSONBytes writes a pre-encoded JSON body. Used by the response
// cache, which stores encoded envelopes.
func RenderJSONBytes(w http.ResponseWriter, statusCode int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	w.Write(body)
}

// RenderData writes a success envelope around one record.
func RenderData(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	RenderJSON(w, statusCode, &DataEnvelope{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// RenderMessage writes a success envelope with no payload.
func RenderMessage(w http.ResponseWriter, statusCode int, message string) {
	RenderJSON(w, statusCode, &MessageEnvelope{
		Status:  "success",
		Message: message,
	})
}
