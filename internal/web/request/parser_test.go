package request

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/mrns/", strings.NewReader(`{"numero":"24GNAAA1","poids":12.5}`))
	w := httptest.NewRecorder()

	record, err := ParseRecord(w, r)
	require.NoError(t, err)
	assert.Equal(t, "24GNAAA1", record["numero"])
	assert.Equal(t, 12.5, record["poids"])
}

func TestParseRecord_EmptyBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/mrns/", strings.NewReader(""))
	w := httptest.NewRecorder()

	_, err := ParseRecord(w, r)
	assert.ErrorIs(t, err, ErrEmptyBody)
}

func TestParseRecord_NullBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/mrns/", strings.NewReader("null"))
	w := httptest.NewRecorder()

	_, err := ParseRecord(w, r)
	assert.ErrorIs(t, err, ErrEmptyBody)
}

func TestParseRecord_InvalidJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/mrns/", strings.NewReader(`{"numero":`))
	w := httptest.NewRecorder()

	_, err := ParseRecord(w, r)
	assert.Error(t, err)
}

func TestParseRecord_TrailingGarbage(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/mrns/", strings.NewReader(`{"a":1} {"b":2}`))
	w := httptest.NewRecorder()

	_, err := ParseRecord(w, r)
	assert.Error(t, err)
}

func TestParseBulkCreate(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/ports/bulk/", strings.NewReader(`{"items":[{"code":"GNCKY"},{"code":"SNDKR"}]}`))
	w := httptest.NewRecorder()

	body, err := ParseBulkCreate(w, r)
	require.NoError(t, err)
	assert.Len(t, body.Items, 2)
}

func TestParseBulkCreate_EmptyItems(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/ports/bulk/", strings.NewReader(`{"items":[]}`))
	w := httptest.NewRecorder()

	_, err := ParseBulkCreate(w, r)
	assert.Error(t, err)
}

func TestParseBulkDelete(t *testing.T) {
	r := httptest.NewRequest("DELETE", "/api/ports/bulk/", strings.NewReader(`{"ids":["a","b"]}`))
	w := httptest.NewRecorder()

	body, err := ParseBulkDelete(w, r)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, body.IDs)
}
