package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiflow/logiflow/internal/catalog"
	"github.com/logiflow/logiflow/internal/model"
	"github.com/logiflow/logiflow/internal/store"
	"github.com/logiflow/logiflow/internal/store/query"
	"github.com/logiflow/logiflow/internal/validation"
	"github.com/logiflow/logiflow/internal/web/cache"
	"github.com/logiflow/logiflow/internal/web/routes"
)

// spyStore records every call so tests can assert the store was (or was
// not) touched.
type spyStore struct {
	calls int

	findRecord map[string]interface{}
	findErr    error
	records    []map[string]interface{}
	count      int
	created    map[string]interface{}
	createErr  error
	updated    map[string]interface{}
	updateErr  error
	deleteErr  error
	manyMade   []map[string]interface{}
	manyErr    error
	deletedN   int
}

func (s *spyStore) Find(ctx context.Context, id string) (map[string]interface{}, error) {
	s.calls++
	return s.findRecord, s.findErr
}

func (s *spyStore) FindWhere(ctx context.Context, q *query.Builder) ([]map[string]interface{}, error) {
	s.calls++
	return s.records, nil
}

func (s *spyStore) CountWhere(ctx context.Context, q *query.Builder) (int, error) {
	s.calls++
	return s.count, nil
}

func (s *spyStore) Exists(ctx context.Context, id string) (bool, error) {
	s.calls++
	return s.findRecord != nil, nil
}

func (s *spyStore) Create(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	s.calls++
	if s.createErr != nil {
		return nil, s.createErr
	}
	if s.created != nil {
		return s.created, nil
	}
	return data, nil
}

func (s *spyStore) Update(ctx context.Context, id string, data map[string]interface{}) (map[string]interface{}, error) {
	s.calls++
	return s.updated, s.updateErr
}

func (s *spyStore) Delete(ctx context.Context, id string) error {
	s.calls++
	return s.deleteErr
}

func (s *spyStore) CreateMany(ctx context.Context, items []map[string]interface{}) ([]map[string]interface{}, error) {
	s.calls++
	if s.manyErr != nil {
		return nil, s.manyErr
	}
	if s.manyMade != nil {
		return s.manyMade, nil
	}
	return items, nil
}

func (s *spyStore) DeleteMany(ctx context.Context, ids []string) (int, error) {
	s.calls++
	return s.deletedN, nil
}

// staticResolver allows or denies everything.
type staticResolver bool

func (r staticResolver) CanPerform(role, entity, operation string) bool { return bool(r) }

func testRegistry(t *testing.T) *model.Registry {
	t.Helper()
	reg := model.NewRegistry()
	require.NoError(t, catalog.Register(reg))
	return reg
}

// buildTable mounts the full generated surface with the same spy store
// behind every entity.
func buildTable(t *testing.T, reg *model.Registry, spy store.Store, resolver CapabilityResolver, rc *cache.ResponseCache) *routes.Table {
	t.Helper()

	stores := make(map[string]store.Store, reg.Count())
	for _, e := range reg.All() {
		stores[e.Name] = spy
	}

	gen, err := NewGenerator(Config{
		Registry: reg,
		Stores:   stores,
		Resolver: resolver,
		Cache:    rc,
	})
	require.NoError(t, err)

	table := routes.New()
	require.NoError(t, gen.Mount(table))
	return table
}

func doJSON(t *testing.T, table *routes.Table, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	table.ServeHTTP(rec, r)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return body
}

func TestMount_OneResourcePathSetPerEntity(t *testing.T) {
	reg := testRegistry(t)
	table := buildTable(t, reg, &spyStore{}, staticResolver(true), nil)

	// Eight routes per entity: list, create, bulk x2, get, put, patch, delete.
	assert.Equal(t, reg.Count()*8, table.Count())

	// Mounting again collides on every route; the table refuses.
	gen, err := NewGenerator(Config{
		Registry: reg,
		Stores:   map[string]store.Store{},
		Resolver: staticResolver(true),
	})
	require.NoError(t, err)
	assert.Error(t, gen.Mount(table))
}

func TestList_PaginationEnvelope(t *testing.T) {
	spy := &spyStore{
		count: 25,
		records: []map[string]interface{}{
			{"id": "1", "code": "GNCKY"},
			{"id": "2", "code": "SNDKR"},
		},
	}
	table := buildTable(t, testRegistry(t), spy, staticResolver(true), nil)

	rec := doJSON(t, table, "GET", "/api/ports/?page=2&page_size=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(25), body["count"])
	assert.Equal(t, float64(3), body["total_pages"])
	assert.Equal(t, float64(2), body["current_page"])
	assert.Contains(t, body["next"], "page=3")
	assert.Contains(t, body["previous"], "page=1")
	assert.Len(t, body["results"], 2)
}

func TestList_FirstPageHasNoPrevious(t *testing.T) {
	spy := &spyStore{count: 5}
	table := buildTable(t, testRegistry(t), spy, staticResolver(true), nil)

	rec := doJSON(t, table, "GET", "/api/ports/", "")
	body := decode(t, rec)
	assert.Nil(t, body["next"])
	assert.Nil(t, body["previous"])
	assert.Equal(t, float64(1), body["current_page"])
}

func TestList_EmptyResultIsAnArray(t *testing.T) {
	table := buildTable(t, testRegistry(t), &spyStore{}, staticResolver(true), nil)

	rec := doJSON(t, table, "GET", "/api/ports/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	results, ok := body["results"].([]interface{})
	require.True(t, ok, "results must be an array, not null")
	assert.Empty(t, results)
}

func TestList_UnknownFilterFieldIs422(t *testing.T) {
	spy := &spyStore{}
	table := buildTable(t, testRegistry(t), spy, staticResolver(true), nil)

	rec := doJSON(t, table, "GET", "/api/mrns/?filter[bogus]=1&order_by=nope", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decode(t, rec)
	fields := body["fields"].(map[string]interface{})
	assert.Contains(t, fields, "filter[bogus]")
	assert.Contains(t, fields, "order_by")
	assert.Zero(t, spy.calls, "a parse failure must not reach the store")
}

func TestCapabilityDenial_NeverTouchesStore(t *testing.T) {
	spy := &spyStore{}
	table := buildTable(t, testRegistry(t), spy, staticResolver(false), nil)

	targets := []struct{ method, url, body string }{
		{"GET", "/api/mrns/", ""},
		{"GET", "/api/mrns/abc/", ""},
		{"POST", "/api/mrns/", `{"numero":"x"}`},
		{"PUT", "/api/mrns/abc/", `{"numero":"x"}`},
		{"DELETE", "/api/mrns/abc/", ""},
		{"POST", "/api/mrns/bulk/", `{"items":[{"numero":"x"}]}`},
		{"DELETE", "/api/mrns/bulk/", `{"ids":["abc"]}`},
	}
	for _, target := range targets {
		rec := doJSON(t, table, target.method, target.url, target.body)
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", target.method, target.url)
	}
	assert.Zero(t, spy.calls, "denied requests must never reach the store")
}

// TestCreate_ValidationNamesEveryMissingField drives the real store and
// validator over sqlmock: Article requires numero and mrn_id, and a
// create missing both must report both.
func TestCreate_ValidationNamesEveryMissingField(t *testing.T) {
	reg := testRegistry(t)
	article, err := reg.Get("Article")
	require.NoError(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Validation fails inside the transaction, before any INSERT.
	mock.ExpectBegin()
	mock.ExpectRollback()

	ops := store.NewOperations(article, db, validation.NewEngine(), nil)
	stores := map[string]store.Store{}
	for _, e := range reg.All() {
		stores[e.Name] = ops
	}

	gen, err := NewGenerator(Config{Registry: reg, Stores: stores, Resolver: staticResolver(true)})
	require.NoError(t, err)
	table := routes.New()
	require.NoError(t, gen.Mount(table))

	rec := doJSON(t, table, "POST", "/api/articles/", `{"designation":"cargo"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "validation_failed", body["error"])
	fields := body["fields"].(map[string]interface{})
	assert.Contains(t, fields, "numero")
	assert.Contains(t, fields, "mrn_id")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_RoundTripsSubmittedValues(t *testing.T) {
	created := map[string]interface{}{
		"id": "7e9d", "code": "GNCKY", "nom": "Conakry", "pays": "Guinee",
	}
	spy := &spyStore{created: created}
	table := buildTable(t, testRegistry(t), spy, staticResolver(true), nil)

	rec := doJSON(t, table, "POST", "/api/ports/", `{"code":"GNCKY","nom":"Conakry","pays":"Guinee"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Port created successfully", body["message"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "GNCKY", data["code"])
	assert.Equal(t, "Conakry", data["nom"])
	assert.Equal(t, "7e9d", data["id"])
}

func TestDelete_MissingIDIsNotFoundAndIdempotent(t *testing.T) {
	spy := &spyStore{deleteErr: store.ErrNotFound}
	table := buildTable(t, testRegistry(t), spy, staticResolver(true), nil)

	for i := 0; i < 2; i++ {
		rec := doJSON(t, table, "DELETE", "/api/navires/dead-beef/", "")
		require.Equal(t, http.StatusNotFound, rec.Code)

		body := decode(t, rec)
		assert.Equal(t, "error", body["status"])
		assert.Equal(t, "Navire with id dead-beef not found", body["message"])
	}
}

func TestDelete_Success(t *testing.T) {
	spy := &spyStore{}
	table := buildTable(t, testRegistry(t), spy, staticResolver(true), nil)

	rec := doJSON(t, table, "DELETE", "/api/navires/42aa/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Navire with id 42aa deleted successfully", body["message"])
}

func TestUpdate_NotFound(t *testing.T) {
	spy := &spyStore{updateErr: store.ErrNotFound}
	table := buildTable(t, testRegistry(t), spy, staticResolver(true), nil)

	rec := doJSON(t, table, "PATCH", "/api/clients/nope/", `{"nom":"changed"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGet_UnknownExpandIs422(t *testing.T) {
	spy := &spyStore{findRecord: map[string]interface{}{"id": "1"}}
	table := buildTable(t, testRegistry(t), spy, staticResolver(true), nil)

	rec := doJSON(t, table, "GET", "/api/mrns/1/?expand=cargo", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, spy.calls)
}

func TestBulkCreate(t *testing.T) {
	spy := &spyStore{}
	table := buildTable(t, testRegistry(t), spy, staticResolver(true), nil)

	rec := doJSON(t, table, "POST", "/api/ports/bulk/",
		`{"items":[{"code":"GNCKY","nom":"Conakry"},{"code":"SNDKR","nom":"Dakar"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Successfully created 2 items.", body["message"])
	assert.Len(t, body["data"], 2)
}

func TestBulkDelete(t *testing.T) {
	spy := &spyStore{deletedN: 2}
	table := buildTable(t, testRegistry(t), spy, staticResolver(true), nil)

	rec := doJSON(t, table, "DELETE", "/api/ports/bulk/", `{"ids":["a","b","c"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, float64(2), body["deleted"])
}

func TestList_CachedUntilWriteInvalidates(t *testing.T) {
	spy := &spyStore{count: 1, records: []map[string]interface{}{{"id": "1"}}}
	rc := cache.NewResponseCache(cache.NewMemoryCache(cache.DefaultConfig()), time.Minute, nil)
	table := buildTable(t, testRegistry(t), spy, staticResolver(true), rc)

	// First list hits the store (count + find = 2 calls), second is cached.
	doJSON(t, table, "GET", "/api/ports/", "")
	callsAfterFirst := spy.calls
	doJSON(t, table, "GET", "/api/ports/", "")
	assert.Equal(t, callsAfterFirst, spy.calls, "second list should be served from cache")

	// A write invalidates the entity's cached responses.
	doJSON(t, table, "POST", "/api/ports/", `{"code":"X","nom":"Y"}`)
	doJSON(t, table, "GET", "/api/ports/", "")
	assert.Greater(t, spy.calls, callsAfterFirst+1, "list after write must hit the store again")
}

func TestList_AllBypassesPagination(t *testing.T) {
	records := make([]map[string]interface{}, 0, 30)
	for i := 0; i < 30; i++ {
		records = append(records, map[string]interface{}{"id": fmt.Sprint(i)})
	}
	spy := &spyStore{count: 30, records: records}
	table := buildTable(t, testRegistry(t), spy, staticResolver(true), nil)

	rec := doJSON(t, table, "GET", "/api/ports/?all=true", "")
	body := decode(t, rec)
	assert.Equal(t, float64(1), body["total_pages"])
	assert.Len(t, body["results"], 30)
	assert.Nil(t, body["next"])
}
