package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/logiflow/logiflow/internal/apierr"
	"github.com/logiflow/logiflow/internal/model"
	"github.com/logiflow/logiflow/internal/store"
	"github.com/logiflow/logiflow/internal/web/cache"
	webquery "github.com/logiflow/logiflow/internal/web/query"
	"github.com/logiflow/logiflow/internal/web/request"
	"github.com/logiflow/logiflow/internal/web/response"
	"github.com/logiflow/logiflow/internal/web/webcontext"
)

// entityHandlers serves all generated operations for one entity.
type entityHandlers struct {
	entity   *model.Entity
	store    store.Store
	registry *model.Registry
	loader   RelationLoader
	resolver CapabilityResolver
	cache    *cache.ResponseCache
	logger   *zap.Logger
}

// authorize runs the capability check. It must be the first thing every
// handler does: a denial returns before any store access.
func (h *entityHandlers) authorize(w http.ResponseWriter, r *http.Request, op model.Operation) bool {
	role := webcontext.Role(r.Context())
	if h.resolver.CanPerform(role, h.entity.ExternalName, string(op)) {
		return true
	}
	response.RenderForbidden(w)
	return false
}

// list serves GET /api/<entity>/.
func (h *entityHandlers) list(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, model.OpList) {
		return
	}

	ctx := r.Context()
	if body := h.cache.Get(ctx, h.entity.ExternalName, r.URL.RequestURI()); body != nil {
		response.RenderJSONBytes(w, http.StatusOK, body)
		return
	}

	params, err := webquery.ParseListParams(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	qb, err := webquery.Compile(h.registry, h.entity, params)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	total, err := h.store.CountWhere(ctx, qb)
	if err != nil {
		h.fail(w, r, "count failed", err)
		return
	}

	if !params.All {
		qb.Limit(params.PageSize).Offset((params.Page - 1) * params.PageSize)
	}

	records, err := h.store.FindWhere(ctx, qb)
	if err != nil {
		h.fail(w, r, "list failed", err)
		return
	}

	if err := h.expand(r, records, params.Expand); err != nil {
		h.fail(w, r, "relation load failed", err)
		return
	}

	envelope := buildListEnvelope(r.URL, params, total, records)
	body, err := json.Marshal(envelope)
	if err != nil {
		h.fail(w, r, "encoding failed", err)
		return
	}

	h.cache.Set(ctx, h.entity.ExternalName, r.URL.RequestURI(), body)
	response.RenderJSONBytes(w, http.StatusOK, body)
}

// get serves GET /api/<entity>/<id>/.
func (h *entityHandlers) get(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, model.OpGet) {
		return
	}

	ctx := r.Context()
	if body := h.cache.Get(ctx, h.entity.ExternalName, r.URL.RequestURI()); body != nil {
		response.RenderJSONBytes(w, http.StatusOK, body)
		return
	}

	params, err := webquery.ParseListParams(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	if len(params.Expand) > 0 {
		verr := apierr.NewValidation()
		webquery.ValidateExpand(h.registry, h.entity, params.Expand, verr)
		if verr.HasErrors() {
			response.RenderError(w, verr)
			return
		}
	}

	id := chi.URLParam(r, "id")
	record, err := h.store.Find(ctx, id)
	if err != nil {
		response.RenderError(w, h.convertStoreError(id, err))
		return
	}

	if err := h.expand(r, []map[string]interface{}{record}, params.Expand); err != nil {
		h.fail(w, r, "relation load failed", err)
		return
	}

	body, err := json.Marshal(record)
	if err != nil {
		h.fail(w, r, "encoding failed", err)
		return
	}

	h.cache.Set(ctx, h.entity.ExternalName, r.URL.RequestURI(), body)
	response.RenderJSONBytes(w, http.StatusOK, body)
}

// create serves POST /api/<entity>/.
func (h *entityHandlers) create(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, model.OpCreate) {
		return
	}

	data, err := request.ParseRecord(w, r)
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	created, err := h.store.Create(r.Context(), data)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	h.cache.Invalidate(r.Context(), h.entity.ExternalName)
	response.RenderData(w, http.StatusCreated,
		fmt.Sprintf("%s created successfully", h.entity.Name), created)
}

// update serves PUT and PATCH /api/<entity>/<id>/. Both verbs merge the
// submitted fields over the stored record; the merged record is fully
// revalidated, so a PUT missing a required field still fails.
func (h *entityHandlers) update(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, model.OpUpdate) {
		return
	}

	data, err := request.ParseRecord(w, r)
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	updated, err := h.store.Update(r.Context(), id, data)
	if err != nil {
		response.RenderError(w, h.convertStoreError(id, err))
		return
	}

	h.cache.Invalidate(r.Context(), h.entity.ExternalName)
	response.RenderData(w, http.StatusOK,
		fmt.Sprintf("%s updated successfully", h.entity.Name), updated)
}

// delete serves DELETE /api/<entity>/<id>/. Deleting a missing id is a
// 404, never a fault, and a second delete of the same id behaves the
// same way.
func (h *entityHandlers) delete(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, model.OpDelete) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		response.RenderError(w, h.convertStoreError(id, err))
		return
	}

	h.cache.Invalidate(r.Context(), h.entity.ExternalName)
	response.RenderMessage(w, http.StatusOK,
		fmt.Sprintf("%s with id %s deleted successfully", h.entity.Name, id))
}

// bulkCreate serves POST /api/<entity>/bulk/. All-or-nothing: one bad
// item aborts the whole batch.
func (h *entityHandlers) bulkCreate(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, model.OpCreate) {
		return
	}

	body, err := request.ParseBulkCreate(w, r)
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	created, err := h.store.CreateMany(r.Context(), body.Items)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	h.cache.Invalidate(r.Context(), h.entity.ExternalName)
	response.RenderData(w, http.StatusCreated,
		fmt.Sprintf("Successfully created %d items.", len(created)), created)
}

// bulkDelete serves DELETE /api/<entity>/bulk/. Missing ids are
// skipped; the count reflects what was actually deleted.
func (h *entityHandlers) bulkDelete(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, model.OpDelete) {
		return
	}

	body, err := request.ParseBulkDelete(w, r)
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	deleted, err := h.store.DeleteMany(r.Context(), body.IDs)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	h.cache.Invalidate(r.Context(), h.entity.ExternalName)
	response.RenderJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"deleted": deleted,
	})
}

// expand batch-loads the requested relations.
func (h *entityHandlers) expand(r *http.Request, records []map[string]interface{}, includes []string) error {
	if len(includes) == 0 || len(records) == 0 || h.loader == nil {
		return nil
	}
	return h.loader.Load(r.Context(), h.entity, records, includes)
}

// convertStoreError upgrades the store's not-found sentinel to the
// entity-aware taxonomy error so the envelope can name entity and id.
func (h *entityHandlers) convertStoreError(id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apierr.NewNotFound(h.entity.Name, id)
	}
	return err
}

// fail logs an unexpected error and renders the opaque 500 envelope.
func (h *entityHandlers) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg,
		zap.String("request_id", webcontext.RequestID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	response.RenderError(w, err)
}

// buildListEnvelope fills the pagination envelope, including next and
// previous page links derived from the request URL.
func buildListEnvelope(u *url.URL, params *webquery.ListParams, total int, records []map[string]interface{}) *response.ListEnvelope {
	if records == nil {
		records = []map[string]interface{}{}
	}
	envelope := &response.ListEnvelope{
		Status:  "success",
		Count:   total,
		Results: records,
	}

	if params.All {
		envelope.TotalPages = 1
		envelope.CurrentPage = 1
		return envelope
	}

	totalPages := int(math.Ceil(float64(total) / float64(params.PageSize)))
	envelope.TotalPages = totalPages
	envelope.CurrentPage = params.Page

	if params.Page < totalPages {
		envelope.Next = pageURL(u, params.Page+1)
	}
	if params.Page > 1 {
		envelope.Previous = pageURL(u, params.Page-1)
	}
	return envelope
}

// pageURL rewrites the request URL with a different page number.
func pageURL(u *url.URL, page int) *string {
	clone := *u
	q := clone.Query()
	q.Set("page", strconv.Itoa(page))
	clone.RawQuery = q.Encode()
	s := clone.RequestURI()
	return &s
}
