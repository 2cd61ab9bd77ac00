// Package graph synthesizes the GraphQL surface from the entity
// registry: one object type, filter input, and set of queries and
// mutations per entity, built at startup and served from a single
// endpoint. Relation fields resolve from rows preloaded by the batch
// loader, never from per-row queries.
package graph

import (
	"context"
	"fmt"
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"
	"go.uber.org/zap"

	"github.com/logiflow/logiflow/internal/model"
	"github.com/logiflow/logiflow/internal/store"
	"github.com/logiflow/logiflow/internal/web/cache"
	"github.com/logiflow/logiflow/internal/web/routes"
)

// CapabilityResolver decides whether a role may run an operation on an
// entity. Consulted before any store access.
type CapabilityResolver interface {
	CanPerform(role, entity, operation string) bool
}

// RelationLoader attaches related rows to records in batched queries.
type RelationLoader interface {
	Load(ctx context.Context, entity *model.Entity, records []map[string]interface{}, includes []string) error
}

// Config wires the surface's collaborators.
type Config struct {
	Registry *model.Registry
	// Stores maps entity name to its persistence operations.
	Stores   map[string]store.Store
	Loader   RelationLoader
	Resolver CapabilityResolver
	// Cache is optional; mutations invalidate the affected entity's
	// cached REST responses when set.
	Cache  *cache.ResponseCache
	Logger *zap.Logger
	// Endpoint is the mounted path, default /api/graphql/.
	Endpoint string
	// GraphiQL additionally serves the in-browser IDE on GET.
	GraphiQL bool
}

// Surface holds the synthesized schema and its collaborators.
type Surface struct {
	registry *model.Registry
	stores   map[string]store.Store
	loader   RelationLoader
	resolver CapabilityResolver
	cache    *cache.ResponseCache
	logger   *zap.Logger
	endpoint string
	graphiql bool
	schema   graphql.Schema
}

// New builds the schema from the registry. Type construction walks every
// entity once; a descriptor problem (which ValidateAll should have
// caught earlier) surfaces here as an error, not a panic.
func New(config Config) (*Surface, error) {
	if config.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if config.Resolver == nil {
		return nil, fmt.Errorf("capability resolver is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = "/api/graphql/"
	}

	s := &Surface{
		registry: config.Registry,
		stores:   config.Stores,
		loader:   config.Loader,
		resolver: config.Resolver,
		cache:    config.Cache,
		logger:   logger,
		endpoint: endpoint,
		graphiql: config.GraphiQL,
	}

	b := newTypeBuilder(config.Registry)

	queries, err := s.queryFields(b)
	if err != nil {
		return nil, err
	}
	mutations, err := s.mutationFields(b)
	if err != nil {
		return nil, err
	}

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:    graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: queries}),
		Mutation: graphql.NewObject(graphql.ObjectConfig{Name: "Mutation", Fields: mutations}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build schema: %w", err)
	}
	s.schema = schema
	return s, nil
}

// Schema exposes the synthesized schema for tests and introspection.
func (s *Surface) Schema() graphql.Schema { return s.schema }

// Handler returns the HTTP handler serving the endpoint.
func (s *Surface) Handler() http.Handler {
	return handler.New(&handler.Config{
		Schema:   &s.schema,
		Pretty:   true,
		GraphiQL: s.graphiql,
	})
}

// Mount registers the endpoint into the route table. The POST route is
// the API; GET serves GraphiQL when enabled.
func (s *Surface) Mount(table *routes.Table) error {
	h := s.Handler()
	serve := func(w http.ResponseWriter, r *http.Request) { h.ServeHTTP(w, r) }

	if err := table.Handle("POST", s.endpoint, serve, "graphql"); err != nil {
		return err
	}
	if s.graphiql {
		if err := table.Handle("GET", s.endpoint, serve, "graphql.ide"); err != nil {
			return err
		}
	}
	return nil
}

// entityStore resolves the store for an entity; a missing store is a
// wiring bug and surfaces as an internal error.
func (s *Surface) entityStore(entity *model.Entity) (store.Store, error) {
	st, ok := s.stores[entity.Name]
	if !ok {
		return nil, fmt.Errorf("no store registered for %s", entity.Name)
	}
	return st, nil
}
