// Package rest synthesizes the five CRUD operations (plus the bulk
// endpoints) for every registered entity. No per-entity handler code
// exists anywhere; everything is derived from the descriptors at
// startup and mounted into the route table.
package rest

import (
	"context"
	"fmt"

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

// Config wires the generator's collaborators.
type Config struct {
	Registry *model.Registry
	// Stores maps entity name to its persistence operations.
	Stores   map[string]store.Store
	Loader   RelationLoader
	Resolver CapabilityResolver
	// Cache is optional; nil disables response caching.
	Cache  *cache.ResponseCache
	Logger *zap.Logger
	// Prefix is the path prefix for all generated routes, default /api.
	Prefix string
}

// Generator mounts generated CRUD routes for every registered entity.
type Generator struct {
	registry *model.Registry
	stores   map[string]store.Store
	loader   RelationLoader
	resolver CapabilityResolver
	cache    *cache.ResponseCache
	logger   *zap.Logger
	prefix   string
}

// NewGenerator creates a REST surface generator.
func NewGenerator(config Config) (*Generator, error) {
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
	prefix := config.Prefix
	if prefix == "" {
		prefix = "/api"
	}

	return &Generator{
		registry: config.Registry,
		stores:   config.Stores,
		loader:   config.Loader,
		resolver: config.Resolver,
		cache:    config.Cache,
		logger:   logger,
		prefix:   prefix,
	}, nil
}

// Mount registers every entity's routes into the table. Each entity
// gets exactly one resource path set; the table rejects collisions.
func (g *Generator) Mount(table *routes.Table) error {
	for _, entity := range g.registry.All() {
		if err := g.mountEntity(table, entity); err != nil {
			return fmt.Errorf("failed to mount %s: %w", entity.Name, err)
		}
	}
	return nil
}

func (g *Generator) mountEntity(table *routes.Table, entity *model.Entity) error {
	st, ok := g.stores[entity.Name]
	if !ok {
		return fmt.Errorf("no store registered for %s", entity.Name)
	}

	h := &entityHandlers{
		entity:   entity,
		store:    st,
		registry: g.registry,
		loader:   g.loader,
		resolver: g.resolver,
		cache:    g.cache,
		logger:   g.logger.With(zap.String("entity", entity.ExternalName)),
	}

	ext := entity.ExternalName
	base := g.prefix + "/" + ext + "/"
	byID := base + "{id}/"
	bulk := base + "bulk/"

	if err := table.HandleEntity("GET", base, h.list, ext+".list", ext, string(model.OpList)); err != nil {
		return err
	}
	if err := table.HandleEntity("POST", base, h.create, ext+".create", ext, string(model.OpCreate)); err != nil {
		return err
	}
	if err := table.HandleEntity("POST", bulk, h.bulkCreate, ext+".bulk_create", ext, string(model.OpCreate)); err != nil {
		return err
	}
	if err := table.HandleEntity("DELETE", bulk, h.bulkDelete, ext+".bulk_delete", ext, string(model.OpDelete)); err != nil {
		return err
	}
	if err := table.HandleEntity("GET", byID, h.get, ext+".get", ext, string(model.OpGet)); err != nil {
		return err
	}
	if err := table.HandleEntity("PUT", byID, h.update, ext+".update", ext, string(model.OpUpdate)); err != nil {
		return err
	}
	if err := table.HandleEntity("PATCH", byID, h.update, ext+".patch", ext, string(model.OpUpdate)); err != nil {
		return err
	}
	if err := table.HandleEntity("DELETE", byID, h.delete, ext+".delete", ext, string(model.OpDelete)); err != nil {
		return err
	}
	return nil
}
