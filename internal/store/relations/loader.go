// Package relations eager-loads related records in batched queries so
// list responses and graph traversals never degrade into one query per
// row.
package relations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/logiflow/logiflow/internal/model"
)

// MaxDepth bounds nested expansion paths like "mrn.client.transitaire".
const MaxDepth = 3

var (
	// ErrUnknownRelation is returned for an include naming a relation the
	// entity does not declare.
	ErrUnknownRelation = errors.New("unknown relation")

	// ErrMaxDepthExceeded is returned when an include path nests deeper
	// than MaxDepth.
	ErrMaxDepthExceeded = errors.New("relation expansion exceeds maximum depth")
)

// Querier is the query surface the loader needs; *sql.DB and *sql.Tx
// both satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Loader resolves relation includes against the registry with one query
// per relation path.
type Loader struct {
	db       Querier
	registry *model.Registry
}

// NewLoader creates a relation loader backed by the given registry.
func NewLoader(db Querier, registry *model.Registry) *Loader {
	return &Loader{db: db, registry: registry}
}

// loadContext tracks recursion state so circular relation graphs cannot
// loop forever.
type loadContext struct {
	mu      sync.Mutex
	visited map[string]bool
	depth   int
}

func newLoadContext() *loadContext {
	return &loadContext{visited: make(map[string]bool)}
}

func (lc *loadContext) enter(entityName string) (func(), error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	lc.depth++
	if lc.depth > MaxDepth {
		lc.depth--
		return nil, ErrMaxDepthExceeded
	}
	if lc.visited[entityName] {
		lc.depth--
		return nil, nil
	}
	lc.visited[entityName] = true

	return func() {
		lc.mu.Lock()
		defer lc.mu.Unlock()
		delete(lc.visited, entityName)
		lc.depth--
	}, nil
}

// Load attaches the requested relations to the records in place.
// Includes take dotted form ("articles", "mrn.client"); each segment
// costs one query regardless of how many records were passed in.
func (l *Loader) Load(
	ctx context.Context,
	entity *model.Entity,
	records []map[string]interface{},
	includes []string,
) error {
	if len(records) == 0 || len(includes) == 0 {
		return nil
	}
	return l.load(ctx, entity, records, includes, newLoadContext())
}

func (l *Loader) load(
	ctx context.Context,
	entity *model.Entity,
	records []map[string]interface{},
	includes []string,
	lc *loadContext,
) error {
	if len(records) == 0 {
		return nil
	}

	leave, err := lc.enter(entity.Name)
	if err != nil {
		return err
	}
	if leave == nil {
		// Already loading this entity in the current path; a cycle like
		// Mrn -> Article -> Mrn stops here.
		return nil
	}
	defer leave()

	for _, include := range includes {
		name, nested := splitInclude(include)

		rel := entity.Relation(name)
		if rel == nil {
			return fmt.Errorf("%w: %s has no relation %s", ErrUnknownRelation, entity.Name, name)
		}

		if err := l.loadRelation(ctx, entity, records, rel); err != nil {
			return fmt.Errorf("failed to load relation %s: %w", name, err)
		}

		if len(nested) > 0 {
			target, err := l.registry.Get(rel.Target)
			if err != nil {
				return err
			}
			children := collectNested(records, rel, target)
			if len(children) > 0 {
				if err := l.load(ctx, target, children, nested, lc); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func (l *Loader) loadRelation(
	ctx context.Context,
	entity *model.Entity,
	records []map[string]interface{},
	rel *model.Relation,
) error {
	switch rel.Kind {
	case model.BelongsTo:
		return l.loadBelongsTo(ctx, records, rel)
	case model.HasMany:
		return l.loadHasMany(ctx, entity, records, rel)
	case model.HasOne:
		return l.loadHasOne(ctx, entity, records, rel)
	default:
		return fmt.Errorf("unsupported relation kind %q", rel.Kind)
	}
}

// splitInclude splits "mrn.client.transitaire" into ("mrn",
// ["client.transitaire"]).
func splitInclude(include string) (string, []string) {
	if i := strings.IndexByte(include, '.'); i >= 0 {
		return include[:i], []string{include[i+1:]}
	}
	return include, nil
}

// collectNested gathers the already-attached child records so nested
// includes recurse over them, deduplicated by primary key.
func collectNested(
	records []map[string]interface{},
	rel *model.Relation,
	target *model.Entity,
) []map[string]interface{} {
	pk := target.PrimaryKey().Name
	seen := make(map[string]bool)
	var nested []map[string]interface{}

	add := func(child map[string]interface{}) {
		id := idString(child[pk])
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		nested = append(nested, child)
	}

	for _, record := range records {
		attached, ok := record[rel.Name]
		if !ok || attached == nil {
			continue
		}
		switch rel.Kind {
		case model.BelongsTo, model.HasOne:
			if child, ok := attached.(map[string]interface{}); ok {
				add(child)
			}
		case model.HasMany:
			if children, ok := attached.([]map[string]interface{}); ok {
				for _, child := range children {
					add(child)
				}
			}
		}
	}

	return nested
}

func idString(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case []byte:
		return string(id)
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}
