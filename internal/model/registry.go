package model

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry holds every entity descriptor known to the process.
//
// All registration happens during startup; afterwards the registry is
// read-only and safe for concurrent use by request handlers.
type Registry struct {
	mu         sync.RWMutex
	entities   map[string]*Entity
	byExternal map[string]*Entity
	order      []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entities:   make(map[string]*Entity),
		byExternal: make(map[string]*Entity),
	}
}

// Register normalizes and adds an entity descriptor. Registration fails
// when the entity name or its external name is already taken; boot treats
// that as fatal.
func (r *Registry) Register(e *Entity) error {
	if e == nil {
		return fmt.Errorf("cannot register nil entity")
	}
	if err := e.normalize(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entities[e.Name]; exists {
		return fmt.Errorf("entity %s is already registered", e.Name)
	}
	if prev, exists := r.byExternal[e.ExternalName]; exists {
		return fmt.Errorf("external name %s of entity %s is already registered by %s",
			e.ExternalName, e.Name, prev.Name)
	}

	r.entities[e.Name] = e
	r.byExternal[e.ExternalName] = e
	r.order = append(r.order, e.Name)
	return nil
}

// Get returns the entity with the given name.
func (r *Registry) Get(name string) (*Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entities[name]
	if !exists {
		return nil, fmt.Errorf("entity %s is not registered", name)
	}
	return e, nil
}

// Lookup returns the entity registered under the given external name.
func (r *Registry) Lookup(externalName string) (*Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.byExternal[externalName]
	return e, exists
}

// All returns every registered entity sorted by name. The slice is a
// copy; the descriptors themselves are shared and immutable.
func (r *Registry) All() []*Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Entity, 0, len(r.entities))
	for _, e := range r.entities {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// InOrder returns every registered entity in registration order. The
// catalog registers referenced entities first, so this order is safe for
// dependency-sensitive output such as DDL.
func (r *Registry) InOrder() []*Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Entity, 0, len(r.order))
	for _, name := range r.order {
		all = append(all, r.entities[name])
	}
	return all
}

// List returns the registered entity names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered entities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// Exists reports whether an entity with the given name is registered.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.entities[name]
	return exists
}

// ValidateAll cross-checks every relation descriptor once the full set of
// entities is registered: targets must exist and foreign key columns must
// be declared on the side that carries them. All problems are reported,
// not just the first.
func (r *Registry) ValidateAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var problems []string
	for _, name := range r.order {
		e := r.entities[name]
		for _, rel := range e.Relations {
			target, exists := r.entities[rel.Target]
			if !exists {
				problems = append(problems, fmt.Sprintf(
					"%s.%s references unregistered entity %s", e.Name, rel.Name, rel.Target))
				continue
			}
			switch rel.Kind {
			case BelongsTo:
				if !e.HasField(rel.ForeignKey) {
					problems = append(problems, fmt.Sprintf(
						"%s.%s: foreign key field %s is not declared on %s",
						e.Name, rel.Name, rel.ForeignKey, e.Name))
				}
			case HasMany, HasOne:
				if !target.HasField(rel.ForeignKey) {
					problems = append(problems, fmt.Sprintf(
						"%s.%s: foreign key field %s is not declared on %s",
						e.Name, rel.Name, rel.ForeignKey, target.Name))
				}
			default:
				problems = append(problems, fmt.Sprintf(
					"%s.%s: unknown relation kind %q", e.Name, rel.Name, rel.Kind))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("registry validation failed:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}
