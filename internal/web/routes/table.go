// Package routes holds the process-wide routing table. Generated REST
// routes, the graph endpoint, and manually defined routes all register
// here; a collision on pattern+method or on route name is an error that
// boot treats as fatal.
package routes

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/logiflow/logiflow/internal/web/middleware"
)

// Route describes one registered route.
type Route struct {
	Method  string
	Pattern string
	Name    string
	// Entity is the external name of the entity the route was generated
	// for; empty for manual routes.
	Entity string
	// Operation is the generated operation; empty for manual routes.
	Operation string
}

// Table merges every route into one chi mux with collision detection.
type Table struct {
	mux    chi.Router
	byKey  map[string]*Route
	byName map[string]*Route
	order  []*Route
}

// New creates an empty route table.
func New() *Table {
	return &Table{
		mux:    chi.NewRouter(),
		byKey:  make(map[string]*Route),
		byName: make(map[string]*Route),
	}
}

// Use installs middleware on the underlying mux. Must be called before
// the first Handle; chi enforces this.
func (t *Table) Use(middlewares ...middleware.Middleware) {
	for _, m := range middlewares {
		t.mux.Use((func(http.Handler) http.Handler)(m))
	}
}

// Handle registers a route. Duplicate pattern+method and duplicate
// names are rejected; startup aborts on either.
func (t *Table) Handle(method, pattern string, handler http.HandlerFunc, name string) error {
	return t.handle(&Route{Method: method, Pattern: pattern, Name: name}, handler)
}

// HandleEntity registers a generated entity route with its metadata.
func (t *Table) HandleEntity(method, pattern string, handler http.HandlerFunc, name, entity, operation string) error {
	return t.handle(&Route{
		Method:    method,
		Pattern:   pattern,
		Name:      name,
		Entity:    entity,
		Operation: operation,
	}, handler)
}

func (t *Table) handle(route *Route, handler http.HandlerFunc) error {
	if route.Method == "" || route.Pattern == "" {
		return fmt.Errorf("route needs a method and a pattern")
	}
	if route.Name == "" {
		return fmt.Errorf("route %s %s needs a name", route.Method, route.Pattern)
	}

	key := route.Method + " " + route.Pattern
	if existing, ok := t.byKey[key]; ok {
		return fmt.Errorf("route %s collides with already registered route %s", key, existing.Name)
	}
	if existing, ok := t.byName[route.Name]; ok {
		return fmt.Errorf("route name %s is already used by %s %s",
			route.Name, existing.Method, existing.Pattern)
	}

	t.mux.MethodFunc(route.Method, route.Pattern, handler)
	t.byKey[key] = route
	t.byName[route.Name] = route
	t.order = append(t.order, route)
	return nil
}

// Routes returns every registered route sorted by pattern then method,
// for the routes command and tests.
func (t *Table) Routes() []*Route {
	routes := make([]*Route, len(t.order))
	copy(routes, t.order)
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Pattern != routes[j].Pattern {
			return routes[i].Pattern < routes[j].Pattern
		}
		return routes[i].Method < routes[j].Method
	})
	return routes
}

// Count returns the number of registered routes.
func (t *Table) Count() int {
	return len(t.order)
}

// ServeHTTP dispatches to the underlying mux.
func (t *Table) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.mux.ServeHTTP(w, r)
}
