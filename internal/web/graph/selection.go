package graph

import (
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/logiflow/logiflow/internal/model"
	"github.com/logiflow/logiflow/internal/store/relations"
)

// includePaths derives the relation include paths a query's selection
// set needs, so the resolver can eager-load them in batched queries
// before field resolution starts. Paths are maximal ("mrn.client", not
// "mrn" plus "mrn.client") and never nest past the loader's depth cap.
func (s *Surface) includePaths(p graphql.ResolveParams, entity *model.Entity) []string {
	var paths []string
	for _, fieldAST := range p.Info.FieldASTs {
		paths = append(paths, s.walkSelections(p, entity, fieldAST.SelectionSet, "", 0)...)
	}
	return dedupe(paths)
}

// listIncludePaths is includePaths scoped to the "results" field of a
// list query's selection set.
func (s *Surface) listIncludePaths(p graphql.ResolveParams, entity *model.Entity) []string {
	var paths []string
	for _, fieldAST := range p.Info.FieldASTs {
		forEachField(p, fieldAST.SelectionSet, func(f *ast.Field) {
			if f.Name.Value == "results" {
				paths = append(paths, s.walkSelections(p, entity, f.SelectionSet, "", 0)...)
			}
		})
	}
	return dedupe(paths)
}

// walkSelections collects dotted relation paths under one selection set.
func (s *Surface) walkSelections(
	p graphql.ResolveParams,
	entity *model.Entity,
	set *ast.SelectionSet,
	prefix string,
	depth int,
) []string {
	if set == nil || depth >= relations.MaxDepth {
		return nil
	}

	var paths []string
	forEachField(p, set, func(f *ast.Field) {
		rel := entity.Relation(f.Name.Value)
		if rel == nil {
			return
		}

		path := f.Name.Value
		if prefix != "" {
			path = prefix + "." + path
		}

		target, err := s.registry.Get(rel.Target)
		if err != nil {
			paths = append(paths, path)
			return
		}

		nested := s.walkSelections(p, target, f.SelectionSet, path, depth+1)
		if len(nested) == 0 {
			paths = append(paths, path)
			return
		}
		paths = append(paths, nested...)
	})
	return paths
}

// forEachField visits the field selections of a set, flattening
// fragment spreads and inline fragments.
func forEachField(p graphql.ResolveParams, set *ast.SelectionSet, visit func(*ast.Field)) {
	if set == nil {
		return
	}
	for _, sel := range set.Selections {
		switch node := sel.(type) {
		case *ast.Field:
			visit(node)
		case *ast.InlineFragment:
			forEachField(p, node.SelectionSet, visit)
		case *ast.FragmentSpread:
			if def, ok := p.Info.Fragments[node.Name.Value].(*ast.FragmentDefinition); ok {
				forEachField(p, def.SelectionSet, visit)
			}
		}
	}
}

func dedupe(paths []string) []string {
	if len(paths) < 2 {
		return paths
	}
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, path := range paths {
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}
	return out
}
