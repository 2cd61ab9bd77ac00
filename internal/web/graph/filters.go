package graph

import (
	"fmt"
	"strings"

	"github.com/graphql-go/graphql"

	"github.com/logiflow/logiflow/internal/apierr"
	"github.com/logiflow/logiflow/internal/model"
	storequery "github.com/logiflow/logiflow/internal/store/query"
	webquery "github.com/logiflow/logiflow/internal/web/query"
)

// filterOps lists the operator suffixes a field type admits. The
// vocabulary is the same one the REST filter parameters use; both
// compile through webquery.FilterCondition.
func filterOps(f *model.Field) []string {
	switch {
	case f.Type.IsText():
		return []string{"", "contains", "icontains", "startswith", "endswith", "in"}
	case f.Type.IsNumeric() || f.Type.IsTemporal():
		return []string{"", "gt", "gte", "lt", "lte", "in", "isnull"}
	case f.Type == model.TypeBool:
		return []string{"", "isnull"}
	case f.Type == model.TypeUUID, f.Type == model.TypeReference:
		return []string{"", "in", "isnull"}
	default:
		// json fields are not filterable.
		return nil
	}
}

// filterInputType picks the input type for one operator field.
func filterInputType(f *model.Field, op string) graphql.Input {
	switch op {
	case "in":
		return graphql.NewList(inputScalarType(f))
	case "isnull":
		return graphql.Boolean
	default:
		return inputScalarType(f)
	}
}

// filter returns the entity's filter input type. Besides the per-field
// operator fields it carries the recursive and/or/not combinators, so a
// thunk breaks the self-reference.
func (b *typeBuilder) filter(entity *model.Entity) *graphql.InputObject {
	if in, ok := b.filters[entity.Name]; ok {
		return in
	}

	var self *graphql.InputObject
	self = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: entity.Name + "Filter",
		Fields: (graphql.InputObjectConfigFieldMapThunk)(func() graphql.InputObjectConfigFieldMap {
			fields := graphql.InputObjectConfigFieldMap{}

			for _, f := range entity.Fields {
				for _, op := range filterOps(f) {
					name := f.Name
					if op != "" {
						name = f.Name + "_" + op
					}
					fields[name] = &graphql.InputObjectFieldConfig{Type: filterInputType(f, op)}
				}
			}

			fields["and"] = &graphql.InputObjectFieldConfig{Type: graphql.NewList(self)}
			fields["or"] = &graphql.InputObjectFieldConfig{Type: graphql.NewList(self)}
			fields["not"] = &graphql.InputObjectFieldConfig{Type: self}
			return fields
		}),
	})
	b.filters[entity.Name] = self
	return self
}

// compileFilter turns a filter input value into a predicate group. All
// conditions given at one level are ANDed; "or" groups its children
// with OR and "not" negates its child. Problems are aggregated into one
// validation error.
func compileFilter(entity *model.Entity, input map[string]interface{}) (*storequery.PredicateGroup, error) {
	verr := apierr.NewValidation()
	group := compileFilterLevel(entity, input, verr, "filter")
	if verr.HasErrors() {
		return nil, verr
	}
	return group, nil
}

func compileFilterLevel(
	entity *model.Entity,
	input map[string]interface{},
	verr *apierr.ValidationError,
	path string,
) *storequery.PredicateGroup {
	group := storequery.NewPredicateGroup(false)

	for key, value := range input {
		if value == nil {
			continue
		}
		switch key {
		case "and":
			for _, item := range toList(value) {
				if sub, ok := item.(map[string]interface{}); ok {
					group.AddGroup(compileFilterLevel(entity, sub, verr, path+".and"))
				}
			}
		case "or":
			or := storequery.NewPredicateGroup(true)
			for _, item := range toList(value) {
				if sub, ok := item.(map[string]interface{}); ok {
					or.AddGroup(compileFilterLevel(entity, sub, verr, path+".or"))
				}
			}
			group.AddGroup(or)
		case "not":
			if sub, ok := value.(map[string]interface{}); ok {
				negated := compileFilterLevel(entity, sub, verr, path+".not")
				negated.Not = true
				group.AddGroup(negated)
			}
		default:
			compileFilterField(entity, key, value, group, verr, path)
		}
	}
	return group
}

// compileFilterField handles one operator-suffixed field condition.
func compileFilterField(
	entity *model.Entity,
	key string,
	value interface{},
	group *storequery.PredicateGroup,
	verr *apierr.ValidationError,
	path string,
) {
	name, op := splitFilterName(entity, key)
	field := entity.Field(name)
	if field == nil {
		verr.Add(path, key+" is not a filterable field")
		return
	}

	// The in-list keeps its typed values; everything else flows through
	// the shared string-based operator compiler.
	if op == "in" {
		group.Add(field.Name, storequery.OpIn, toList(value))
		return
	}

	cond, ok := webquery.FilterCondition(field, orExact(op), rawValue(value))
	if !ok {
		verr.Add(path, "operator "+op+" is not supported for "+string(field.Type)+" fields")
		return
	}
	if cond == nil {
		verr.Add(path, "invalid value for "+key)
		return
	}
	group.AddGroup(cond)
}

// splitFilterName separates "numero_gte" into ("numero", "gte"). Field
// names may themselves contain underscores, so the field list decides
// where the operator suffix starts.
func splitFilterName(entity *model.Entity, key string) (string, string) {
	if entity.HasField(key) {
		return key, ""
	}
	if i := strings.LastIndex(key, "_"); i > 0 {
		name, op := key[:i], key[i+1:]
		if entity.HasField(name) {
			return name, op
		}
	}
	return key, ""
}

func orExact(op string) string {
	if op == "" {
		return "exact"
	}
	return op
}

// rawValue renders a typed filter value for the shared string-based
// operator compiler.
func rawValue(v interface{}) string {
	switch value := v.(type) {
	case string:
		return value
	default:
		return fmt.Sprint(value)
	}
}

func toList(v interface{}) []interface{} {
	if list, ok := v.([]interface{}); ok {
		return list
	}
	return []interface{}{v}
}
