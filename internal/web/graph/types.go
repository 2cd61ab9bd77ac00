package graph

import (
	"encoding/json"

	"github.com/graphql-go/graphql"

	"github.com/logiflow/logiflow/internal/model"
)

// jsonScalar passes json-typed field values through unchanged. Stored
// values arrive as raw JSON text; clients receive it as a string.
var jsonScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "JSONString",
	Description: "Arbitrary JSON, serialized as a string.",
	Serialize: func(value interface{}) interface{} {
		switch v := value.(type) {
		case string:
			return v
		case []byte:
			return string(v)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return nil
			}
			return string(b)
		}
	},
	ParseValue: func(value interface{}) interface{} { return value },
})

// typeBuilder memoizes the per-entity GraphQL types so relation fields
// and recursive filter inputs can reference each other through thunks.
type typeBuilder struct {
	registry    *model.Registry
	objects     map[string]*graphql.Object
	filters     map[string]*graphql.InputObject
	inputs      map[string]*graphql.InputObject
	listResults map[string]*graphql.Object
	pageInfo    *graphql.Object
}

func newTypeBuilder(registry *model.Registry) *typeBuilder {
	return &typeBuilder{
		registry:    registry,
		objects:     make(map[string]*graphql.Object),
		filters:     make(map[string]*graphql.InputObject),
		inputs:      make(map[string]*graphql.InputObject),
		listResults: make(map[string]*graphql.Object),
	}
}

// scalarType maps a field descriptor to its GraphQL output type.
// Decimal stays a string: numeric columns scan as text and coercing
// them to Float would lose precision.
func scalarType(f *model.Field) graphql.Output {
	switch f.Type {
	case model.TypeInt:
		return graphql.Int
	case model.TypeFloat:
		return graphql.Float
	case model.TypeBool:
		return graphql.Boolean
	case model.TypeDate, model.TypeTimestamp:
		return graphql.DateTime
	case model.TypeJSON:
		return jsonScalar
	case model.TypeUUID, model.TypeReference:
		if f.PrimaryKey {
			return graphql.ID
		}
		return graphql.String
	default:
		return graphql.String
	}
}

// inputScalarType maps a field descriptor to its GraphQL input type.
// Dates and timestamps accept strings so clients can submit the same
// representations the REST surface takes.
func inputScalarType(f *model.Field) graphql.Input {
	switch f.Type {
	case model.TypeInt:
		return graphql.Int
	case model.TypeFloat:
		return graphql.Float
	case model.TypeBool:
		return graphql.Boolean
	case model.TypeJSON:
		return jsonScalar
	default:
		return graphql.String
	}
}

// object returns the entity's output type, constructing it on first use.
// Relation fields are declared through a thunk so circular graphs
// (Mrn -> Article -> Mrn) resolve.
func (b *typeBuilder) object(entity *model.Entity) *graphql.Object {
	if obj, ok := b.objects[entity.Name]; ok {
		return obj
	}

	obj := graphql.NewObject(graphql.ObjectConfig{
		Name: entity.Name,
		Fields: (graphql.FieldsThunk)(func() graphql.Fields {
			fields := graphql.Fields{}

			for _, f := range entity.Fields {
				out := scalarType(f)
				if f.PrimaryKey {
					out = graphql.NewNonNull(out)
				}
				fields[f.Name] = &graphql.Field{Type: out}
			}

			for _, rel := range entity.Relations {
				target, err := b.registry.Get(rel.Target)
				if err != nil {
					continue
				}
				switch rel.Kind {
				case model.BelongsTo, model.HasOne:
					fields[rel.Name] = &graphql.Field{Type: b.object(target)}
				case model.HasMany:
					fields[rel.Name] = &graphql.Field{
						Type:    graphql.NewList(b.object(target)),
						Resolve: resolvePreloadedList(rel.Name),
					}
				}
			}
			return fields
		}),
	})
	b.objects[entity.Name] = obj
	return obj
}

// resolvePreloadedList reads a has-many relation the loader attached to
// the source record, returning an empty list when nothing was loaded.
func resolvePreloadedList(name string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		record, ok := p.Source.(map[string]interface{})
		if !ok {
			return []map[string]interface{}{}, nil
		}
		if children, ok := record[name].([]map[string]interface{}); ok {
			return children, nil
		}
		return []map[string]interface{}{}, nil
	}
}

// pageInfoType is shared by every entity's list result.
func (b *typeBuilder) pageInfoType() *graphql.Object {
	if b.pageInfo == nil {
		b.pageInfo = graphql.NewObject(graphql.ObjectConfig{
			Name: "PageInfo",
			Fields: graphql.Fields{
				"totalCount":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
				"totalPages":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
				"currentPage":     &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
				"pageSize":        &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
				"hasNextPage":     &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
				"hasPreviousPage": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			},
		})
	}
	return b.pageInfo
}

// listResult wraps an entity's list query response.
func (b *typeBuilder) listResult(entity *model.Entity) *graphql.Object {
	if obj, ok := b.listResults[entity.Name]; ok {
		return obj
	}
	obj := graphql.NewObject(graphql.ObjectConfig{
		Name: entity.Name + "ListResult",
		Fields: graphql.Fields{
			"pageInfo": &graphql.Field{Type: graphql.NewNonNull(b.pageInfoType())},
			"results":  &graphql.Field{Type: graphql.NewList(b.object(entity))},
		},
	})
	b.listResults[entity.Name] = obj
	return obj
}

// input returns the entity's write input type, shared by create and
// update. Every field is optional at the schema level; required fields
// are enforced by the store's validator so a create missing several
// fields reports all of them at once instead of failing on the first
// schema coercion error.
func (b *typeBuilder) input(entity *model.Entity) *graphql.InputObject {
	if in, ok := b.inputs[entity.Name]; ok {
		return in
	}

	fields := graphql.InputObjectConfigFieldMap{}
	for _, f := range entity.Fields {
		if f.Auto {
			continue
		}
		fields[f.Name] = &graphql.InputObjectFieldConfig{Type: inputScalarType(f)}
	}

	in := graphql.NewInputObject(graphql.InputObjectConfig{
		Name:   entity.Name + "Input",
		Fields: fields,
	})
	b.inputs[entity.Name] = in
	return in
}
