package graph

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/logiflow/logiflow/internal/model"
)

// mutationFields builds the root mutation: create/update/delete plus
// the bulk pair per entity, mirroring the REST write semantics
// (capability check first, aggregated validation, NotFound on a missing
// id, transactional bulk create).
func (s *Surface) mutationFields(b *typeBuilder) (graphql.Fields, error) {
	fields := graphql.Fields{}

	deleteResult := graphql.NewObject(graphql.ObjectConfig{
		Name: "DeleteResult",
		Fields: graphql.Fields{
			"message": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})
	bulkDeleteResult := graphql.NewObject(graphql.ObjectConfig{
		Name: "BulkDeleteResult",
		Fields: graphql.Fields{
			"deleted": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		},
	})

	for _, entity := range s.registry.All() {
		name := entity.Name
		input := b.input(entity)

		bulkResult := graphql.NewObject(graphql.ObjectConfig{
			Name: name + "BulkResult",
			Fields: graphql.Fields{
				"count":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
				"results": &graphql.Field{Type: graphql.NewList(b.object(entity))},
			},
		})

		for mutation, field := range map[string]*graphql.Field{
			"create" + name: {
				Type: b.object(entity),
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(input)},
				},
				Resolve: s.createResolver(entity),
			},
			"update" + name: {
				Type: b.object(entity),
				Args: graphql.FieldConfigArgument{
					"id":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(input)},
				},
				Resolve: s.updateResolver(entity),
			},
			"delete" + name: {
				Type: deleteResult,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: s.deleteResolver(entity),
			},
			"bulkCreate" + name: {
				Type: bulkResult,
				Args: graphql.FieldConfigArgument{
					"items": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(input))),
					},
				},
				Resolve: s.bulkCreateResolver(entity),
			},
			"bulkDelete" + name: {
				Type: bulkDeleteResult,
				Args: graphql.FieldConfigArgument{
					"ids": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.ID))),
					},
				},
				Resolve: s.bulkDeleteResolver(entity),
			},
		} {
			if _, exists := fields[mutation]; exists {
				return nil, fmt.Errorf("mutation name %s is already taken", mutation)
			}
			fields[mutation] = field
		}
	}
	return fields, nil
}

func (s *Surface) createResolver(entity *model.Entity) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		if err := s.authorize(p, entity, model.OpCreate); err != nil {
			return nil, err
		}
		st, err := s.entityStore(entity)
		if err != nil {
			return nil, wrapError(err)
		}

		input, _ := p.Args["input"].(map[string]interface{})
		created, err := st.Create(p.Context, input)
		if err != nil {
			return nil, wrapError(err)
		}

		s.invalidate(p, entity)
		return created, nil
	}
}

func (s *Surface) updateResolver(entity *model.Entity) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		if err := s.authorize(p, entity, model.OpUpdate); err != nil {
			return nil, err
		}
		st, err := s.entityStore(entity)
		if err != nil {
			return nil, wrapError(err)
		}

		id, _ := p.Args["id"].(string)
		input, _ := p.Args["input"].(map[string]interface{})
		updated, err := st.Update(p.Context, id, input)
		if err != nil {
			return nil, wrapError(s.notFound(entity, id, err))
		}

		s.invalidate(p, entity)
		return updated, nil
	}
}

func (s *Surface) deleteResolver(entity *model.Entity) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		if err := s.authorize(p, entity, model.OpDelete); err != nil {
			return nil, err
		}
		st, err := s.entityStore(entity)
		if err != nil {
			return nil, wrapError(err)
		}

		id, _ := p.Args["id"].(string)
		if err := st.Delete(p.Context, id); err != nil {
			return nil, wrapError(s.notFound(entity, id, err))
		}

		s.invalidate(p, entity)
		return map[string]interface{}{
			"message": fmt.Sprintf("%s with id %s deleted successfully", entity.Name, id),
		}, nil
	}
}

func (s *Surface) bulkCreateResolver(entity *model.Entity) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		if err := s.authorize(p, entity, model.OpCreate); err != nil {
			return nil, err
		}
		st, err := s.entityStore(entity)
		if err != nil {
			return nil, wrapError(err)
		}

		items := inputItems(p.Args["items"])
		created, err := st.CreateMany(p.Context, items)
		if err != nil {
			return nil, wrapError(err)
		}

		s.invalidate(p, entity)
		return map[string]interface{}{
			"count":   len(created),
			"results": created,
		}, nil
	}
}

func (s *Surface) bulkDeleteResolver(entity *model.Entity) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		if err := s.authorize(p, entity, model.OpDelete); err != nil {
			return nil, err
		}
		st, err := s.entityStore(entity)
		if err != nil {
			return nil, wrapError(err)
		}

		deleted, err := st.DeleteMany(p.Context, idList(p.Args["ids"]))
		if err != nil {
			return nil, wrapError(err)
		}

		s.invalidate(p, entity)
		return map[string]interface{}{"deleted": deleted}, nil
	}
}

// invalidate drops the entity's cached REST responses after a write.
func (s *Surface) invalidate(p graphql.ResolveParams, entity *model.Entity) {
	s.cache.Invalidate(p.Context, entity.ExternalName)
}

// inputItems converts a coerced list argument into record maps.
func inputItems(arg interface{}) []map[string]interface{} {
	list, ok := arg.([]interface{})
	if !ok {
		return nil
	}
	items := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		if record, ok := item.(map[string]interface{}); ok {
			items = append(items, record)
		}
	}
	return items
}

// idList converts a coerced ID list argument into strings.
func idList(arg interface{}) []string {
	list, ok := arg.([]interface{})
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(list))
	for _, item := range list {
		if id, ok := item.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
