package graph

import (
	"fmt"
	"math"
	"strings"

	"github.com/graphql-go/graphql"
	"go.uber.org/zap"

	"github.com/logiflow/logiflow/internal/apierr"
	"github.com/logiflow/logiflow/internal/model"
	"github.com/logiflow/logiflow/internal/store"
	webquery "github.com/logiflow/logiflow/internal/web/query"
	"github.com/logiflow/logiflow/internal/web/webcontext"
)

// queryFields builds the root query: a single-record and a list query
// per entity, named after its lowerCamel form (mrn, mrnList).
func (s *Surface) queryFields(b *typeBuilder) (graphql.Fields, error) {
	fields := graphql.Fields{}

	for _, entity := range s.registry.All() {
		name := model.LowerCamel(entity.Name)
		if _, exists := fields[name]; exists {
			return nil, fmt.Errorf("query name %s is already taken", name)
		}

		fields[name] = &graphql.Field{
			Type: b.object(entity),
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
			},
			Resolve: s.getResolver(entity),
		}
		fields[name+"List"] = &graphql.Field{
			Type: b.listResult(entity),
			Args: graphql.FieldConfigArgument{
				"filter":   &graphql.ArgumentConfig{Type: b.filter(entity)},
				"page":     &graphql.ArgumentConfig{Type: graphql.Int},
				"pageSize": &graphql.ArgumentConfig{Type: graphql.Int},
				"all":      &graphql.ArgumentConfig{Type: graphql.Boolean},
				"orderBy":  &graphql.ArgumentConfig{Type: graphql.String},
				"search":   &graphql.ArgumentConfig{Type: graphql.String},
			},
			Resolve: s.listResolver(entity),
		}
	}
	return fields, nil
}

// authorize runs the capability check; it is the first thing every
// resolver does.
func (s *Surface) authorize(p graphql.ResolveParams, entity *model.Entity, op model.Operation) error {
	role := webcontext.Role(p.Context)
	if s.resolver.CanPerform(role, entity.ExternalName, string(op)) {
		return nil
	}
	return forbiddenError()
}

func (s *Surface) getResolver(entity *model.Entity) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		if err := s.authorize(p, entity, model.OpGet); err != nil {
			return nil, err
		}
		st, err := s.entityStore(entity)
		if err != nil {
			return nil, wrapError(err)
		}

		id, _ := p.Args["id"].(string)
		record, err := st.Find(p.Context, id)
		if err != nil {
			return nil, wrapError(s.notFound(entity, id, err))
		}

		records := []map[string]interface{}{record}
		if err := s.preload(p, entity, records, s.includePaths(p, entity)); err != nil {
			return nil, err
		}
		return record, nil
	}
}

func (s *Surface) listResolver(entity *model.Entity) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		if err := s.authorize(p, entity, model.OpList); err != nil {
			return nil, err
		}
		st, err := s.entityStore(entity)
		if err != nil {
			return nil, wrapError(err)
		}

		params, err := listParamsFromArgs(p.Args)
		if err != nil {
			return nil, wrapError(err)
		}

		qb, err := webquery.Compile(s.registry, entity, params)
		if err != nil {
			return nil, wrapError(err)
		}

		if filter, ok := p.Args["filter"].(map[string]interface{}); ok {
			group, err := compileFilter(entity, filter)
			if err != nil {
				return nil, wrapError(err)
			}
			qb.WhereGroup(group)
		}

		total, err := st.CountWhere(p.Context, qb)
		if err != nil {
			return nil, s.internal(entity, "count failed", err)
		}

		if !params.All {
			qb.Limit(params.PageSize).Offset((params.Page - 1) * params.PageSize)
		}

		records, err := st.FindWhere(p.Context, qb)
		if err != nil {
			return nil, s.internal(entity, "list failed", err)
		}

		if err := s.preload(p, entity, records, s.listIncludePaths(p, entity)); err != nil {
			return nil, err
		}

		return map[string]interface{}{
			"pageInfo": pageInfo(params, total),
			"results":  records,
		}, nil
	}
}

// listParamsFromArgs mirrors the REST surface's defaults: page 1, page
// size 10 capped at 100, insertion order unless orderBy is given.
func listParamsFromArgs(args map[string]interface{}) (*webquery.ListParams, error) {
	params := &webquery.ListParams{
		Page:     1,
		PageSize: webquery.DefaultPageSize,
	}

	if page, ok := args["page"].(int); ok {
		if page < 1 {
			return nil, newArgError("page", "must be a positive integer")
		}
		params.Page = page
	}
	if size, ok := args["pageSize"].(int); ok {
		switch {
		case size < 1:
			return nil, newArgError("pageSize", "must be a positive integer")
		case size > webquery.MaxPageSize:
			params.PageSize = webquery.MaxPageSize
		default:
			params.PageSize = size
		}
	}
	if all, ok := args["all"].(bool); ok {
		params.All = all
	}
	if orderBy, ok := args["orderBy"].(string); ok && orderBy != "" {
		if strings.HasPrefix(orderBy, "-") {
			params.OrderDesc = true
			orderBy = orderBy[1:]
		}
		if orderBy == "" {
			return nil, newArgError("orderBy", "must name a field")
		}
		params.OrderBy = orderBy
	}
	if search, ok := args["search"].(string); ok {
		params.Search = strings.TrimSpace(search)
	}
	return params, nil
}

// pageInfo fills the shared pagination object.
func pageInfo(params *webquery.ListParams, total int) map[string]interface{} {
	if params.All {
		return map[string]interface{}{
			"totalCount":      total,
			"totalPages":      1,
			"currentPage":     1,
			"pageSize":        total,
			"hasNextPage":     false,
			"hasPreviousPage": false,
		}
	}

	totalPages := int(math.Ceil(float64(total) / float64(params.PageSize)))
	return map[string]interface{}{
		"totalCount":      total,
		"totalPages":      totalPages,
		"currentPage":     params.Page,
		"pageSize":        params.PageSize,
		"hasNextPage":     params.Page < totalPages,
		"hasPreviousPage": params.Page > 1,
	}
}

// preload eager-loads the relations the selection set asks for.
func (s *Surface) preload(p graphql.ResolveParams, entity *model.Entity, records []map[string]interface{}, includes []string) error {
	if len(includes) == 0 || len(records) == 0 || s.loader == nil {
		return nil
	}
	if err := s.loader.Load(p.Context, entity, records, includes); err != nil {
		return s.internal(entity, "relation load failed", err)
	}
	return nil
}

// notFound upgrades the store's sentinel to the entity-aware error.
func (s *Surface) notFound(entity *model.Entity, id string, err error) error {
	if store.IsNotFound(err) {
		return apierr.NewNotFound(entity.Name, id)
	}
	return err
}

// internal logs the cause and returns the opaque error.
func (s *Surface) internal(entity *model.Entity, msg string, err error) error {
	s.logger.Error(msg,
		zap.String("entity", entity.ExternalName),
		zap.Error(err),
	)
	return wrapError(err)
}

// newArgError builds a single-field validation error for a bad query
// argument.
func newArgError(arg, message string) error {
	verr := apierr.NewValidation()
	verr.Add(arg, message)
	return verr
}
