package query

import (
	"strconv"
	"strings"

	"github.com/logiflow/logiflow/internal/apierr"
	"github.com/logiflow/logiflow/internal/model"
	storequery "github.com/logiflow/logiflow/internal/store/query"
	"github.com/logiflow/logiflow/internal/store/relations"
)

// Compile turns parsed list parameters into a SQL builder for the
// entity's table. Field names, operators, and expand paths are checked
// against the descriptors; every problem is reported at once.
//
// Pagination is not applied here; the handler adds limit/offset after
// counting, and count queries ignore them anyway.
func Compile(registry *model.Registry, entity *model.Entity, p *ListParams) (*storequery.Builder, error) {
	verr := apierr.NewValidation()
	qb := storequery.NewBuilder(entity.TableName)

	for _, f := range p.Filters {
		compileFilter(entity, f, qb, verr)
	}

	if p.Search != "" {
		compileSearch(entity, p.Search, qb)
	}

	compileOrder(entity, p, qb, verr)

	ValidateExpand(registry, entity, p.Expand, verr)

	if verr.HasErrors() {
		return nil, verr
	}
	return qb, nil
}

// compileOrder applies order_by, defaulting to insertion order: the
// creation timestamp when the entity has one, the primary key otherwise.
func compileOrder(entity *model.Entity, p *ListParams, qb *storequery.Builder, verr *apierr.ValidationError) {
	if p.OrderBy != "" {
		if !entity.HasField(p.OrderBy) {
			verr.Add("order_by", p.OrderBy+" is not a sortable field")
			return
		}
		qb.OrderBy(p.OrderBy, p.OrderDesc)
		return
	}

	if entity.HasField("created_at") {
		qb.OrderBy("created_at", false)
	}
	qb.OrderBy(entity.PrimaryKey().Name, false)
}

// compileSearch ORs a case-insensitive substring match across the
// entity's text fields. Entities without text fields ignore search.
func compileSearch(entity *model.Entity, term string, qb *storequery.Builder) {
	fields := entity.SearchFields()
	if len(fields) == 0 {
		return
	}

	group := storequery.NewPredicateGroup(true)
	pattern := "%" + escapeLike(term) + "%"
	for _, f := range fields {
		group.Add(f.Name, storequery.OpILike, pattern)
	}
	qb.WhereGroup(group)
}

// compileFilter validates one filter parameter and adds its condition.
func compileFilter(entity *model.Entity, f Filter, qb *storequery.Builder, verr *apierr.ValidationError) {
	field := entity.Field(f.Field)
	if field == nil {
		verr.Add(f.Param(), f.Field+" is not a filterable field")
		return
	}

	op := f.Op
	if op == "" {
		op = "exact"
	}

	cond, ok := FilterCondition(field, op, f.Raw)
	if !ok {
		verr.Add(f.Param(), "operator "+op+" is not supported for "+string(field.Type)+" fields")
		return
	}
	if cond == nil {
		verr.Add(f.Param(), "invalid value for operator "+op)
		return
	}
	qb.WhereGroup(cond)
}

// FilterCondition builds the predicate for one (field, operator, value)
// triple. The graph filter inputs share this operator vocabulary.
// Returns ok=false for an operator the field type does not admit and a
// nil group for an unparsable value.
func FilterCondition(field *model.Field, op, raw string) (*storequery.PredicateGroup, bool) {
	g := storequery.NewPredicateGroup(false)

	switch {
	case field.Type.IsText():
		switch op {
		case "exact":
			g.Add(field.Name, storequery.OpEqual, raw)
		case "contains":
			g.Add(field.Name, storequery.OpLike, "%"+escapeLike(raw)+"%")
		case "icontains":
			g.Add(field.Name, storequery.OpILike, "%"+escapeLike(raw)+"%")
		case "startswith":
			g.Add(field.Name, storequery.OpLike, escapeLike(raw)+"%")
		case "endswith":
			g.Add(field.Name, storequery.OpLike, "%"+escapeLike(raw))
		case "in":
			g.Add(field.Name, storequery.OpIn, splitList(raw))
		default:
			return nil, false
		}

	case field.Type.IsNumeric() || field.Type.IsTemporal():
		switch op {
		case "exact":
			g.Add(field.Name, storequery.OpEqual, raw)
		case "gt":
			g.Add(field.Name, storequery.OpGreaterThan, raw)
		case "gte":
			g.Add(field.Name, storequery.OpGreaterThanOrEqual, raw)
		case "lt":
			g.Add(field.Name, storequery.OpLessThan, raw)
		case "lte":
			g.Add(field.Name, storequery.OpLessThanOrEqual, raw)
		case "in":
			g.Add(field.Name, storequery.OpIn, splitList(raw))
		case "isnull":
			return nullCondition(field.Name, raw)
		default:
			return nil, false
		}

	case field.Type == model.TypeBool:
		switch op {
		case "exact":
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, true
			}
			g.Add(field.Name, storequery.OpEqual, b)
		case "isnull":
			return nullCondition(field.Name, raw)
		default:
			return nil, false
		}

	case field.Type == model.TypeUUID || field.Type == model.TypeReference:
		switch op {
		case "exact":
			g.Add(field.Name, storequery.OpEqual, raw)
		case "in":
			g.Add(field.Name, storequery.OpIn, splitList(raw))
		case "isnull":
			return nullCondition(field.Name, raw)
		default:
			return nil, false
		}

	default:
		// json fields are not filterable.
		return nil, false
	}

	return g, true
}

func nullCondition(field, raw string) (*storequery.PredicateGroup, bool) {
	isNull, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, true
	}
	g := storequery.NewPredicateGroup(false)
	if isNull {
		g.Add(field, storequery.OpIsNull, nil)
	} else {
		g.Add(field, storequery.OpIsNotNull, nil)
	}
	return g, true
}

// ValidateExpand validates dotted expand paths against the relation
// descriptors. The get handler shares this with Compile.
func ValidateExpand(registry *model.Registry, entity *model.Entity, paths []string, verr *apierr.ValidationError) {
	for _, path := range paths {
		checkExpandPath(registry, entity, path, verr)
	}
}

// checkExpandPath walks one dotted path through the registry.
func checkExpandPath(registry *model.Registry, entity *model.Entity, path string, verr *apierr.ValidationError) {
	segments := strings.Split(path, ".")
	if len(segments) > relations.MaxDepth {
		verr.Add("expand", path+" nests deeper than "+strconv.Itoa(relations.MaxDepth)+" levels")
		return
	}

	current := entity
	for _, segment := range segments {
		rel := current.Relation(segment)
		if rel == nil {
			verr.Add("expand", current.Name+" has no relation "+segment)
			return
		}
		target, err := registry.Get(rel.Target)
		if err != nil {
			verr.Add("expand", err.Error())
			return
		}
		current = target
	}
}

// splitList splits a comma-separated in-list into query arguments.
func splitList(raw string) []interface{} {
	parts := strings.Split(raw, ",")
	values := make([]interface{}, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

// escapeLike escapes the LIKE wildcards in user input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
