// Package query parses the list query parameters of the generated REST
// surface (page, page_size, all, order_by, search, expand, filter[...])
// and compiles them, together with an entity descriptor, into a SQL
// query builder. Parse errors are aggregated validation errors naming
// the offending parameter.
package query

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/logiflow/logiflow/internal/apierr"
)

const (
	// DefaultPageSize is used when page_size is absent.
	DefaultPageSize = 10
	// MaxPageSize caps page_size.
	MaxPageSize = 100
)

// filterPattern matches query parameters like filter[numero__contains].
var filterPattern = regexp.MustCompile(`^filter\[([^\]]+)\]$`)

// Filter is one raw filter[field__op]=value parameter. Op is empty for
// the plain filter[field]=value form.
type Filter struct {
	Field string
	Op    string
	Raw   string
}

// Param returns the parameter name the filter came from, used in
// validation messages.
func (f Filter) Param() string {
	if f.Op == "" {
		return "filter[" + f.Field + "]"
	}
	return "filter[" + f.Field + "__" + f.Op + "]"
}

// ListParams is the parsed form of a list request's query string.
type ListParams struct {
	Page      int
	PageSize  int
	All       bool
	OrderBy   string
	OrderDesc bool
	Search    string
	Expand    []string
	Filters   []Filter
}

// ParseListParams reads the list parameters from the request. Syntax
// problems (non-numeric page, zero page size) are aggregated into one
// ValidationError; field and operator checks happen later in Compile,
// where the entity descriptor is known.
func ParseListParams(r *http.Request) (*ListParams, error) {
	q := r.URL.Query()
	verr := apierr.NewValidation()

	params := &ListParams{
		Page:     1,
		PageSize: DefaultPageSize,
	}

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			verr.Add("page", "must be a positive integer")
		} else {
			params.Page = page
		}
	}

	if raw := q.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		switch {
		case err != nil || size < 1:
			verr.Add("page_size", "must be a positive integer")
		case size > MaxPageSize:
			params.PageSize = MaxPageSize
		default:
			params.PageSize = size
		}
	}

	if raw := q.Get("all"); raw != "" {
		all, err := strconv.ParseBool(raw)
		if err != nil {
			verr.Add("all", "must be true or false")
		} else {
			params.All = all
		}
	}

	if raw := q.Get("order_by"); raw != "" {
		if strings.HasPrefix(raw, "-") {
			params.OrderDesc = true
			raw = raw[1:]
		}
		if raw == "" {
			verr.Add("order_by", "must name a field")
		} else {
			params.OrderBy = raw
		}
	}

	params.Search = strings.TrimSpace(q.Get("search"))

	if raw := q.Get("expand"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				params.Expand = append(params.Expand, trimmed)
			}
		}
	}

	for key, values := range q {
		matches := filterPattern.FindStringSubmatch(key)
		if len(matches) != 2 || len(values) == 0 {
			continue
		}

		field, op := splitFilterKey(matches[1])
		if field == "" {
			verr.Add(key, "must name a field")
			continue
		}
		params.Filters = append(params.Filters, Filter{Field: field, Op: op, Raw: values[0]})
	}

	if verr.HasErrors() {
		return nil, verr
	}
	return params, nil
}

// splitFilterKey splits "numero__contains" into ("numero", "contains").
func splitFilterKey(key string) (string, string) {
	if i := strings.LastIndex(key, "__"); i >= 0 {
		return key[:i], key[i+2:]
	}
	return key, ""
}
