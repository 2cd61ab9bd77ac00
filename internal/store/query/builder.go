package query

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Builder assembles a SELECT statement for one table with $n
// placeholders. It is a pure SQL compiler; execution lives in the store.
type Builder struct {
	table   string
	columns []string
	root    *PredicateGroup
	orderBy []string
	limit   *int
	offset  *int
}

// NewBuilder creates a builder for the given table selecting the given
// columns. An empty column list selects *.
func NewBuilder(table string, columns ...string) *Builder {
	return &Builder{
		table:   table,
		columns: columns,
		root:    NewPredicateGroup(false),
	}
}

// Table returns the table the builder targets.
func (b *Builder) Table() string { return b.table }

// Where adds an AND condition.
func (b *Builder) Where(field string, op Operator, value interface{}) *Builder {
	b.root.Add(field, op, value)
	return b
}

// WhereIn adds an AND field IN (...) condition.
func (b *Builder) WhereIn(field string, values []interface{}) *Builder {
	b.root.Add(field, OpIn, values)
	return b
}

// WhereNull adds an AND field IS NULL condition.
func (b *Builder) WhereNull(field string) *Builder {
	b.root.Add(field, OpIsNull, nil)
	return b
}

// WhereILike adds an AND case-insensitive pattern condition.
func (b *Builder) WhereILike(field, pattern string) *Builder {
	b.root.Add(field, OpILike, pattern)
	return b
}

// WhereGroup nests a predicate group under the root with AND.
func (b *Builder) WhereGroup(group *PredicateGroup) *Builder {
	if group != nil && !group.Empty() {
		b.root.AddGroup(group)
	}
	return b
}

// OrderBy appends an ordering term. desc selects descending order.
func (b *Builder) OrderBy(field string, desc bool) *Builder {
	direction := "ASC"
	if desc {
		direction = "DESC"
	}
	b.orderBy = append(b.orderBy, fmt.Sprintf("%s %s", pq.QuoteIdentifier(field), direction))
	return b
}

// Limit caps the number of returned rows.
func (b *Builder) Limit(n int) *Builder {
	b.limit = &n
	return b
}

// Offset skips the first n rows.
func (b *Builder) Offset(n int) *Builder {
	b.offset = &n
	return b
}

// ToSQL renders the SELECT statement and its arguments.
func (b *Builder) ToSQL() (string, []interface{}, error) {
	cols := "*"
	if len(b.columns) > 0 {
		quoted := make([]string, len(b.columns))
		for i, c := range b.columns {
			quoted[i] = pq.QuoteIdentifier(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	var sql strings.Builder
	fmt.Fprintf(&sql, "SELECT %s FROM %s", cols, pq.QuoteIdentifier(b.table))

	counter := 1
	args := make([]interface{}, 0)

	where, err := b.root.ToSQL(&counter, &args)
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		sql.WriteString(" WHERE ")
		sql.WriteString(where)
	}

	if len(b.orderBy) > 0 {
		sql.WriteString(" ORDER BY ")
		sql.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.limit != nil {
		fmt.Fprintf(&sql, " LIMIT %d", *b.limit)
	}
	if b.offset != nil {
		fmt.Fprintf(&sql, " OFFSET %d", *b.offset)
	}

	return sql.String(), args, nil
}

// ToCountSQL renders SELECT COUNT(*) over the same predicates, ignoring
// ordering and pagination.
func (b *Builder) ToCountSQL() (string, []interface{}, error) {
	var sql strings.Builder
	fmt.Fprintf(&sql, "SELECT COUNT(*) FROM %s", pq.QuoteIdentifier(b.table))

	counter := 1
	args := make([]interface{}, 0)

	where, err := b.root.ToSQL(&counter, &args)
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		sql.WriteString(" WHERE ")
		sql.WriteString(where)
	}

	return sql.String(), args, nil
}
