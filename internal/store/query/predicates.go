// Package query builds parameterized PostgreSQL statements for the
// generated list and count operations. Predicate groups nest with
// AND/OR/NOT, which is how both the REST filter parameters and the graph
// filter inputs compile down to SQL.
package query

import (
	"fmt"
	"strings"
)

// Operator represents a comparison operator.
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
	OpIn
	OpLike
	OpILike
	OpIsNull
	OpIsNotNull
)

// String returns the SQL spelling of the operator.
func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEqual:
		return ">="
	case OpLessThan:
		return "<"
	case OpLessThanOrEqual:
		return "<="
	case OpIn:
		return "IN"
	case OpLike:
		return "LIKE"
	case OpILike:
		return "ILIKE"
	case OpIsNull:
		return "IS NULL"
	case OpIsNotNull:
		return "IS NOT NULL"
	default:
		return "UNKNOWN"
	}
}

// Condition is a single field comparison.
type Condition struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// PredicateGroup combines conditions and nested groups with one logical
// connector. Or selects OR over the default AND; Not negates the whole
// group.
type PredicateGroup struct {
	Conditions []*Condition
	Groups     []*PredicateGroup
	Or         bool
	Not        bool
}

// NewPredicateGroup creates an empty group; or selects the connector.
func NewPredicateGroup(or bool) *PredicateGroup {
	return &PredicateGroup{Or: or}
}

// AddCondition appends a condition to the group.
func (pg *PredicateGroup) AddCondition(cond *Condition) {
	pg.Conditions = append(pg.Conditions, cond)
}

// Add is shorthand for appending a field/operator/value condition.
func (pg *PredicateGroup) Add(field string, op Operator, value interface{}) {
	pg.AddCondition(&Condition{Field: field, Operator: op, Value: value})
}

// AddGroup nests a group inside this one.
func (pg *PredicateGroup) AddGroup(group *PredicateGroup) {
	pg.Groups = append(pg.Groups, group)
}

// Empty reports whether the group contributes no SQL.
func (pg *PredicateGroup) Empty() bool {
	if pg == nil {
		return true
	}
	if len(pg.Conditions) > 0 {
		return false
	}
	for _, g := range pg.Groups {
		if !g.Empty() {
			return false
		}
	}
	return true
}

// ToSQL renders the group with $n placeholders, appending values to args.
func (pg *PredicateGroup) ToSQL(paramCounter *int, args *[]interface{}) (string, error) {
	if pg.Empty() {
		return "", nil
	}

	parts := make([]string, 0, len(pg.Conditions)+len(pg.Groups))

	for _, cond := range pg.Conditions {
		sql, err := conditionToSQL(cond, paramCounter, args)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}

	for _, group := range pg.Groups {
		sql, err := group.ToSQL(paramCounter, args)
		if err != nil {
			return "", err
		}
		if sql != "" {
			parts = append(parts, fmt.Sprintf("(%s)", sql))
		}
	}

	if len(parts) == 0 {
		return "", nil
	}

	connector := " AND "
	if pg.Or {
		connector = " OR "
	}
	sql := strings.Join(parts, connector)

	if pg.Not {
		sql = fmt.Sprintf("NOT (%s)", sql)
	}
	return sql, nil
}

// conditionToSQL renders one condition with parameterized values.
func conditionToSQL(cond *Condition, paramCounter *int, args *[]interface{}) (string, error) {
	switch cond.Operator {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterThanOrEqual,
		OpLessThan, OpLessThanOrEqual, OpLike, OpILike:
		*args = append(*args, cond.Value)
		sql := fmt.Sprintf("%s %s $%d", cond.Field, cond.Operator, *paramCounter)
		*paramCounter++
		return sql, nil

	case OpIn:
		values, ok := cond.Value.([]interface{})
		if !ok {
			return "", fmt.Errorf("IN operator requires []interface{} value")
		}
		if len(values) == 0 {
			// IN over an empty set matches nothing.
			return "FALSE", nil
		}
		placeholders := make([]string, len(values))
		for i, v := range values {
			*args = append(*args, v)
			placeholders[i] = fmt.Sprintf("$%d", *paramCounter)
			*paramCounter++
		}
		return fmt.Sprintf("%s IN (%s)", cond.Field, strings.Join(placeholders, ", ")), nil

	case OpIsNull:
		return fmt.Sprintf("%s IS NULL", cond.Field), nil

	case OpIsNotNull:
		return fmt.Sprintf("%s IS NOT NULL", cond.Field), nil

	default:
		return "", fmt.Errorf("unsupported operator: %v", cond.Operator)
	}
}
