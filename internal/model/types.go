// Package model defines the entity descriptors the API generators consume.
//
// Descriptors are built once at process startup, registered in a Registry,
// and never mutated afterward. Every generated surface (REST handlers,
// GraphQL types, DDL) is derived from them.
package model

import (
	"fmt"
)

// FieldType is the semantic type of a field descriptor.
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeText      FieldType = "text"
	TypeInt       FieldType = "int"
	TypeFloat     FieldType = "float"
	TypeDecimal   FieldType = "decimal"
	TypeBool      FieldType = "bool"
	TypeDate      FieldType = "date"
	TypeTimestamp FieldType = "timestamp"
	TypeUUID      FieldType = "uuid"
	TypeJSON      FieldType = "json"
	TypeReference FieldType = "reference"
)

// ParseFieldType parses a string into a FieldType.
func ParseFieldType(s string) (FieldType, error) {
	switch FieldType(s) {
	case TypeString, TypeText, TypeInt, TypeFloat, TypeDecimal, TypeBool,
		TypeDate, TypeTimestamp, TypeUUID, TypeJSON, TypeReference:
		return FieldType(s), nil
	default:
		return "", fmt.Errorf("unknown field type: %s", s)
	}
}

// IsText reports whether the type holds free text (searchable).
func (t FieldType) IsText() bool {
	return t == TypeString || t == TypeText
}

// IsNumeric reports whether the type is ordered-numeric.
func (t FieldType) IsNumeric() bool {
	return t == TypeInt || t == TypeFloat || t == TypeDecimal
}

// IsTemporal reports whether the type is a date or timestamp.
func (t FieldType) IsTemporal() bool {
	return t == TypeDate || t == TypeTimestamp
}

// Field describes one persisted attribute of an entity.
type Field struct {
	// Name is the snake_case column and JSON name.
	Name string
	// Type is the semantic type.
	Type FieldType
	// Nullable permits explicit null values.
	Nullable bool
	// Unique adds a uniqueness constraint.
	Unique bool
	// PrimaryKey marks the primary key. Exactly one per entity.
	PrimaryKey bool
	// Auto marks server-assigned fields (id, created_at, updated_at);
	// they are rejected as client input and skipped by required checks.
	Auto bool
	// Default is applied on create when the field is absent.
	Default interface{}
	// MaxLength bounds string fields; 0 means unbounded.
	MaxLength int
}

// RelationKind identifies the shape of a relation descriptor.
type RelationKind string

const (
	BelongsTo RelationKind = "belongs_to"
	HasMany   RelationKind = "has_many"
	HasOne    RelationKind = "has_one"
)

// Relation describes a link between two entities.
//
// For BelongsTo the foreign key column lives on the owning entity; for
// HasMany and HasOne it lives on the target entity and points back.
type Relation struct {
	Kind       RelationKind
	Name       string
	Target     string
	ForeignKey string
	Nullable   bool
}

// Operation is one generated API operation. Graph queries map onto
// OpList/OpGet and mutations onto OpCreate/OpUpdate/OpDelete.
type Operation string

const (
	OpList   Operation = "list"
	OpGet    Operation = "get"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Operations enumerates every generated operation in a fixed order.
var Operations = []Operation{OpList, OpGet, OpCreate, OpUpdate, OpDelete}

// Entity is an immutable descriptor for one persisted entity type.
type Entity struct {
	// Name is the PascalCase singular name, e.g. "Mrn".
	Name string
	// ExternalName is the URL segment, snake_case plural, e.g. "mrns".
	// Derived from Name when empty.
	ExternalName string
	// TableName is the backing table, snake_case plural. Derived from
	// Name when empty.
	TableName string
	// Fields is the ordered field list. Order is preserved so generated
	// SQL and schema output stay deterministic.
	Fields []*Field
	// Relations lists the entity's relation descriptors.
	Relations []*Relation
}

// Field returns the field descriptor with the given name, or nil.
func (e *Entity) Field(name string) *Field {
	for _, f := range e.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// HasField reports whether a field with the given name exists.
func (e *Entity) HasField(name string) bool {
	return e.Field(name) != nil
}

// FieldNames returns the field names in declaration order.
func (e *Entity) FieldNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Name
	}
	return names
}

// PrimaryKey returns the primary key field, or nil when none is declared.
func (e *Entity) PrimaryKey() *Field {
	for _, f := range e.Fields {
		if f.PrimaryKey {
			return f
		}
	}
	return nil
}

// SearchFields returns the text-typed fields, in declaration order.
// The list surface matches ?search= terms against these.
func (e *Entity) SearchFields() []*Field {
	var fields []*Field
	for _, f := range e.Fields {
		if f.Type.IsText() {
			fields = append(fields, f)
		}
	}
	return fields
}

// Relation returns the relation descriptor with the given name, or nil.
func (e *Entity) Relation(name string) *Relation {
	for _, r := range e.Relations {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// normalize fills derived names and checks structural invariants.
// Called by Registry.Register; entities are immutable afterwards.
func (e *Entity) normalize() error {
	if e.Name == "" {
		return fmt.Errorf("entity name must not be empty")
	}
	if e.ExternalName == "" {
		e.ExternalName = Pluralize(ToSnakeCase(e.Name))
	}
	if e.TableName == "" {
		e.TableName = Pluralize(ToSnakeCase(e.Name))
	}
	if len(e.Fields) == 0 {
		return fmt.Errorf("entity %s declares no fields", e.Name)
	}

	seen := make(map[string]bool, len(e.Fields))
	pks := 0
	for _, f := range e.Fields {
		if f.Name == "" {
			return fmt.Errorf("entity %s has a field with an empty name", e.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("entity %s declares field %s twice", e.Name, f.Name)
		}
		seen[f.Name] = true
		if f.PrimaryKey {
			pks++
		}
		if _, err := ParseFieldType(string(f.Type)); err != nil {
			return fmt.Errorf("entity %s field %s: %w", e.Name, f.Name, err)
		}
	}
	if pks != 1 {
		return fmt.Errorf("entity %s must declare exactly one primary key, has %d", e.Name, pks)
	}

	seenRel := make(map[string]bool, len(e.Relations))
	for _, r := range e.Relations {
		if r.Name == "" {
			return fmt.Errorf("entity %s has a relation with an empty name", e.Name)
		}
		if seen[r.Name] {
			return fmt.Errorf("entity %s relation %s collides with a field name", e.Name, r.Name)
		}
		if seenRel[r.Name] {
			return fmt.Errorf("entity %s declares relation %s twice", e.Name, r.Name)
		}
		seenRel[r.Name] = true
		if r.Target == "" {
			return fmt.Errorf("entity %s relation %s has no target", e.Name, r.Name)
		}
		if r.ForeignKey == "" {
			return fmt.Errorf("entity %s relation %s has no foreign key", e.Name, r.Name)
		}
	}
	return nil
}
