// Package migrate turns registered entity descriptors into PostgreSQL
// DDL and applies it at startup. Tables are created in registration
// order so referenced tables exist before the tables pointing at them.
package migrate

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/logiflow/logiflow/internal/model"
)

// SQLType maps a descriptor field type to its PostgreSQL column type.
func SQLType(f *model.Field) string {
	switch f.Type {
	case model.TypeString:
		if f.MaxLength > 0 {
			return fmt.Sprintf("VARCHAR(%d)", f.MaxLength)
		}
		return "VARCHAR(255)"
	case model.TypeText:
		return "TEXT"
	case model.TypeInt:
		return "INTEGER"
	case model.TypeFloat:
		return "DOUBLE PRECISION"
	case model.TypeDecimal:
		return "NUMERIC(14,2)"
	case model.TypeBool:
		return "BOOLEAN"
	case model.TypeDate:
		return "DATE"
	case model.TypeTimestamp:
		return "TIMESTAMP WITH TIME ZONE"
	case model.TypeUUID, model.TypeReference:
		return "UUID"
	case model.TypeJSON:
		return "JSONB"
	default:
		return "TEXT"
	}
}

// CreateTableSQL renders the CREATE TABLE statement for one entity.
// Columns follow field declaration order.
func CreateTableSQL(registry *model.Registry, entity *model.Entity) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n", pq.QuoteIdentifier(entity.TableName)))

	defs := make([]string, 0, len(entity.Fields))
	for _, f := range entity.Fields {
		defs = append(defs, columnDefinition(registry, entity, f))
	}

	for i, def := range defs {
		b.WriteString("  ")
		b.WriteString(def)
		if i < len(defs)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}

	b.WriteString(");")
	return b.String()
}

func columnDefinition(registry *model.Registry, entity *model.Entity, f *model.Field) string {
	parts := []string{pq.QuoteIdentifier(f.Name), SQLType(f)}

	if f.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	} else if !f.Nullable {
		parts = append(parts, "NOT NULL")
	}

	if f.Unique && !f.PrimaryKey {
		parts = append(parts, "UNIQUE")
	}

	if f.Default != nil && !f.Auto {
		parts = append(parts, "DEFAULT "+defaultLiteral(f.Default))
	}

	if ref := referencedTable(registry, entity, f); ref != "" {
		parts = append(parts, ref)
	}

	return strings.Join(parts, " ")
}

// referencedTable renders the REFERENCES clause for a foreign key column
// backed by a belongs-to relation.
func referencedTable(registry *model.Registry, entity *model.Entity, f *model.Field) string {
	if f.Type != model.TypeReference {
		return ""
	}
	for _, rel := range entity.Relations {
		if rel.Kind != model.BelongsTo || rel.ForeignKey != f.Name {
			continue
		}
		target, err := registry.Get(rel.Target)
		if err != nil {
			return ""
		}
		return fmt.Sprintf(
			"REFERENCES %s(%s)",
			pq.QuoteIdentifier(target.TableName),
			pq.QuoteIdentifier(target.PrimaryKey().Name),
		)
	}
	return ""
}

func defaultLiteral(v interface{}) string {
	switch d := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(d, "'", "''") + "'"
	case bool:
		if d {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", d)
	}
}

// Script renders the full DDL for every registered entity, in
// registration order.
func Script(registry *model.Registry) string {
	var b strings.Builder
	for i, entity := range registry.InOrder() {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(CreateTableSQL(registry, entity))
	}
	return b.String()
}
