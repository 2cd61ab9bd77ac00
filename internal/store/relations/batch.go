package relations

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/logiflow/logiflow/internal/model"
	"github.com/logiflow/logiflow/internal/store"
)

// loadBelongsTo resolves parents for records carrying the foreign key.
// One query: SELECT ... FROM targets WHERE pk = ANY($1).
func (l *Loader) loadBelongsTo(
	ctx context.Context,
	records []map[string]interface{},
	rel *model.Relation,
) error {
	target, err := l.registry.Get(rel.Target)
	if err != nil {
		return err
	}
	pk := target.PrimaryKey().Name

	var ids []string
	seen := make(map[string]bool)
	for _, record := range records {
		id := idString(record[rel.ForeignKey])
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		for _, record := range records {
			record[rel.Name] = nil
		}
		return nil
	}

	rows, err := l.db.QueryContext(ctx, batchQuery(target, pk), pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", target.TableName, err)
	}
	defer rows.Close()

	results, err := store.ScanRows(rows)
	if err != nil {
		return err
	}

	related := make(map[string]map[string]interface{}, len(results))
	for _, record := range results {
		related[idString(record[pk])] = record
	}

	for _, record := range records {
		if parent, ok := related[idString(record[rel.ForeignKey])]; ok {
			record[rel.Name] = parent
		} else {
			record[rel.Name] = nil
		}
	}

	return nil
}

// loadHasMany groups children by foreign key. Parents without children
// get an empty slice, never nil.
func (l *Loader) loadHasMany(
	ctx context.Context,
	entity *model.Entity,
	records []map[string]interface{},
	rel *model.Relation,
) error {
	target, err := l.registry.Get(rel.Target)
	if err != nil {
		return err
	}

	pk := entity.PrimaryKey().Name
	parentIDs := collectIDs(records, pk)
	if len(parentIDs) == 0 {
		return nil
	}

	rows, err := l.db.QueryContext(ctx, batchQuery(target, rel.ForeignKey), pq.Array(parentIDs))
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", target.TableName, err)
	}
	defer rows.Close()

	results, err := store.ScanRows(rows)
	if err != nil {
		return err
	}

	grouped := make(map[string][]map[string]interface{})
	for _, record := range results {
		key := idString(record[rel.ForeignKey])
		grouped[key] = append(grouped[key], record)
	}

	for _, record := range records {
		children := grouped[idString(record[pk])]
		if children == nil {
			children = []map[string]interface{}{}
		}
		record[rel.Name] = children
	}

	return nil
}

// loadHasOne attaches at most one child per parent.
func (l *Loader) loadHasOne(
	ctx context.Context,
	entity *model.Entity,
	records []map[string]interface{},
	rel *model.Relation,
) error {
	target, err := l.registry.Get(rel.Target)
	if err != nil {
		return err
	}

	pk := entity.PrimaryKey().Name
	parentIDs := collectIDs(records, pk)
	if len(parentIDs) == 0 {
		return nil
	}

	targetPK := target.PrimaryKey().Name
	stmt := fmt.Sprintf(
		"SELECT DISTINCT ON (%s) %s FROM %s WHERE %s = ANY($1) ORDER BY %s, %s",
		pq.QuoteIdentifier(rel.ForeignKey),
		columnList(target),
		pq.QuoteIdentifier(target.TableName),
		pq.QuoteIdentifier(rel.ForeignKey),
		pq.QuoteIdentifier(rel.ForeignKey),
		pq.QuoteIdentifier(targetPK),
	)

	rows, err := l.db.QueryContext(ctx, stmt, pq.Array(parentIDs))
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", target.TableName, err)
	}
	defer rows.Close()

	results, err := store.ScanRows(rows)
	if err != nil {
		return err
	}

	related := make(map[string]map[string]interface{}, len(results))
	for _, record := range results {
		related[idString(record[rel.ForeignKey])] = record
	}

	for _, record := range records {
		if child, ok := related[idString(record[pk])]; ok {
			record[rel.Name] = child
		} else {
			record[rel.Name] = nil
		}
	}

	return nil
}

func collectIDs(records []map[string]interface{}, key string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, record := range records {
		id := idString(record[key])
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func batchQuery(target *model.Entity, keyColumn string) string {
	return fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = ANY($1)",
		columnList(target),
		pq.QuoteIdentifier(target.TableName),
		pq.QuoteIdentifier(keyColumn),
	)
}

func columnList(entity *model.Entity) string {
	names := entity.FieldNames()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = pq.QuoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}
