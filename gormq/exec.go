package gormq

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Alp4ka/gopager/v2"
)

// Find implements gopager.Query.
func (q *Query) Find(ctx context.Context, dest any) error {
	if q.err != nil {
		return q.err
	}

	return q.build(ctx, true).Find(dest).Error
}

// CountDistinct implements gopager.Query. It counts distinct primary keys, so
// rows multiplied by joins are counted once. Grouped queries are counted as
// a subquery: one row per group.
func (q *Query) CountDistinct(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}

	var (
		total int64
		tx    = q.filtered(ctx)
	)

	if _, grouped := tx.Statement.Clauses["GROUP BY"]; grouped {
		err := q.db.Session(&gorm.Session{NewDB: true, Context: tx.Statement.Context}).
			Table("(?) AS counted", tx).
			Clauses(clause.Select{Expression: clause.Expr{SQL: "COUNT(*)"}}).
			Scan(&total).Error

		return total, err
	}

	err := tx.Clauses(clause.Select{Expression: clause.Expr{
		SQL:  "COUNT(DISTINCT ?)",
		Vars: []any{clause.Column{Table: q.alias, Name: q.key.Column}},
	}}).Scan(&total).Error

	return total, err
}

// FindRawAndEntities implements gopager.Query. The page is read once as raw
// rows; entities are rebuilt from them, one per distinct primary key and in
// the order of first appearance. Columns of joined to-one relations come in
// as "<Relation>__<column>" and are set on the relation field. To-many
// relations are preloaded for the rebuilt entities.
func (q *Query) FindRawAndEntities(ctx context.Context, dest any) ([]gopager.RawRow, error) {
	if q.err != nil {
		return nil, q.err
	}

	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Pointer || destValue.Elem().Kind() != reflect.Slice {
		return nil, fmt.Errorf("%w: dest must be a pointer to a slice, got %T", gopager.ErrConfiguration, dest)
	}

	entities := destValue.Elem()
	elemType := entities.Type().Elem()
	structType := elemType
	if elemType.Kind() == reflect.Pointer {
		structType = elemType.Elem()
	}

	if structType != q.schema.ModelType {
		return nil, fmt.Errorf("%w: cannot decode %s rows into %s", gopager.ErrConfiguration, q.schema.Name, elemType)
	}

	var rows []map[string]any
	if err := q.build(ctx, false).Find(&rows).Error; err != nil {
		return nil, err
	}

	var (
		rawKey = q.key.RawColumn(q.alias)
		raw    = make([]gopager.RawRow, 0, len(rows))
		seen   = make(map[string]struct{}, len(rows))
	)

	for _, row := range rows {
		if _, ok := row[rawKey]; !ok {
			row[rawKey] = row[q.key.Column]
		}
		raw = append(raw, row)

		k, err := q.key.Encode(row[rawKey])
		if err != nil {
			return nil, fmt.Errorf("cannot read key of raw row: %w", err)
		}

		if _, dup := seen[k]; dup || k == "" {
			continue
		}
		seen[k] = struct{}{}

		entity, err := q.decodeEntity(ctx, row, structType)
		if err != nil {
			return nil, err
		}

		if elemType.Kind() == reflect.Pointer {
			entity = entity.Addr()
		}

		entities = reflect.Append(entities, entity)
	}

	if err := q.preload(ctx, entities); err != nil {
		return nil, err
	}

	destValue.Elem().Set(entities)

	return raw, nil
}

// preload loads the to-many relations of entities. The raw page cannot carry
// them, so the entities are read again by primary key with the relations
// preloaded and the relation fields are copied over.
func (q *Query) preload(ctx context.Context, entities reflect.Value) error {
	if len(q.preloads) == 0 || entities.Len() == 0 {
		return nil
	}

	pk := q.schema.PrioritizedPrimaryField

	var (
		keys    = make([]any, 0, entities.Len())
		byKey   = make(map[string]reflect.Value, entities.Len())
		encoded = func(v reflect.Value) (string, any, error) {
			key, _ := pk.ValueOf(ctx, v)
			k, err := q.key.Encode(key)
			return k, key, err
		}
	)

	for i := 0; i < entities.Len(); i++ {
		entity := reflect.Indirect(entities.Index(i))

		k, key, err := encoded(entity)
		if err != nil {
			return fmt.Errorf("cannot read key of entity: %w", err)
		}

		byKey[k] = entity
		keys = append(keys, key)
	}

	tx := q.db.Session(&gorm.Session{NewDB: true, Context: ctx})
	for _, relation := range q.preloads {
		tx = tx.Preload(relation)
	}

	loaded := reflect.New(reflect.SliceOf(q.schema.ModelType))
	err := tx.Where(clause.IN{
		Column: clause.Column{Table: clause.CurrentTable, Name: pk.DBName},
		Values: keys,
	}).Find(loaded.Interface()).Error
	if err != nil {
		return fmt.Errorf("cannot preload %s: %w", strings.Join(q.preloads, ", "), err)
	}

	for i := 0; i < loaded.Elem().Len(); i++ {
		source := loaded.Elem().Index(i)

		k, _, err := encoded(source)
		if err != nil {
			return fmt.Errorf("cannot read key of entity: %w", err)
		}

		target, ok := byKey[k]
		if !ok {
			continue
		}

		for _, relation := range q.preloads {
			field := q.schema.Relationships.Relations[relation].Field
			field.ReflectValueOf(ctx, target).Set(field.ReflectValueOf(ctx, source))
		}
	}

	return nil
}

func (q *Query) decodeEntity(ctx context.Context, row map[string]any, structType reflect.Type) (reflect.Value, error) {
	entity := reflect.New(structType).Elem()

	for column, value := range row {
		if value == nil {
			continue
		}

		relationName, relationColumn, nested := strings.Cut(column, "__")
		if !nested {
			field := q.schema.FieldsByDBName[column]
			if field == nil {
				continue
			}

			if err := field.Set(ctx, entity, value); err != nil {
				return reflect.Value{}, fmt.Errorf("cannot set %s.%s: %w", q.schema.Name, field.Name, err)
			}

			continue
		}

		relation := q.schema.Relationships.Relations[relationName]
		if relation == nil {
			continue
		}

		field := relation.FieldSchema.FieldsByDBName[relationColumn]
		if field == nil {
			continue
		}

		target := relation.Field.ReflectValueOf(ctx, entity)
		if target.Kind() == reflect.Pointer {
			if target.IsNil() {
				target.Set(reflect.New(target.Type().Elem()))
			}
			target = target.Elem()
		}

		if err := field.Set(ctx, target, value); err != nil {
			return reflect.Value{}, fmt.Errorf("cannot set %s.%s: %w", relationName, field.Name, err)
		}
	}

	return entity, nil
}
