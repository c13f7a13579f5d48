// Package gormq implements gopager.Query on top of gorm.
//
// Use NewCollection to let the pager compose the query, or Wrap to paginate a
// query built by hand:
//
//	users, err := gormq.NewCollection[User](db)
//	res, err := gopager.Paginate[User](ctx, pager, req, rc, gopager.Options{Collection: users})
//
//	q, err := gormq.Wrap(db.Model(&User{}).Table("users AS u").Where("u.active"))
//	res, err := gopager.Paginate[User](ctx, pager, req, rc, gopager.Options{Query: q})
package gormq

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/Alp4ka/gopager/v2"
)

var _aliasPattern = regexp.MustCompile(`^\w+$`)

// Collection opens queries over the table of model T.
type Collection[T any] struct {
	db     *gorm.DB
	schema *schema.Schema
	key    gopager.KeyDescriptor
}

var _ gopager.Collection = (*Collection[struct{}])(nil)

// NewCollection parses the gorm schema of T. T must have a primary key.
func NewCollection[T any](db *gorm.DB) (*Collection[T], error) {
	sch, err := parseSchema(db, new(T))
	if err != nil {
		return nil, err
	}

	key, err := keyOf(sch)
	if err != nil {
		return nil, err
	}

	return &Collection[T]{
		db:     db,
		schema: sch,
		key:    key,
	}, nil
}

// DefaultAlias implements gopager.Collection. It is the table name of T.
func (c *Collection[T]) DefaultAlias() string {
	return c.schema.Table
}

// Open implements gopager.Collection.
func (c *Collection[T]) Open(alias string) (gopager.Query, error) {
	if !_aliasPattern.MatchString(alias) {
		return nil, fmt.Errorf("%w: invalid alias '%s'", gopager.ErrConfiguration, alias)
	}

	tx := c.db.Model(new(T))
	if alias != c.schema.Table {
		tx = tx.Table(tx.Statement.Quote(c.schema.Table) + " AS " + tx.Statement.Quote(alias))
		// gorm only infers the alias of unquoted table expressions.
		tx.Statement.Table = alias
	}

	return newQuery(tx, c.schema, alias, c.key), nil
}

// Wrap turns a prebuilt gorm query into a gopager.Query. The query must have
// a model; its alias is the one given to Table, or the model's table name.
// The pager's ordering goes after the ordering of db; its window replaces
// the window of db.
func Wrap(db *gorm.DB) (*Query, error) {
	if db == nil || db.Statement == nil || db.Statement.Model == nil {
		return nil, fmt.Errorf("%w: prebuilt query has no model", gopager.ErrConfiguration)
	}

	sch, err := parseSchema(db, db.Statement.Model)
	if err != nil {
		return nil, err
	}

	key, err := keyOf(sch)
	if err != nil {
		return nil, err
	}

	alias := db.Statement.Table
	if alias == "" {
		alias = sch.Table
	}

	return newQuery(db, sch, alias, key), nil
}

func parseSchema(db *gorm.DB, model any) (*schema.Schema, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return nil, fmt.Errorf("%w: cannot parse model %T: %w", gopager.ErrConfiguration, model, err)
	}

	return stmt.Schema, nil
}

// keyOf describes the prioritized primary key of sch.
func keyOf(sch *schema.Schema) (gopager.KeyDescriptor, error) {
	field := sch.PrioritizedPrimaryField
	if field == nil && len(sch.PrimaryFields) > 0 {
		field = sch.PrimaryFields[0]
	}

	if field == nil {
		return gopager.KeyDescriptor{}, fmt.Errorf("%w: model %s has no primary key", gopager.ErrConfiguration, sch.Name)
	}

	return gopager.KeyDescriptor{
		Field:  fieldPath(sch.ModelType, field.StructField.Index),
		Column: field.DBName,
	}, nil
}

// fieldPath resolves a struct field index path into dotted Go field names,
// e.g. [0 1] into "Model.ID". gorm encodes embedded pointers as -index-1.
func fieldPath(t reflect.Type, index []int) string {
	names := make([]string, 0, len(index))
	for _, i := range index {
		if i < 0 {
			i = -i - 1
		}

		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}

		f := t.Field(i)
		names = append(names, f.Name)
		t = f.Type
	}

	return strings.Join(names, ".")
}
