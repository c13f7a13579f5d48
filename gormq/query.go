package gormq

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/Alp4ka/gopager/v2"
)

// Query is an immutable gopager.Query over a gorm session. Builder calls are
// recorded and only turned into gorm calls when the query runs, so a Query
// can be shared and branched freely.
type Query struct {
	db     *gorm.DB
	schema *schema.Schema
	alias  string
	key    gopager.KeyDescriptor

	conds    []clause.Expression
	joins    []string
	preloads []string
	selects  []string
	order    *gopager.OrderBy
	offset   int
	limit    int

	// err is the first builder error. It is returned by every execution
	// method before the database is touched.
	err error
}

var _ gopager.Query = (*Query)(nil)

func newQuery(db *gorm.DB, sch *schema.Schema, alias string, key gopager.KeyDescriptor) *Query {
	return &Query{
		db:     db,
		schema: sch,
		alias:  alias,
		key:    key,
	}
}

// copy returns a shallow copy whose slices can be appended to without
// affecting q.
func (q *Query) copy() *Query {
	c := *q
	c.conds = slices.Clip(q.conds)
	c.joins = slices.Clip(q.joins)
	c.preloads = slices.Clip(q.preloads)
	c.selects = slices.Clip(q.selects)

	return &c
}

func (q *Query) withErr(err error) *Query {
	c := q.copy()
	if c.err == nil {
		c.err = err
	}

	return c
}

func (q *Query) dialect() string {
	return q.db.Dialector.Name()
}

// Alias implements gopager.Query.
func (q *Query) Alias() string {
	return q.alias
}

// Key implements gopager.Query.
func (q *Query) Key() gopager.KeyDescriptor {
	return q.key
}

// Where implements gopager.Query.
func (q *Query) Where(cond gopager.DNF) gopager.Query {
	if err := cond.Validate(); err != nil {
		return q.withErr(err)
	}

	expr := dnfExpression(q.dialect(), cond)
	if expr == nil {
		return q
	}

	c := q.copy()
	c.conds = append(c.conds, expr)

	return c
}

// Join implements gopager.Query. To-one relations are joined in the same
// statement; to-many relations are loaded with a separate preload query so
// they do not multiply the rows of the page.
func (q *Query) Join(relation string) gopager.Query {
	rel, ok := q.schema.Relationships.Relations[relation]
	if !ok {
		return q.withErr(fmt.Errorf("%w: model %s has no relation '%s'", gopager.ErrConfiguration, q.schema.Name, relation))
	}

	c := q.copy()
	switch rel.Type {
	case schema.HasMany, schema.Many2Many:
		c.preloads = append(c.preloads, relation)
	default:
		c.joins = append(c.joins, relation)
	}

	return c
}

// Select implements gopager.Query. The primary key column is always part of
// the projection so rows can be told apart.
func (q *Query) Select(columns ...string) gopager.Query {
	c := q.copy()
	c.selects = append(c.selects, columns...)

	return c
}

// OrderBy implements gopager.Query.
func (q *Query) OrderBy(order gopager.OrderBy) gopager.Query {
	if err := order.Validate(); err != nil {
		return q.withErr(err)
	}

	c := q.copy()
	c.order = &order

	return c
}

// Window implements gopager.Query.
func (q *Query) Window(offset, limit int) gopager.Query {
	c := q.copy()
	c.offset, c.limit = max(0, offset), max(0, limit)

	return c
}

// Clone implements gopager.Query.
func (q *Query) Clone() gopager.Query {
	c := q.copy()
	c.order = nil
	c.offset, c.limit = 0, 0

	return c
}

// session starts a statement of its own from the base query. The ordering
// and window of the base query are dropped: they belong to the pager, which
// puts its ordering after the base one (see orderClause).
func (q *Query) session(ctx context.Context) *gorm.DB {
	if ctx == nil {
		ctx = context.Background()
	}

	tx := q.db.Session(&gorm.Session{Context: ctx})
	delete(tx.Statement.Clauses, "ORDER BY")
	delete(tx.Statement.Clauses, "LIMIT")

	return tx
}

// filtered builds the statement without ordering and window.
func (q *Query) filtered(ctx context.Context) *gorm.DB {
	tx := q.session(ctx)

	if len(q.conds) > 0 {
		tx = tx.Clauses(q.conds...)
	}

	for _, relation := range q.joins {
		tx = tx.Joins(relation)
	}

	if len(q.selects) > 0 {
		tx = tx.Select(q.quotedSelects(tx))
	}

	return tx
}

// build builds the full statement of the query. Preloads only apply when
// the query is scanned into entities.
func (q *Query) build(ctx context.Context, preload bool) *gorm.DB {
	tx := q.filtered(ctx)

	if preload {
		for _, relation := range q.preloads {
			tx = tx.Preload(relation)
		}
	}

	if q.order != nil {
		tx = tx.Clauses(q.orderClause())
	}

	if q.limit > 0 {
		tx = tx.Limit(q.limit)
	}

	if q.offset > 0 {
		tx = tx.Offset(q.offset)
	}

	return tx
}

// orderClause orders by the base query's own ORDER BY, if any, and then by
// the pager's ordering.
func (q *Query) orderClause() clause.OrderBy {
	order := orderExpression(q.dialect(), *q.order)

	base, ok := q.db.Statement.Clauses["ORDER BY"]
	if !ok || base.Expression == nil {
		return order
	}

	return clause.OrderBy{Expression: clause.CommaExpression{
		Exprs: []clause.Expression{base.Expression, order.Expression},
	}}
}

// projection is the selected columns with the primary key column in front
// unless it is already selected.
func (q *Query) projection() []string {
	keyColumn := q.alias + "." + q.key.Column

	selectsKey := slices.ContainsFunc(q.selects, func(col string) bool {
		return col == keyColumn || col == q.key.Column || strings.HasSuffix(col, "*")
	})
	if selectsKey {
		return q.selects
	}

	return append([]string{keyColumn}, q.selects...)
}

func (q *Query) quotedSelects(tx *gorm.DB) []string {
	selects := q.projection()

	ret := make([]string, 0, len(selects))
	for _, col := range selects {
		if strings.ContainsAny(col, "'`\"*() ") {
			ret = append(ret, col)
			continue
		}

		ret = append(ret, tx.Statement.Quote(col))
	}

	return ret
}
