package gopager

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"
)

// testUser is the entity behind the in-memory collection used by the engine
// tests.
type testUser struct {
	ID        int64      `json:"id"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Email     string     `json:"email"`
	City      string     `json:"city"`
	CreatedAt *time.Time `json:"createdAt"`
}

func (u testUser) column(col string) (any, bool) {
	switch col {
	case "id":
		return u.ID, true
	case "first_name":
		return u.FirstName, true
	case "last_name":
		return u.LastName, true
	case "email":
		return u.Email, true
	case "created_at":
		if u.CreatedAt == nil {
			return nil, true
		}
		return *u.CreatedAt, true
	// Joined relation column.
	case "profile.city":
		return u.City, true
	default:
		return nil, false
	}
}

// memCollection is a Collection over a slice of users. Every Find and count
// call is recorded in calls.
type memCollection struct {
	users     []testUser
	relations []string
	// raw produces the raw rows of a user in merge mode.
	raw   func(u testUser, alias string) []RawRow
	calls *atomic.Int32
	err   error
}

func newMemCollection(users ...testUser) *memCollection {
	return &memCollection{
		users:     users,
		relations: []string{"profile"},
		calls:     new(atomic.Int32),
	}
}

func (c *memCollection) DefaultAlias() string {
	return "users"
}

func (c *memCollection) Open(alias string) (Query, error) {
	return &memQuery{coll: c, alias: alias, err: c.err}, nil
}

type memQuery struct {
	coll    *memCollection
	alias   string
	conds   []DNF
	joins   []string
	selects []string
	order   *OrderBy
	offset  int
	limit   int
	err     error
}

func (q *memQuery) copy() *memQuery {
	c := *q
	c.conds = slices.Clip(q.conds)
	c.joins = slices.Clip(q.joins)
	c.selects = slices.Clip(q.selects)

	return &c
}

func (q *memQuery) Alias() string {
	return q.alias
}

func (q *memQuery) Key() KeyDescriptor {
	return KeyDescriptor{Field: "ID", Column: "id"}
}

func (q *memQuery) Where(cond DNF) Query {
	c := q.copy()
	c.conds = append(c.conds, cond)

	return c
}

func (q *memQuery) Join(relation string) Query {
	c := q.copy()
	if !slices.Contains(q.coll.relations, relation) && c.err == nil {
		c.err = fmt.Errorf("%w: unknown relation '%s'", ErrConfiguration, relation)
	}
	c.joins = append(c.joins, relation)

	return c
}

func (q *memQuery) Select(columns ...string) Query {
	c := q.copy()
	c.selects = append(c.selects, columns...)

	return c
}

func (q *memQuery) OrderBy(order OrderBy) Query {
	c := q.copy()
	c.order = &order

	return c
}

func (q *memQuery) Window(offset, limit int) Query {
	c := q.copy()
	c.offset, c.limit = offset, limit

	return c
}

func (q *memQuery) Clone() Query {
	c := q.copy()
	c.order = nil
	c.offset, c.limit = 0, 0

	return c
}

func (q *memQuery) column(u testUser, col string) (any, bool) {
	return u.column(strings.TrimPrefix(col, q.alias+"."))
}

func (q *memQuery) matches(u testUser, d DNF) bool {
	if d.IsEmpty() {
		return true
	}

	for _, disjunct := range d {
		ok := true
		for _, c := range disjunct {
			v, known := q.column(u, c.Column)
			if !known {
				ok = false
				break
			}

			switch c.Operator {
			case OperatorEq:
				ok = ok && fmt.Sprint(v) == fmt.Sprint(c.Value)
			case OperatorContains:
				ok = ok && strings.Contains(strings.ToLower(fmt.Sprint(v)), strings.ToLower(fmt.Sprint(c.Value)))
			default:
				ok = false
			}
		}

		if ok {
			return true
		}
	}

	return false
}

func (q *memQuery) filtered() []testUser {
	var ret []testUser
	for _, u := range q.coll.users {
		if !slices.ContainsFunc(q.conds, func(d DNF) bool { return !q.matches(u, d) }) {
			ret = append(ret, u)
		}
	}

	return ret
}

func (q *memQuery) page(ctx context.Context) ([]testUser, error) {
	if q.err != nil {
		return nil, q.err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q.coll.calls.Add(1)

	users := q.filtered()
	if q.order != nil {
		// created_at only, NULLs last in both directions.
		slices.SortStableFunc(users, func(a, b testUser) int {
			switch {
			case a.CreatedAt == nil && b.CreatedAt == nil:
				return 0
			case a.CreatedAt == nil:
				return 1
			case b.CreatedAt == nil:
				return -1
			}

			cmp := a.CreatedAt.Compare(*b.CreatedAt)
			if q.order.Direction == DirectionDESC {
				cmp = -cmp
			}

			return cmp
		})
	}

	if q.offset >= len(users) {
		return nil, nil
	}
	users = users[q.offset:]

	if q.limit > 0 && q.limit < len(users) {
		users = users[:q.limit]
	}

	return users, nil
}

func (q *memQuery) Find(ctx context.Context, dest any) error {
	users, err := q.page(ctx)
	if err != nil {
		return err
	}

	*dest.(*[]testUser) = users

	return nil
}

func (q *memQuery) FindRawAndEntities(ctx context.Context, dest any) ([]RawRow, error) {
	users, err := q.page(ctx)
	if err != nil {
		return nil, err
	}

	var raw []RawRow
	for _, u := range users {
		if q.coll.raw != nil {
			raw = append(raw, q.coll.raw(u, q.alias)...)
		}
	}

	*dest.(*[]testUser) = users

	return raw, nil
}

func (q *memQuery) CountDistinct(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	q.coll.calls.Add(1)

	if q.order != nil || q.limit != 0 || q.offset != 0 {
		return 0, fmt.Errorf("count over an ordered or windowed query")
	}

	return int64(len(q.filtered())), nil
}

func at(day int) *time.Time {
	t := time.Date(2024, time.January, day, 12, 0, 0, 0, time.UTC)
	return &t
}

func seedUsers(n int) []testUser {
	users := make([]testUser, 0, n)
	for i := 1; i <= n; i++ {
		users = append(users, testUser{
			ID:        int64(i),
			FirstName: fmt.Sprintf("user%d", i),
			Email:     fmt.Sprintf("user%d@example.com", i),
			CreatedAt: at(i),
		})
	}

	return users
}
