package gopager

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// CreatedAtColumn is the column every page is ordered by.
const CreatedAtColumn = "created_at"

// Direction defines the sort direction for the requested dataset.
type Direction string

const (
	DirectionASC  Direction = "ASC"
	DirectionDESC Direction = "DESC"
)

// DefaultDirection is used when a request does not name a direction.
const DefaultDirection = DirectionDESC

func (o Direction) Valid() bool {
	return o == DirectionASC || o == DirectionDESC
}

// ParseDirection reads a direction case-insensitively. Unknown or empty input
// resolves to fallback.
func ParseDirection(raw string, fallback Direction) Direction {
	d := Direction(strings.ToUpper(strings.TrimSpace(raw)))

	return lo.Ternary(d.Valid(), d, fallback)
}

// NullsOrder places NULL values relative to the others.
type NullsOrder string

const (
	NullsDefault NullsOrder = ""
	NullsFirst   NullsOrder = "FIRST"
	NullsLast    NullsOrder = "LAST"
)

func (n NullsOrder) Valid() bool {
	return n == NullsDefault || n == NullsFirst || n == NullsLast
}

type OrderBy struct {
	Column    string
	Direction Direction
	Nulls     NullsOrder
}

var _availableColumnNameSymbols = append([]rune("_.'`\""), lo.AlphanumericCharset...)

// validateColumn guards against SQL injection by restricting allowed
// characters in column references.
func validateColumn(col string) error {
	if col == "" {
		return fmt.Errorf("%w: empty column name", ErrConfiguration)
	}

	if !lo.Every(_availableColumnNameSymbols, []rune(col)) {
		return fmt.Errorf("%w: column name contains forbidden symbols '%s'", ErrConfiguration, col)
	}

	return nil
}

func (o OrderBy) Validate() error {
	if !o.Direction.Valid() {
		return fmt.Errorf("%w: invalid ordering direction '%s'", ErrConfiguration, o.Direction)
	}

	if !o.Nulls.Valid() {
		return fmt.Errorf("%w: invalid nulls ordering '%s'", ErrConfiguration, o.Nulls)
	}

	return validateColumn(o.Column)
}

// ToSQL renders the ordering as "<column> <direction> [NULLS FIRST|LAST]",
// the form understood by PostgreSQL and SQLite.
//
// Example: {"u.created_at", "DESC", NullsLast} returns "u.created_at DESC NULLS LAST".
func (o OrderBy) ToSQL() string {
	if o.Nulls == NullsDefault {
		return fmt.Sprintf("%s %s", o.Column, o.Direction)
	}

	return fmt.Sprintf("%s %s NULLS %s", o.Column, o.Direction, o.Nulls)
}

// createdAtOrder is the ordering applied to every page of alias.
func createdAtOrder(alias string, dir Direction) OrderBy {
	return OrderBy{
		Column:    qualify(alias, CreatedAtColumn),
		Direction: dir,
		Nulls:     NullsLast,
	}
}
