package gopager

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Operator defines a comparison operator for filtering by column.
type Operator string

const (
	OperatorEq Operator = "="
	OperatorGT Operator = ">"
	OperatorLT Operator = "<"

	// OperatorContains is a case-insensitive substring match. The value is
	// matched literally: drivers escape LIKE wildcards.
	OperatorContains Operator = "CONTAINS"
)

func (o Operator) Valid() bool {
	return o == OperatorEq || o == OperatorGT || o == OperatorLT || o == OperatorContains
}

type (
	// Conjunct is the condition Operator(Column, Value).
	Conjunct struct {
		Column   string
		Operator Operator
		Value    any
	}

	// Disjunct is a list of conjuncts joined by AND.
	Disjunct []Conjunct

	// DNF represents the disjunctive normal form of a logical expression.
	// Each disjunct is joined by OR, and each disjunct consists of a list of
	// conjuncts which are joined by AND.
	//
	// Thus:
	//
	//	DNF = X1 OR X2 ... OR Xn, where Xi = Ai1 AND Ai2 ... AND Aim.
	//	DNF = (A11 AND A12) OR (A21 AND A22), for n=2, m=2.
	//
	// An empty DNF places no restriction on the dataset.
	DNF []Disjunct
)

// Eq builds the single condition "column = value".
func Eq(column string, value any) DNF {
	return DNF{{{Column: column, Operator: OperatorEq, Value: value}}}
}

// Where builds an equality filter from fields, the way a column/value map is
// read as "k1 = v1 AND k2 = v2". Conjuncts are ordered by column name so the
// generated SQL is stable.
func Where(fields map[string]any) DNF {
	if len(fields) == 0 {
		return nil
	}

	columns := lo.Keys(fields)
	slices.Sort(columns)

	disjunct := make(Disjunct, 0, len(columns))
	for _, col := range columns {
		disjunct = append(disjunct, Conjunct{Column: col, Operator: OperatorEq, Value: fields[col]})
	}

	return DNF{disjunct}
}

// IsEmpty reports whether the DNF has no conjuncts at all.
func (d DNF) IsEmpty() bool {
	return lo.EveryBy(d, func(disjunct Disjunct) bool { return len(disjunct) == 0 })
}

// Qualify returns a copy of the DNF with every bare column prefixed by alias.
// Columns that already contain a dot are kept as they are.
func (d DNF) Qualify(alias string) DNF {
	if d == nil {
		return nil
	}

	ret := make(DNF, 0, len(d))
	for _, disjunct := range d {
		qualified := make(Disjunct, 0, len(disjunct))
		for _, c := range disjunct {
			c.Column = qualify(alias, c.Column)
			qualified = append(qualified, c)
		}

		ret = append(ret, qualified)
	}

	return ret
}

// Validate checks every operator and column reference of the DNF.
func (d DNF) Validate() error {
	for _, disjunct := range d {
		for _, c := range disjunct {
			if !c.Operator.Valid() {
				return fmt.Errorf("%w: invalid operator '%s'", ErrConfiguration, c.Operator)
			}

			if err := validateColumn(c.Column); err != nil {
				return err
			}
		}
	}

	return nil
}

// qualify prefixes col with alias unless col is already qualified.
func qualify(alias, col string) string {
	if alias == "" || strings.Contains(col, ".") {
		return col
	}

	return alias + "." + col
}

func qualifyAll(alias string, cols []string) []string {
	return lo.Map(cols, func(col string, _ int) string { return qualify(alias, col) })
}
