package gormq

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm/clause"

	"github.com/Alp4ka/gopager/v2"
)

const (
	dialectPostgres = "postgres"
	dialectMySQL    = "mysql"
)

var _likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// columnRef converts a column reference of the form "column" or
// "table.column" into a clause.Column so that it is quoted by the dialect.
// References that are already quoted are passed through as raw SQL.
func columnRef(col string) clause.Column {
	if strings.ContainsAny(col, "'`\"") {
		return clause.Column{Name: col, Raw: true}
	}

	table, name, qualified := strings.Cut(col, ".")
	switch {
	case !qualified:
		return clause.Column{Name: col}
	case strings.Contains(name, "."):
		return clause.Column{Name: col, Raw: true}
	default:
		return clause.Column{Table: table, Name: name}
	}
}

// conjunctExpression converts a conjunct of the form Operator(Column, Value)
// into a gorm expression "Column Operator ?".
//
// Example:
//
//	gopager.Conjunct{Column: "u.id", Operator: ">", Value: 123}
//
// Result for postgres:
//
//	"u"."id" > $1, [123]
func conjunctExpression(dialect string, c gopager.Conjunct) clause.Expression {
	col := columnRef(c.Column)

	switch {
	case c.Operator == gopager.OperatorContains:
		return containsExpression(dialect, col, fmt.Sprint(c.Value))
	case c.Operator == gopager.OperatorEq && c.Value == nil:
		return clause.Expr{SQL: "? IS NULL", Vars: []any{col}}
	}

	return clause.Expr{
		SQL:  fmt.Sprintf("? %s ?", c.Operator),
		Vars: []any{col, parseAnyValue(c.Value)},
	}
}

// containsExpression matches col against term case-insensitively. LIKE
// wildcards inside term are escaped, so the term is matched literally.
func containsExpression(dialect string, col clause.Column, term string) clause.Expression {
	pattern := "%" + _likeEscaper.Replace(term) + "%"

	switch dialect {
	case dialectPostgres:
		return clause.Expr{SQL: "? ILIKE ?", Vars: []any{col, pattern}}
	case dialectMySQL:
		return clause.Expr{SQL: "LOWER(?) LIKE LOWER(?)", Vars: []any{col, pattern}}
	default:
		return clause.Expr{SQL: `LOWER(?) LIKE LOWER(?) ESCAPE '\'`, Vars: []any{col, pattern}}
	}
}

func parseAnyValue(v any) any {
	// Try parsing a value as time.Time. If it succeeds, return time.Time.
	// Otherwise return the original value.
	fnParseBytesToTimeOrValue := func(vBytes []byte) any {
		dst := time.Time{}
		err := dst.UnmarshalText(vBytes)
		if err == nil {
			return dst
		}

		return v
	}

	switch vt := v.(type) {
	case string:
		return fnParseBytesToTimeOrValue([]byte(vt))
	case []byte:
		return fnParseBytesToTimeOrValue(vt)
	default:
		return v
	}
}

// disjunctExpression converts a disjunct (K1, K2, K3) into a gorm expression
// "K1 AND K2 AND K3" where each Ki is expanded via conjunctExpression.
func disjunctExpression(dialect string, d gopager.Disjunct) clause.Expression {
	andExpressions := make([]clause.Expression, 0, len(d))
	for _, conjunct := range d {
		andExpressions = append(andExpressions, conjunctExpression(dialect, conjunct))
	}

	if len(andExpressions) == 1 {
		return andExpressions[0]
	} else if len(andExpressions) > 1 {
		return clause.And(andExpressions...)
	}

	return nil
}

// dnfExpression converts a DNF into a clause.Expression. For each disjunct it
// calls disjunctExpression and joins disjuncts with OR. A single disjunct is
// returned unwrapped: gorm reads a one-element OR group as "OR <previous
// condition>".
func dnfExpression(dialect string, d gopager.DNF) clause.Expression {
	orExpressions := make([]clause.Expression, 0, len(d))

	for _, disjunct := range d {
		andExpressions := disjunctExpression(dialect, disjunct)
		if andExpressions == nil {
			continue
		}

		orExpressions = append(orExpressions, andExpressions)
	}

	if len(orExpressions) == 1 {
		return orExpressions[0]
	} else if len(orExpressions) > 1 {
		return clause.Or(orExpressions...)
	}

	return nil
}

// orderExpression renders an ordering with the NULLs placement the dialect
// understands. MySQL has no NULLS FIRST/LAST and sorts on "IS NULL" first.
func orderExpression(dialect string, o gopager.OrderBy) clause.OrderBy {
	col := columnRef(o.Column)

	var expr clause.Expr
	switch {
	case o.Nulls == gopager.NullsDefault:
		expr = clause.Expr{SQL: fmt.Sprintf("? %s", o.Direction), Vars: []any{col}}
	case dialect == dialectMySQL && o.Nulls == gopager.NullsLast:
		expr = clause.Expr{SQL: fmt.Sprintf("? IS NULL, ? %s", o.Direction), Vars: []any{col, col}}
	case dialect == dialectMySQL:
		expr = clause.Expr{SQL: fmt.Sprintf("? IS NOT NULL, ? %s", o.Direction), Vars: []any{col, col}}
	default:
		expr = clause.Expr{SQL: fmt.Sprintf("? %s NULLS %s", o.Direction, o.Nulls), Vars: []any{col}}
	}

	return clause.OrderBy{Expression: expr}
}
