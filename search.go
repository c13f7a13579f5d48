package gopager

import (
	"strings"

	"github.com/samber/lo"
)

// SearchSpec describes a free-text search over a fixed set of columns. A bare
// column ("email") is qualified with the primary alias, a dotted one
// ("profile.city") is used verbatim.
type SearchSpec struct {
	Columns []string
	// Term overrides the request's search term when set.
	Term string
}

// searchTerm picks the term to search for. The result is trimmed.
func (s *SearchSpec) searchTerm(requestTerm string) string {
	if s != nil && strings.TrimSpace(s.Term) != "" {
		return strings.TrimSpace(s.Term)
	}

	return strings.TrimSpace(requestTerm)
}

// searchFilter builds "(c1 CONTAINS term) OR (c2 CONTAINS term) ..." over the
// search columns. The second return value is false when there is nothing to
// search for.
func searchFilter(alias string, spec *SearchSpec, requestTerm string) (DNF, bool) {
	if spec == nil || len(spec.Columns) == 0 {
		return nil, false
	}

	term := spec.searchTerm(requestTerm)
	if term == "" {
		return nil, false
	}

	dnf := lo.Map(lo.Uniq(spec.Columns), func(col string, _ int) Disjunct {
		return Disjunct{{
			Column:   qualify(alias, col),
			Operator: OperatorContains,
			Value:    term,
		}}
	})

	return dnf, true
}
