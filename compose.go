package gopager

import (
	"fmt"

	"github.com/samber/lo"
)

// compose resolves the base query of opts: the prebuilt query as-is, or a
// query opened on the collection with filters, joins and projection applied.
func compose(opts Options) (Query, error) {
	if opts.Query != nil {
		return opts.Query, nil
	}

	if opts.Collection == nil {
		return nil, fmt.Errorf("%w: neither a query nor a collection is set", ErrConfiguration)
	}

	alias := lo.Ternary(opts.Alias != "", opts.Alias, opts.Collection.DefaultAlias())
	if err := validateColumn(alias); err != nil {
		return nil, err
	}

	where := opts.Where.Qualify(alias)
	if err := where.Validate(); err != nil {
		return nil, err
	}

	columns := qualifyAll(alias, opts.Select)
	for _, col := range columns {
		if err := validateColumn(col); err != nil {
			return nil, err
		}
	}

	q, err := opts.Collection.Open(alias)
	if err != nil {
		return nil, err
	}

	if !where.IsEmpty() {
		q = q.Where(where)
	}

	for _, relation := range lo.Uniq(opts.Relations) {
		q = q.Join(relation)
	}

	if len(columns) > 0 {
		q = q.Select(columns...)
	}

	return q, nil
}
