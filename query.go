package gopager

import "context"

// Query is an immutable query builder over one primary collection. Every
// builder method returns a new Query and leaves the receiver untouched.
// Implementations translate the calls into their own query language; see the
// gormq package for the gorm-backed one.
type Query interface {
	// Alias is the name the primary collection is referred to by.
	Alias() string
	// Key describes the primary key of the primary collection.
	Key() KeyDescriptor

	// Where restricts the dataset with cond, AND-ed with earlier filters.
	Where(cond DNF) Query
	// Join left-joins the named relation and selects its columns.
	Join(relation string) Query
	// Select restricts the projection to columns.
	Select(columns ...string) Query
	// OrderBy replaces the ordering of the query.
	OrderBy(order OrderBy) Query
	// Window limits the dataset to limit rows starting at offset.
	Window(offset, limit int) Query
	// Clone returns the query with filters and joins kept, ordering and
	// window dropped.
	Clone() Query

	// Find loads the entities of the query into dest, a pointer to a slice.
	Find(ctx context.Context, dest any) error
	// FindRawAndEntities loads the raw rows of the query and the entities
	// they make up into dest. Raw rows expose the primary key under
	// Key().RawColumn(Alias()).
	FindRawAndEntities(ctx context.Context, dest any) ([]RawRow, error)
	// CountDistinct counts distinct primary keys of the query.
	CountDistinct(ctx context.Context) (int64, error)
}

// Collection opens queries over a primary collection.
type Collection interface {
	Open(alias string) (Query, error)
	// DefaultAlias is used when Options.Alias is empty.
	DefaultAlias() string
}

// Options describe the dataset to paginate. Either Query or Collection must
// be set; a prebuilt Query takes precedence and is used as-is.
type Options struct {
	Collection Collection
	Query      Query

	// Alias, Where, Relations and Select only apply to Collection.
	Alias     string
	Where     DNF
	Relations []string
	Select    []string

	Search *SearchSpec
	// MaxLimit overrides the pager's maximum page size when positive.
	MaxLimit int
}

// MergeOptions describe a paginated dataset whose raw columns MergeKeys are
// merged onto its entities.
type MergeOptions struct {
	Options
	MergeKeys []string
}
