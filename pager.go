package gopager

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config holds the pagination defaults of a service. It carries mapstructure
// tags so it can be decoded straight from a configuration file.
type Config struct {
	DefaultLimit int       `mapstructure:"default_limit"`
	MaxLimit     int       `mapstructure:"max_limit"`
	DefaultOrder Direction `mapstructure:"default_order"`
	// ConcurrentCount runs the total count alongside the page fetch.
	ConcurrentCount bool `mapstructure:"concurrent_count"`
}

func DefaultConfig() Config {
	return Config{
		DefaultLimit: DefaultLimit,
		MaxLimit:     MaxLimit,
		DefaultOrder: DefaultDirection,
	}
}

// Pager runs offset pagination over a Query. Configure it with the With*
// methods before sharing it; afterwards it is safe for concurrent use.
type Pager struct {
	cfg    Config
	logger *zap.Logger
}

// NewPager returns a pager running with cfg. Zero or malformed fields of cfg,
// such as a lowercase or empty DefaultOrder, fall back to DefaultConfig.
func NewPager(cfg Config) *Pager {
	cfg.DefaultOrder = ParseDirection(string(cfg.DefaultOrder), DefaultDirection)
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxLimit
	}

	return &Pager{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
}

// WithMaxLimit sets the maximum page size.
func (p *Pager) WithMaxLimit(maxLimit int) *Pager {
	if p == nil {
		p = NewPager(DefaultConfig())
	}

	p.cfg.MaxLimit = maxLimit

	return p
}

// WithDefaultLimit sets the page size used when a request does not name one.
func (p *Pager) WithDefaultLimit(limit int) *Pager {
	if p == nil {
		p = NewPager(DefaultConfig())
	}

	p.cfg.DefaultLimit = limit

	return p
}

// WithConcurrentCount counts the total alongside the page fetch. The first
// failure cancels the other query.
func (p *Pager) WithConcurrentCount() *Pager {
	if p == nil {
		p = NewPager(DefaultConfig())
	}

	p.cfg.ConcurrentCount = true

	return p
}

func (p *Pager) WithLogger(logger *zap.Logger) *Pager {
	if p == nil {
		p = NewPager(DefaultConfig())
	}

	p.logger = lo.Ternary(logger != nil, logger, zap.NewNop())

	return p
}

// GetConfig returns the configuration the pager runs with.
func (p *Pager) GetConfig() Config {
	if p == nil {
		return DefaultConfig()
	}

	return p.cfg
}

func (p *Pager) orDefault() *Pager {
	if p == nil {
		return NewPager(DefaultConfig())
	}

	return p
}

// Paginate returns page req.Page of the dataset described by opts, ordered by
// created_at. The total count covers the filtered dataset, not the page.
func Paginate[T any](ctx context.Context, p *Pager, req Request, rc RequestContext, opts Options) (*Result[T], error) {
	p = p.orDefault()

	pl, err := p.plan(req, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot paginate: %w", err)
	}

	var items []T
	total, err := p.run(ctx, pl, func(ctx context.Context) error {
		return pl.page.Find(ctx, &items)
	})
	if err != nil {
		return nil, fmt.Errorf("cannot paginate: %w", err)
	}

	return newResult(items, pl.bounds, total, rc), nil
}

// PaginateWithRawMerge works like Paginate but also reads the raw rows of the
// page and merges their opts.MergeKeys columns onto the entities.
func PaginateWithRawMerge[T any](ctx context.Context, p *Pager, req Request, rc RequestContext, opts MergeOptions) (*Result[Merged[T]], error) {
	p = p.orDefault()

	pl, err := p.plan(req, opts.Options)
	if err != nil {
		return nil, fmt.Errorf("cannot paginate: %w", err)
	}

	var (
		entities []T
		raw      []RawRow
	)
	total, err := p.run(ctx, pl, func(ctx context.Context) error {
		var err error
		raw, err = pl.page.FindRawAndEntities(ctx, &entities)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("cannot paginate: %w", err)
	}

	merged, err := MergeRaw(entities, raw, pl.page.Alias(), pl.page.Key(), opts.MergeKeys)
	if err != nil {
		return nil, fmt.Errorf("cannot paginate: %w", err)
	}

	return newResult(merged, pl.bounds, total, rc), nil
}

type plan struct {
	bounds Bounds
	// filtered is the composed and searched query, page adds ordering and
	// window on top of it.
	filtered Query
	page     Query
}

func (p *Pager) plan(req Request, opts Options) (*plan, error) {
	b := p.bounds(req, opts)

	q, err := compose(opts)
	if err != nil {
		return nil, err
	}

	alias := q.Alias()
	if search, ok := searchFilter(alias, opts.Search, req.Search); ok {
		if err = search.Validate(); err != nil {
			return nil, err
		}

		q = q.Where(search)
	}

	order := createdAtOrder(alias, ParseDirection(string(req.Order), p.cfg.DefaultOrder))
	if err = order.Validate(); err != nil {
		return nil, err
	}

	p.logger.Debug("pagination planned",
		zap.String("alias", alias),
		zap.Strings("relations", opts.Relations),
		zap.Int("limit", b.Limit),
		zap.Int("page", b.Page),
		zap.String("order", order.ToSQL()),
	)

	return &plan{
		bounds:   b,
		filtered: q,
		page:     q.OrderBy(order).Window(b.Offset, b.Limit),
	}, nil
}

func (p *Pager) bounds(req Request, opts Options) Bounds {
	limit := req.Limit
	if limit == 0 && p.cfg.DefaultLimit > 0 {
		limit = p.cfg.DefaultLimit
	}

	maxLimit := lo.Ternary(opts.MaxLimit > 0, opts.MaxLimit, p.cfg.MaxLimit)
	if _, ok := IsNormalizedLimitMax(req.Limit, maxLimit); !ok && req.Limit != 0 {
		p.logger.Debug("page size clamped", zap.Int("requested", req.Limit), zap.Int("max", maxLimit))
	}

	return NewBounds(limit, req.Page, maxLimit)
}

// run fetches the page and counts the filtered dataset, one after the other
// or concurrently depending on the configuration.
func (p *Pager) run(ctx context.Context, pl *plan, fetch func(ctx context.Context) error) (int64, error) {
	var (
		total   int64
		started = time.Now()
	)

	count := func(ctx context.Context) error {
		var err error
		total, err = pl.filtered.Clone().CountDistinct(ctx)
		return err
	}

	if p.cfg.ConcurrentCount {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return fetch(gctx) })
		g.Go(func() error { return count(gctx) })

		if err := g.Wait(); err != nil {
			return 0, err
		}
	} else {
		if err := fetch(ctx); err != nil {
			return 0, err
		}

		if err := count(ctx); err != nil {
			return 0, err
		}
	}

	p.logger.Debug("page fetched",
		zap.String("alias", pl.page.Alias()),
		zap.Int64("total", total),
		zap.Duration("took", time.Since(started)),
	)

	return total, nil
}
