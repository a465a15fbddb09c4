// Package feed merges the events and meetups collections into one
// kind-tagged, globally sorted and paginated feed.
package feed

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/evanto-api/internal/model"
)

const (
	SortStartDate = "start_date"
	SortCreatedAt = "created_at"

	OrderAsc  = "asc"
	OrderDesc = "desc"

	DefaultPageSize = 20
	MaxPageSize     = 100

	// MaxPage keeps Page*PageSize inside MySQL's OFFSET range.
	MaxPage = math.MaxInt32 / MaxPageSize
)

// Query selects one feed page.  Page is zero-based.
type Query struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Normalize fills defaults and clamps out-of-range values.
func (q Query) Normalize() Query {
	if q.Page < 0 {
		q.Page = 0
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	switch strings.ToLower(q.SortBy) {
	case SortCreatedAt:
		q.SortBy = SortCreatedAt
	default:
		q.SortBy = SortStartDate
	}
	switch strings.ToLower(q.SortOrder) {
	case OrderDesc:
		q.SortOrder = OrderDesc
	default:
		q.SortOrder = OrderAsc
	}
	return q
}

// Offset is the row offset applied to each source.
func (q Query) Offset() int { return q.Page * q.PageSize }

// Source returns one page of non-cancelled rows of a single kind, ordered by
// featured DESC then the query's sort field.  Returned items must carry Kind.
type Source interface {
	ListPage(ctx context.Context, kind model.Kind, q Query) ([]model.Item, error)
}

// Page is one merged page.  Items may hold up to 2*PageSize entries and are
// not deduplicated across sources.
type Page struct {
	Items    []model.Item `json:"items"`
	Page     int          `json:"page"`
	NextPage *int         `json:"next_page"`
	HasNext  bool         `json:"has_next"`
}

// Merger fetches both kinds concurrently and merges them.
type Merger struct {
	src Source
	// Retry wraps each source read; nil means a single attempt.
	Retry func(ctx context.Context, fn func(context.Context) error) error
}

func NewMerger(src Source) *Merger { return &Merger{src: src} }

// Page fetches page q.Page from both sources in parallel, then sorts the
// concatenation with the same comparator the sources used.
func (m *Merger) Page(ctx context.Context, q Query) (Page, error) {
	q = q.Normalize()

	var events, meetups []model.Item
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.read(gctx, func(ctx context.Context) (err error) {
			events, err = m.src.ListPage(ctx, model.KindEvent, q)
			return err
		})
	})
	g.Go(func() error {
		return m.read(gctx, func(ctx context.Context) (err error) {
			meetups, err = m.src.ListPage(ctx, model.KindMeetup, q)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return Page{}, err
	}

	merged := Merge(events, meetups, q.SortBy, q.SortOrder)
	p := Page{Items: merged, Page: q.Page}
	// The merged page stands in for "the last fetched page": a short
	// source next to a full one still reports more.
	if len(merged) >= q.PageSize {
		next := q.Page + 1
		p.NextPage = &next
		p.HasNext = true
	}
	return p, nil
}

// Accumulate returns the flattened contents of pages 0..pages-1, stopping at
// the first page that reports no successor.
func (m *Merger) Accumulate(ctx context.Context, q Query, pages int) ([]model.Item, bool, error) {
	q = q.Normalize()
	out := make([]model.Item, 0, q.PageSize*2)
	hasNext := false
	for i := 0; i < pages; i++ {
		q.Page = i
		p, err := m.Page(ctx, q)
		if err != nil {
			return nil, false, err
		}
		out = append(out, p.Items...)
		hasNext = p.HasNext
		if !p.HasNext {
			break
		}
	}
	return out, hasNext, nil
}

func (m *Merger) read(ctx context.Context, fn func(context.Context) error) error {
	if m.Retry == nil {
		return fn(ctx)
	}
	return m.Retry(ctx, fn)
}

// Merge concatenates a and b into a new slice and sorts it.  Inputs are
// left untouched.
func Merge(a, b []model.Item, sortBy, order string) []model.Item {
	out := make([]model.Item, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	Sort(out, sortBy, order)
	return out
}

// Sort orders items in place: featured first, then by the sort field as
// epoch milliseconds.  An item missing the field compares equal to anything,
// so its position is left to the stable sort.
func Sort(items []model.Item, sortBy, order string) {
	desc := strings.EqualFold(order, OrderDesc)
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Featured != b.Featured {
			return a.Featured
		}
		at, bt := sortField(a, sortBy), sortField(b, sortBy)
		if at.IsZero() || bt.IsZero() {
			return false
		}
		if desc {
			return at.UnixMilli() > bt.UnixMilli()
		}
		return at.UnixMilli() < bt.UnixMilli()
	})
}

func sortField(it model.Item, sortBy string) time.Time {
	if sortBy == SortCreatedAt {
		return it.CreatedAt
	}
	return it.StartDate
}
