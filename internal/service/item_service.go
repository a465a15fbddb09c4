package service

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/evanto-api/internal/availability"
	"github.com/iliyamo/evanto-api/internal/cache"
	"github.com/iliyamo/evanto-api/internal/feed"
	"github.com/iliyamo/evanto-api/internal/filter"
	"github.com/iliyamo/evanto-api/internal/metrics"
	"github.com/iliyamo/evanto-api/internal/model"
	"github.com/iliyamo/evanto-api/internal/realtime"
	"github.com/iliyamo/evanto-api/internal/repository"
)

type ItemService struct {
	notifier
	items  *repository.ItemRepo
	merger *feed.Merger
	calc   *availability.Calculator
}

func NewItemService(items *repository.ItemRepo, bookings *repository.BookingRepo, inv Invalidator, pub ChangePublisher, logger echo.Logger) *ItemService {
	m := feed.NewMerger(items)
	m.Retry = ReadRetry
	return &ItemService{
		notifier: notifier{inv: inv, pub: pub, logger: logger},
		items:    items,
		merger:   m,
		calc:     availability.NewCalculator(bookings),
	}
}

// Feed returns one merged page of events and meetups.
func (s *ItemService) Feed(ctx context.Context, q feed.Query) (feed.Page, error) {
	p, err := s.merger.Page(ctx, q)
	if err != nil {
		return feed.Page{}, err
	}
	metrics.TrackFeedPage(q.Normalize().SortBy)
	return p, nil
}

// Accumulate returns pages 0..pages-1 flattened, as an infinite list holds them.
func (s *ItemService) Accumulate(ctx context.Context, q feed.Query, pages int) ([]model.Item, bool, error) {
	return s.merger.Accumulate(ctx, q, pages)
}

// List returns every non-cancelled item of a kind, featured first.
func (s *ItemService) List(ctx context.Context, kind model.Kind) ([]model.Item, error) {
	var out []model.Item
	err := ReadRetry(ctx, func(ctx context.Context) (err error) {
		out, err = s.items.ListActive(ctx, kind)
		return err
	})
	return out, err
}

// Search loads all active items of both kinds, merges them by start date
// and applies the filter state relative to now.
func (s *ItemService) Search(ctx context.Context, st filter.State, now time.Time) ([]model.Item, error) {
	var events, meetups []model.Item
	g, gctx := errgroup.WithContext(ctx)
	if st.Kind != filter.KindMeetups {
		g.Go(func() (err error) {
			events, err = s.List(gctx, model.KindEvent)
			return err
		})
	}
	if st.Kind != filter.KindEvents {
		g.Go(func() (err error) {
			meetups, err = s.List(gctx, model.KindMeetup)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	merged := feed.Merge(events, meetups, feed.SortStartDate, feed.OrderAsc)
	return filter.Apply(merged, st, now), nil
}

// Get returns an item regardless of its status.
func (s *ItemService) Get(ctx context.Context, kind model.Kind, id string) (model.Item, error) {
	var it model.Item
	err := ReadRetry(ctx, func(ctx context.Context) (err error) {
		it, err = s.items.GetByID(ctx, kind, id)
		return err
	})
	return it, err
}

// Availability derives the remaining capacity of an item.
func (s *ItemService) Availability(ctx context.Context, kind model.Kind, id string) (availability.Availability, error) {
	it, err := s.Get(ctx, kind, id)
	if err != nil {
		return availability.Availability{}, err
	}
	var av availability.Availability
	err = ReadRetry(ctx, func(ctx context.Context) (err error) {
		av, err = s.calc.ForItem(ctx, it.ID, it.MaxParticipants)
		return err
	})
	return av, err
}

// Create stores a new item owned by it.OwnerID.
func (s *ItemService) Create(ctx context.Context, it *model.Item) error {
	if err := s.items.Create(ctx, it); err != nil {
		return err
	}
	s.changed(ctx, it.Kind.Table(), realtime.OpInsert, it.ID, itemResources(it.Kind)...)
	return nil
}

func (s *ItemService) Update(ctx context.Context, kind model.Kind, id, ownerID string, p model.ItemPatch) (model.Item, error) {
	it, err := s.items.Update(ctx, kind, id, ownerID, p)
	if err != nil {
		return model.Item{}, err
	}
	s.changed(ctx, kind.Table(), realtime.OpUpdate, id, itemResources(kind)...)
	return it, nil
}

// Cancel soft-deletes an item; it disappears from every list and feed.
func (s *ItemService) Cancel(ctx context.Context, kind model.Kind, id, ownerID string) error {
	if err := s.items.Cancel(ctx, kind, id, ownerID); err != nil {
		return err
	}
	s.changed(ctx, kind.Table(), realtime.OpUpdate, id, itemResources(kind)...)
	return nil
}

func itemResources(kind model.Kind) []string {
	list := cache.Events
	if kind == model.KindMeetup {
		list = cache.Meetups
	}
	return []string{list, cache.UnifiedItems, cache.UnifiedItem}
}
