package service

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/evanto-api/internal/cache"
	"github.com/iliyamo/evanto-api/internal/model"
	"github.com/iliyamo/evanto-api/internal/realtime"
	"github.com/iliyamo/evanto-api/internal/repository"
)

type ProfileService struct {
	notifier
	users    *repository.UserRepo
	items    *repository.ItemRepo
	bookings *repository.BookingRepo
}

func NewProfileService(users *repository.UserRepo, items *repository.ItemRepo, bookings *repository.BookingRepo, inv Invalidator, logger echo.Logger) *ProfileService {
	return &ProfileService{
		notifier: notifier{inv: inv, logger: logger},
		users:    users,
		items:    items,
		bookings: bookings,
	}
}

// Ensure returns the profile of a signed-in identity, creating the default
// one on first sign-in.  When the insert loses to an existing row with the
// same email, that row is returned instead.
func (s *ProfileService) Ensure(ctx context.Context, id model.Identity) (model.Profile, error) {
	p, err := s.users.GetByID(ctx, id.ID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.Profile{}, err
	}

	p = model.DefaultProfile(id)
	err = s.users.Create(ctx, &p)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, repository.ErrEmailExists):
		return s.users.GetByEmail(ctx, id.Email)
	}
	return model.Profile{}, err
}

func (s *ProfileService) Get(ctx context.Context, id string) (model.Profile, error) {
	var p model.Profile
	err := ReadRetry(ctx, func(ctx context.Context) (err error) {
		p, err = s.users.GetByID(ctx, id)
		return err
	})
	return p, err
}

func (s *ProfileService) Update(ctx context.Context, id string, patch model.ProfilePatch) (model.Profile, error) {
	p, err := s.users.Update(ctx, id, patch)
	if err != nil {
		return model.Profile{}, err
	}
	s.changed(ctx, "users", realtime.OpUpdate, id, cache.UserProfile)
	return p, nil
}

// Stats counts what a user created and is attending.  Followers and
// following are not tracked and stay zero.
func (s *ProfileService) Stats(ctx context.Context, userID string) (model.UserStats, error) {
	var st model.UserStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.EventsCreated, err = s.items.CountByOwner(gctx, model.KindEvent, userID)
		return err
	})
	g.Go(func() (err error) {
		st.MeetupsCreated, err = s.items.CountByOwner(gctx, model.KindMeetup, userID)
		return err
	})
	g.Go(func() (err error) {
		st.EventsAttending, err = s.bookings.CountActiveByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.UserStats{}, err
	}
	st.TotalCreated = st.EventsCreated + st.MeetupsCreated
	return st, nil
}
