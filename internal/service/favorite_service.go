package service

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/evanto-api/internal/cache"
	"github.com/iliyamo/evanto-api/internal/model"
	"github.com/iliyamo/evanto-api/internal/realtime"
	"github.com/iliyamo/evanto-api/internal/repository"
)

type FavoriteService struct {
	notifier
	favorites *repository.FavoriteRepo
}

func NewFavoriteService(favorites *repository.FavoriteRepo, inv Invalidator, logger echo.Logger) *FavoriteService {
	return &FavoriteService{notifier: notifier{inv: inv, logger: logger}, favorites: favorites}
}

func (s *FavoriteService) List(ctx context.Context, userID string) ([]model.Favorite, error) {
	var out []model.Favorite
	err := ReadRetry(ctx, func(ctx context.Context) (err error) {
		out, err = s.favorites.ListByUser(ctx, userID)
		return err
	})
	return out, err
}

// Add is idempotent: favoriting twice leaves one row.
func (s *FavoriteService) Add(ctx context.Context, userID, itemID string, kind model.Kind) error {
	if err := s.favorites.Add(ctx, model.Favorite{UserID: userID, ItemID: itemID, ItemType: kind}); err != nil {
		return err
	}
	s.changed(ctx, "favorites", realtime.OpInsert, itemID, cache.Favorites)
	return nil
}

func (s *FavoriteService) Remove(ctx context.Context, userID, itemID string) error {
	if err := s.favorites.Delete(ctx, userID, itemID); err != nil {
		return err
	}
	s.changed(ctx, "favorites", realtime.OpDelete, itemID, cache.Favorites)
	return nil
}

// Toggle flips membership and reports whether the item is now a favorite.
func (s *FavoriteService) Toggle(ctx context.Context, userID, itemID string, kind model.Kind) (bool, error) {
	exists, err := s.favorites.Exists(ctx, userID, itemID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, s.Remove(ctx, userID, itemID)
	}
	return true, s.Add(ctx, userID, itemID, kind)
}
