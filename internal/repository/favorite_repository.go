package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/evanto-api/internal/model"
)

// FavoriteRepo stores (user_id, item_id) pairs.  The pair is the primary key.
type FavoriteRepo struct{ db *sql.DB }

func NewFavoriteRepo(db *sql.DB) *FavoriteRepo { return &FavoriteRepo{db: db} }

// ListByUser returns a user's favorites, newest first.
func (r *FavoriteRepo) ListByUser(ctx context.Context, userID string) ([]model.Favorite, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT user_id, item_id, item_type, created_at FROM favorites WHERE user_id = ? ORDER BY created_at DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Favorite, 0)
	for rows.Next() {
		var f model.Favorite
		if err := rows.Scan(&f.UserID, &f.ItemID, &f.ItemType, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Exists reports whether userID has favorited itemID.
func (r *FavoriteRepo) Exists(ctx context.Context, userID, itemID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM favorites WHERE user_id = ? AND item_id = ?", userID, itemID).Scan(&n)
	return n > 0, err
}

// Add inserts a favorite.  Adding one that already exists succeeds.
func (r *FavoriteRepo) Add(ctx context.Context, f model.Favorite) error {
	if err := f.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO favorites (user_id, item_id, item_type, created_at) VALUES (?, ?, ?, ?)",
		f.UserID, f.ItemID, string(f.ItemType), time.Now().UTC())
	if err != nil && isDuplicate(err) {
		return nil
	}
	return err
}

// Delete removes a favorite; removing one that does not exist is not an error.
func (r *FavoriteRepo) Delete(ctx context.Context, userID, itemID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM favorites WHERE user_id = ? AND item_id = ?", userID, itemID)
	return err
}
