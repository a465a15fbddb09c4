package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/evanto-api/internal/model"
)

// PaymentRepo stores payment method metadata.  At most one row per user has
// is_default set; SetDefault maintains that inside a transaction.
type PaymentRepo struct{ db *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = "id, user_id, type, card_type, last_four_digits, expiry_month, expiry_year, is_default, created_at, updated_at"

func scanPayment(s rowScanner) (model.PaymentMethod, error) {
	var p model.PaymentMethod
	err := s.Scan(&p.ID, &p.UserID, &p.Type, &p.CardType, &p.LastFourDigits,
		&p.ExpiryMonth, &p.ExpiryYear, &p.IsDefault, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListByUser returns the default method first, then the newest.
func (r *PaymentRepo) ListByUser(ctx context.Context, userID string) ([]model.PaymentMethod, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+paymentColumns+" FROM payment_methods WHERE user_id = ? ORDER BY is_default DESC, created_at DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.PaymentMethod, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Count returns how many methods a user has stored.
func (r *PaymentRepo) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM payment_methods WHERE user_id = ?", userID).Scan(&n)
	return n, err
}

// Create validates and inserts p, filling ID and timestamps.  Inserting a
// default method clears the flag on the user's other methods first.
func (r *PaymentRepo) Create(ctx context.Context, p *model.PaymentMethod) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.ID = uuid.NewString()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if p.IsDefault {
		if _, err := tx.ExecContext(ctx,
			"UPDATE payment_methods SET is_default = FALSE WHERE user_id = ?", p.UserID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO payment_methods ("+paymentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.UserID, p.Type, p.CardType, p.LastFourDigits, p.ExpiryMonth, p.ExpiryYear,
		p.IsDefault, p.CreatedAt, p.UpdatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// GetByID loads a method owned by userID.
func (r *PaymentRepo) GetByID(ctx context.Context, id, userID string) (model.PaymentMethod, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payment_methods WHERE id = ? AND user_id = ? LIMIT 1", id, userID))
	if err != nil {
		return model.PaymentMethod{}, notFound(err)
	}
	return p, nil
}

// Update applies a partial update.  Setting IsDefault to true is routed
// through SetDefault.
func (r *PaymentRepo) Update(ctx context.Context, id, userID string, patch model.PaymentPatch) (model.PaymentMethod, error) {
	if err := patch.Validate(); err != nil {
		return model.PaymentMethod{}, err
	}
	cur, err := r.GetByID(ctx, id, userID)
	if err != nil {
		return model.PaymentMethod{}, err
	}
	if patch.CardType != nil {
		cur.CardType = *patch.CardType
	}
	if patch.ExpiryMonth != nil {
		cur.ExpiryMonth = *patch.ExpiryMonth
	}
	if patch.ExpiryYear != nil {
		cur.ExpiryYear = *patch.ExpiryYear
	}
	cur.UpdatedAt = time.Now().UTC()
	if _, err := r.db.ExecContext(ctx,
		"UPDATE payment_methods SET card_type = ?, expiry_month = ?, expiry_year = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		cur.CardType, cur.ExpiryMonth, cur.ExpiryYear, cur.UpdatedAt, id, userID); err != nil {
		return model.PaymentMethod{}, err
	}
	if patch.IsDefault != nil && *patch.IsDefault && !cur.IsDefault {
		if err := r.SetDefault(ctx, id, userID); err != nil {
			return model.PaymentMethod{}, err
		}
		cur.IsDefault = true
	}
	return cur, nil
}

// Delete hard-deletes a method owned by userID.
func (r *PaymentRepo) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM payment_methods WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDefault clears is_default on every method of the user and then sets it
// on id, both in one transaction.
func (r *PaymentRepo) SetDefault(ctx context.Context, id, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		"UPDATE payment_methods SET is_default = FALSE, updated_at = ? WHERE user_id = ?", now, userID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE payment_methods SET is_default = TRUE, updated_at = ? WHERE id = ? AND user_id = ?", now, id, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
