package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/evanto-api/internal/feed"
	"github.com/iliyamo/evanto-api/internal/model"
)

// ItemRepo provides CRUD operations for the events and meetups tables.  The
// two tables share one column layout except that only events carry a
// ticket_price.  The kind passed to each method selects the table, and every
// row read back is tagged with that kind.  Items are never hard-deleted;
// Cancel flips their status instead.
type ItemRepo struct {
	db *sql.DB
}

// NewItemRepo returns a new ItemRepo bound to the given database.
func NewItemRepo(db *sql.DB) *ItemRepo { return &ItemRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions that
// span several repositories.
func (r *ItemRepo) DB() *sql.DB { return r.db }

func itemColumns(kind model.Kind) string {
	price := "NULL"
	if kind == model.KindEvent {
		price = "ticket_price"
	}
	return "id, title, COALESCE(description, ''), category, start_date, end_date, " +
		"COALESCE(location, ''), COALESCE(meetup_link, ''), COALESCE(image, ''), user_id, featured, status, " +
		"max_participants, member_count, member_avatars, " + price + ", created_at, updated_at"
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(s rowScanner, kind model.Kind) (model.Item, error) {
	var (
		it      model.Item
		end     sql.NullTime
		maxP    sql.NullInt64
		avatars []byte
		price   decimal.NullDecimal
	)
	err := s.Scan(
		&it.ID, &it.Title, &it.Description, &it.Category, &it.StartDate, &end,
		&it.Location, &it.MeetupLink, &it.Image, &it.OwnerID, &it.Featured, &it.Status,
		&maxP, &it.MemberCount, &avatars, &price, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return model.Item{}, err
	}
	it.Kind = kind
	if end.Valid {
		t := end.Time
		it.EndDate = &t
	}
	if maxP.Valid {
		n := int(maxP.Int64)
		it.MaxParticipants = &n
	}
	if price.Valid {
		p := price.Decimal
		it.TicketPrice = &p
	}
	if len(avatars) > 0 {
		if err := json.Unmarshal(avatars, &it.MemberAvatars); err != nil {
			return model.Item{}, fmt.Errorf("decode member_avatars: %w", err)
		}
	}
	if it.MemberAvatars == nil {
		it.MemberAvatars = []string{}
	}
	return it, nil
}

func scanItems(rows *sql.Rows, kind model.Kind) ([]model.Item, error) {
	defer rows.Close()
	out := make([]model.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ListPage returns one page of non-cancelled items ordered by featured first
// and then the query's sort field.  It satisfies feed.Source.
func (r *ItemRepo) ListPage(ctx context.Context, kind model.Kind, q feed.Query) ([]model.Item, error) {
	q = q.Normalize()
	query := fmt.Sprintf("SELECT %s FROM %s WHERE status <> ? ORDER BY featured DESC, %s %s LIMIT ? OFFSET ?",
		itemColumns(kind), kind.Table(), q.SortBy, strings.ToUpper(q.SortOrder))
	rows, err := r.db.QueryContext(ctx, query, model.StatusCancelled, q.PageSize, q.Offset())
	if err != nil {
		return nil, err
	}
	return scanItems(rows, kind)
}

// ListActive returns every non-cancelled item of a kind by start date.
func (r *ItemRepo) ListActive(ctx context.Context, kind model.Kind) ([]model.Item, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE status <> ? ORDER BY start_date ASC",
		itemColumns(kind), kind.Table())
	rows, err := r.db.QueryContext(ctx, query, model.StatusCancelled)
	if err != nil {
		return nil, err
	}
	return scanItems(rows, kind)
}

// ListByOwner returns the items an organizer created, cancelled ones included.
func (r *ItemRepo) ListByOwner(ctx context.Context, kind model.Kind, ownerID string) ([]model.Item, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE user_id = ? ORDER BY start_date ASC",
		itemColumns(kind), kind.Table())
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	return scanItems(rows, kind)
}

// GetByID loads one item regardless of its status, so a direct link to a
// cancelled item still resolves.
func (r *ItemRepo) GetByID(ctx context.Context, kind model.Kind, id string) (model.Item, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? LIMIT 1", itemColumns(kind), kind.Table())
	it, err := scanItem(r.db.QueryRowContext(ctx, query, id), kind)
	if err != nil {
		return model.Item{}, notFound(err)
	}
	return it, nil
}

// Create validates and inserts it, filling ID, Status and timestamps.
func (r *ItemRepo) Create(ctx context.Context, it *model.Item) error {
	if it.Status == "" {
		it.Status = model.StatusActive
	}
	if err := it.Validate(); err != nil {
		return err
	}
	if it.MemberAvatars == nil {
		it.MemberAvatars = []string{}
	}
	avatars, err := json.Marshal(it.MemberAvatars)
	if err != nil {
		return err
	}
	it.ID = uuid.NewString()
	now := time.Now().UTC()
	it.CreatedAt, it.UpdatedAt = now, now

	cols := []string{"id", "title", "description", "category", "start_date", "end_date", "location",
		"meetup_link", "image", "user_id", "featured", "status", "max_participants", "member_count",
		"member_avatars", "created_at", "updated_at"}
	args := []interface{}{it.ID, it.Title, it.Description, it.Category, it.StartDate.UTC(), it.EndDate, it.Location,
		it.MeetupLink, it.Image, it.OwnerID, it.Featured, it.Status, it.MaxParticipants, it.MemberCount,
		avatars, it.CreatedAt, it.UpdatedAt}
	if it.Kind == model.KindEvent {
		cols = append(cols, "ticket_price")
		args = append(args, it.TicketPrice)
	} else {
		it.TicketPrice = nil
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		it.Kind.Table(), strings.Join(cols, ", "), placeholders(len(cols)))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// Update applies a partial update on behalf of ownerID and returns the
// stored row.  ErrForbidden is returned when ownerID did not create the item.
func (r *ItemRepo) Update(ctx context.Context, kind model.Kind, id, ownerID string, p model.ItemPatch) (model.Item, error) {
	if err := p.Validate(); err != nil {
		return model.Item{}, err
	}
	if err := r.checkOwner(ctx, kind, id, ownerID); err != nil {
		return model.Item{}, err
	}
	if p.Empty() {
		return r.GetByID(ctx, kind, id)
	}

	var (
		sets []string
		args []interface{}
	)
	set := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Title != nil {
		set("title", *p.Title)
	}
	if p.Description != nil {
		set("description", *p.Description)
	}
	if p.Category != nil {
		set("category", *p.Category)
	}
	if p.StartDate != nil {
		set("start_date", p.StartDate.UTC())
	}
	if p.EndDate != nil {
		set("end_date", p.EndDate.UTC())
	}
	if p.Location != nil {
		set("location", *p.Location)
	}
	if p.MeetupLink != nil {
		set("meetup_link", *p.MeetupLink)
	}
	if p.Image != nil {
		set("image", *p.Image)
	}
	if p.Featured != nil {
		set("featured", *p.Featured)
	}
	if p.Status != nil {
		set("status", *p.Status)
	}
	if p.MaxParticipants != nil {
		set("max_participants", *p.MaxParticipants)
	}
	if p.MemberCount != nil {
		set("member_count", *p.MemberCount)
	}
	if p.MemberAvatars != nil {
		avatars, err := json.Marshal(p.MemberAvatars)
		if err != nil {
			return model.Item{}, err
		}
		set("member_avatars", avatars)
	}
	if p.TicketPrice != nil && kind == model.KindEvent {
		set("ticket_price", *p.TicketPrice)
	}
	set("updated_at", time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", kind.Table(), strings.Join(sets, ", "))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return model.Item{}, err
	}
	return r.GetByID(ctx, kind, id)
}

// Cancel soft-deletes an item by setting its status to cancelled.
func (r *ItemRepo) Cancel(ctx context.Context, kind model.Kind, id, ownerID string) error {
	if err := r.checkOwner(ctx, kind, id, ownerID); err != nil {
		return err
	}
	query := fmt.Sprintf("UPDATE %s SET status = ?, updated_at = ? WHERE id = ?", kind.Table())
	_, err := r.db.ExecContext(ctx, query, model.StatusCancelled, time.Now().UTC(), id)
	return err
}

// CountByOwner counts every item of a kind created by ownerID.
func (r *ItemRepo) CountByOwner(ctx context.Context, kind model.Kind, ownerID string) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE user_id = ?", kind.Table())
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&n)
	return n, err
}

// LockCapacityTx locks the event row for the rest of tx and returns its
// max_participants.  Concurrent bookings for the same event serialize here.
func (r *ItemRepo) LockCapacityTx(ctx context.Context, tx *sql.Tx, eventID string) (*int, error) {
	var maxP sql.NullInt64
	err := tx.QueryRowContext(ctx,
		"SELECT max_participants FROM events WHERE id = ? FOR UPDATE", eventID).Scan(&maxP)
	if err != nil {
		return nil, notFound(err)
	}
	if !maxP.Valid {
		return nil, nil
	}
	n := int(maxP.Int64)
	return &n, nil
}

func (r *ItemRepo) checkOwner(ctx context.Context, kind model.Kind, id, ownerID string) error {
	var actual string
	query := fmt.Sprintf("SELECT user_id FROM %s WHERE id = ?", kind.Table())
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&actual); err != nil {
		return notFound(err)
	}
	if actual != ownerID {
		return ErrForbidden
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
