package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/evanto-api/internal/model"
)

// UserRepo reads and writes profile rows in the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// ErrEmailExists is returned by Create when another profile owns the email.
var ErrEmailExists = fmt.Errorf("email already exists: %w", ErrConflict)

const profileColumns = "id, email, full_name, COALESCE(avatar_url, ''), COALESCE(bio, ''), COALESCE(location, ''), " +
	"user_interests, notifications_enabled, language, dark_mode, created_at, updated_at"

func scanProfile(s rowScanner) (model.Profile, error) {
	var (
		p         model.Profile
		interests []byte
	)
	err := s.Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.Bio, &p.Location,
		&interests, &p.NotificationsEnabled, &p.Language, &p.DarkMode, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Profile{}, err
	}
	if len(interests) > 0 {
		if err := json.Unmarshal(interests, &p.Interests); err != nil {
			return model.Profile{}, fmt.Errorf("decode user_interests: %w", err)
		}
	}
	if p.Interests == nil {
		p.Interests = []string{}
	}
	return p, nil
}

// GetByID fetches a profile by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.Profile, error) {
	p, err := scanProfile(r.DB.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM users WHERE id = ? LIMIT 1", id))
	if err != nil {
		return model.Profile{}, notFound(err)
	}
	return p, nil
}

// GetByEmail fetches a profile by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	p, err := scanProfile(r.DB.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM users WHERE email = ? LIMIT 1", email))
	if err != nil {
		return model.Profile{}, notFound(err)
	}
	return p, nil
}

// Create inserts p and fills its timestamps.  A duplicate id or email
// yields ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, p *model.Profile) error {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Interests == nil {
		p.Interests = []string{}
	}
	interests, err := json.Marshal(p.Interests)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, full_name, avatar_url, bio, location, user_interests,
		 notifications_enabled, language, dark_mode, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Email, p.FullName, p.AvatarURL, p.Bio, p.Location,
		interests, p.NotificationsEnabled, p.Language, p.DarkMode, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// Update applies a partial profile update and returns the stored row.
func (r *UserRepo) Update(ctx context.Context, id string, patch model.ProfilePatch) (model.Profile, error) {
	if err := patch.Validate(); err != nil {
		return model.Profile{}, err
	}
	var (
		sets []string
		args []interface{}
	)
	set := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.FullName != nil {
		set("full_name", *patch.FullName)
	}
	if patch.AvatarURL != nil {
		set("avatar_url", *patch.AvatarURL)
	}
	if patch.Bio != nil {
		set("bio", *patch.Bio)
	}
	if patch.Location != nil {
		set("location", *patch.Location)
	}
	if patch.Interests != nil {
		interests, err := json.Marshal(patch.Interests)
		if err != nil {
			return model.Profile{}, err
		}
		set("user_interests", interests)
	}
	if patch.NotificationsEnabled != nil {
		set("notifications_enabled", *patch.NotificationsEnabled)
	}
	if patch.Language != nil {
		set("language", *patch.Language)
	}
	if patch.DarkMode != nil {
		set("dark_mode", *patch.DarkMode)
	}
	set("updated_at", time.Now().UTC())
	args = append(args, id)

	if _, err := r.DB.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
		return model.Profile{}, err
	}
	return r.GetByID(ctx, id)
}
