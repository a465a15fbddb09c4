package model

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Profile mirrors the `users` table.  Its ID equals the ID of the
// Account it belongs to; the row is created lazily on first sign-in.
type Profile struct {
	ID                   string    `json:"id"`
	Email                string    `json:"email"`
	FullName             string    `json:"full_name"`
	AvatarURL            string    `json:"avatar_url,omitempty"`
	Bio                  string    `json:"bio,omitempty"`
	Location             string    `json:"location,omitempty"`
	Interests            []string  `json:"user_interests"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	Language             string    `json:"language"`
	DarkMode             bool      `json:"dark_mode"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ProfilePatch is the editable subset of a profile.
type ProfilePatch struct {
	FullName             *string  `json:"full_name"`
	AvatarURL            *string  `json:"avatar_url"`
	Bio                  *string  `json:"bio"`
	Location             *string  `json:"location"`
	Interests            []string `json:"user_interests"`
	NotificationsEnabled *bool    `json:"notifications_enabled"`
	Language             *string  `json:"language"`
	DarkMode             *bool    `json:"dark_mode"`
}

func (p ProfilePatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FullName, validation.NilOrNotEmpty, validation.Length(1, 120)),
		validation.Field(&p.Bio, validation.Length(0, 1000)),
		validation.Field(&p.Language, validation.NilOrNotEmpty, validation.Length(2, 10)),
		validation.Field(&p.Interests, validation.Length(0, 50)),
	)
}

// Identity is what the auth layer knows about a signed-in user.  It seeds
// the default profile.
type Identity struct {
	ID        string
	Email     string
	FullName  string
	AvatarURL string
}

// DefaultProfile builds the profile inserted on first sign-in.  The display
// name falls back to the local part of the email, then to "User".
func DefaultProfile(id Identity) Profile {
	name := strings.TrimSpace(id.FullName)
	if name == "" {
		if at := strings.Index(id.Email, "@"); at > 0 {
			name = id.Email[:at]
		}
	}
	if name == "" {
		name = "User"
	}
	return Profile{
		ID:                   id.ID,
		Email:                id.Email,
		FullName:             name,
		AvatarURL:            id.AvatarURL,
		Interests:            []string{},
		NotificationsEnabled: true,
		Language:             "en",
	}
}

// UserStats summarizes a user's activity for the profile screen.
type UserStats struct {
	EventsCreated   int `json:"events_created"`
	MeetupsCreated  int `json:"meetups_created"`
	TotalCreated    int `json:"total_created"`
	EventsAttending int `json:"events_attending"`
	Followers       int `json:"followers"`
	Following       int `json:"following"`
}

// Account is an authentication identity.  Only the bcrypt hash of the
// password is stored.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
