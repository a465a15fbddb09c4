package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Favorite is identified by (UserID, ItemID).  There is no update path: a
// favorite is either present or absent.
type Favorite struct {
	UserID    string    `json:"user_id"`
	ItemID    string    `json:"item_id"`
	ItemType  Kind      `json:"item_type"`
	CreatedAt time.Time `json:"created_at"`
}

func (f Favorite) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.UserID, validation.Required),
		validation.Field(&f.ItemID, validation.Required),
		validation.Field(&f.ItemType, validation.Required, validation.In(KindEvent, KindMeetup)),
	)
}
