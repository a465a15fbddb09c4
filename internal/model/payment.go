package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// PaymentMethod stores card metadata only; no card numbers are kept beyond
// the last four digits.  At most one method per user has IsDefault set.
type PaymentMethod struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Type           string    `json:"type"`
	CardType       string    `json:"card_type"`
	LastFourDigits string    `json:"last_four_digits"`
	ExpiryMonth    int       `json:"expiry_month"`
	ExpiryYear     int       `json:"expiry_year"`
	IsDefault      bool      `json:"is_default"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (p PaymentMethod) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.UserID, validation.Required),
		validation.Field(&p.Type, validation.Required, validation.Length(1, 30)),
		validation.Field(&p.CardType, validation.Required, validation.Length(1, 30)),
		validation.Field(&p.LastFourDigits, validation.Required, validation.Length(4, 4), validation.By(digitsOnly)),
		validation.Field(&p.ExpiryMonth, validation.Required, validation.Min(1), validation.Max(12)),
		validation.Field(&p.ExpiryYear, validation.Required, validation.Min(2000), validation.Max(2100)),
	)
}

// PaymentPatch is the editable subset of a payment method.
type PaymentPatch struct {
	CardType    *string `json:"card_type"`
	ExpiryMonth *int    `json:"expiry_month"`
	ExpiryYear  *int    `json:"expiry_year"`
	IsDefault   *bool   `json:"is_default"`
}

func (p PaymentPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.CardType, validation.NilOrNotEmpty, validation.Length(1, 30)),
		validation.Field(&p.ExpiryMonth, validation.Min(1), validation.Max(12)),
		validation.Field(&p.ExpiryYear, validation.Min(2000), validation.Max(2100)),
	)
}

func digitsOnly(value interface{}) error {
	s, _ := value.(string)
	for _, r := range s {
		if r < '0' || r > '9' {
			return validation.NewError("validation_digits", "must contain digits only")
		}
	}
	return nil
}
