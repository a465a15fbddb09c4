package middleware

// identity.go holds the context keys JWTAuth writes and the accessors
// handlers and the rate limiter use to read them back.

import "github.com/labstack/echo/v4"

const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
)

// UserID returns the authenticated account ID, or "" for guests.
func UserID(c echo.Context) string {
	if v, ok := c.Get(ctxUserID).(string); ok {
		return v
	}
	return ""
}

// UserEmail returns the email claim of the access token, or "".
func UserEmail(c echo.Context) string {
	if v, ok := c.Get(ctxEmail).(string); ok {
		return v
	}
	return ""
}
