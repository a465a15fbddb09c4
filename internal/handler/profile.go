package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/evanto-api/internal/middleware"
	"github.com/iliyamo/evanto-api/internal/model"
	"github.com/iliyamo/evanto-api/internal/service"
)

type ProfileHandler struct {
	Profiles *service.ProfileService
}

func NewProfileHandler(p *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{Profiles: p}
}

// Me returns the caller's profile, creating it if this is the first call
// since the account was made.
func (h *ProfileHandler) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), sessionTimeout)
	defer cancel()

	p, err := h.Profiles.Ensure(ctx, model.Identity{ID: middleware.UserID(c), Email: middleware.UserEmail(c)})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProfileHandler) Update(c echo.Context) error {
	var patch model.ProfilePatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := h.Profiles.Update(c.Request().Context(), middleware.UserID(c), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProfileHandler) Stats(c echo.Context) error {
	st, err := h.Profiles.Stats(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}
