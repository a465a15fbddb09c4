package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/evanto-api/internal/middleware"
	"github.com/iliyamo/evanto-api/internal/model"
	"github.com/iliyamo/evanto-api/internal/service"
)

type FavoriteHandler struct {
	Favorites *service.FavoriteService
}

func NewFavoriteHandler(f *service.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{Favorites: f}
}

type toggleReq struct {
	ItemID   string     `json:"item_id"`
	ItemType model.Kind `json:"item_type"`
}

func (h *FavoriteHandler) List(c echo.Context) error {
	out, err := h.Favorites.List(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Toggle responds with the membership after the flip.
func (h *FavoriteHandler) Toggle(c echo.Context) error {
	var req toggleReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	on, err := h.Favorites.Toggle(c.Request().Context(), middleware.UserID(c), req.ItemID, req.ItemType)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item_id": req.ItemID, "favorited": on})
}

// Add favorites :item_id; ?type= selects the kind and defaults to event.
func (h *FavoriteHandler) Add(c echo.Context) error {
	kind := model.KindEvent
	if t := c.QueryParam("type"); t != "" {
		k, ok := model.ParseKind(t)
		if !ok {
			return badRequest(c, "unknown item kind")
		}
		kind = k
	}
	if err := h.Favorites.Add(c.Request().Context(), middleware.UserID(c), c.Param("item_id"), kind); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *FavoriteHandler) Remove(c echo.Context) error {
	if err := h.Favorites.Remove(c.Request().Context(), middleware.UserID(c), c.Param("item_id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
