package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/evanto-api/internal/calendar"
	"github.com/iliyamo/evanto-api/internal/feed"
	"github.com/iliyamo/evanto-api/internal/filter"
	"github.com/iliyamo/evanto-api/internal/middleware"
	"github.com/iliyamo/evanto-api/internal/model"
	"github.com/iliyamo/evanto-api/internal/service"
)

// maxAccumulatedPages bounds ?pages= on the feed.
const maxAccumulatedPages = 10

// ItemHandler serves the feed, the per-kind lists and item CRUD.
type ItemHandler struct {
	Items *service.ItemService
	Now   func() time.Time
}

func NewItemHandler(items *service.ItemService) *ItemHandler {
	return &ItemHandler{Items: items, Now: time.Now}
}

// Feed returns one merged page, or with ?pages=N the first N pages
// flattened the way an infinite list holds them.
func (h *ItemHandler) Feed(c echo.Context) error {
	q := feed.Query{
		Page:      queryInt(c, "page", 0),
		PageSize:  queryInt(c, "page_size", feed.DefaultPageSize),
		SortBy:    c.QueryParam("sort_by"),
		SortOrder: c.QueryParam("sort_order"),
	}
	if pages := queryInt(c, "pages", 0); pages > 0 {
		if pages > maxAccumulatedPages {
			pages = maxAccumulatedPages
		}
		items, hasNext, err := h.Items.Accumulate(c.Request().Context(), q, pages)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"items": items, "pages": pages, "has_next": hasNext})
	}
	p, err := h.Items.Feed(c.Request().Context(), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Search applies the filter panel to every active item.  Date buckets use
// the caller's time zone from ?tz= (IANA name), UTC otherwise.
func (h *ItemHandler) Search(c echo.Context) error {
	st := filter.ParseState(c.QueryParams())
	now := h.Now().UTC()
	if tz := c.QueryParam("tz"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return badRequest(c, "unknown time zone")
		}
		now = now.In(loc)
	}
	items, err := h.Items.Search(c.Request().Context(), st, now)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":             items,
		"count":             len(items),
		"has_active_filter": filter.HasActive(st),
	})
}

// List returns the active items of one kind.
func (h *ItemHandler) List(kind model.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		items, err := h.Items.List(c.Request().Context(), kind)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"items": items})
	}
}

func (h *ItemHandler) Get(c echo.Context) error {
	kind, ok := kindParam(c)
	if !ok {
		return badRequest(c, "unknown item kind")
	}
	it, err := h.Items.Get(c.Request().Context(), kind, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, it)
}

func (h *ItemHandler) Availability(c echo.Context) error {
	kind, ok := kindParam(c)
	if !ok {
		return badRequest(c, "unknown item kind")
	}
	av, err := h.Items.Availability(c.Request().Context(), kind, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, av)
}

// Calendar serves the item as an .ics attachment.
func (h *ItemHandler) Calendar(c echo.Context) error {
	kind, ok := kindParam(c)
	if !ok {
		return badRequest(c, "unknown item kind")
	}
	it, err := h.Items.Get(c.Request().Context(), kind, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	body, err := calendar.Build(calendar.EntryFor(it), h.Now())
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="`+calendar.Filename(it.Title)+`"`)
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

// Create stores a new item owned by the caller.
func (h *ItemHandler) Create(c echo.Context) error {
	kind, ok := kindParam(c)
	if !ok {
		return badRequest(c, "unknown item kind")
	}
	var it model.Item
	if err := c.Bind(&it); err != nil {
		return badRequest(c, "invalid body")
	}
	it.ID = ""
	it.Kind = kind
	it.OwnerID = middleware.UserID(c)
	it.Status = model.StatusActive
	if err := h.Items.Create(c.Request().Context(), &it); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, it)
}

// Update patches an item the caller owns.
func (h *ItemHandler) Update(c echo.Context) error {
	kind, ok := kindParam(c)
	if !ok {
		return badRequest(c, "unknown item kind")
	}
	var p model.ItemPatch
	if err := c.Bind(&p); err != nil {
		return badRequest(c, "invalid body")
	}
	it, err := h.Items.Update(c.Request().Context(), kind, c.Param("id"), middleware.UserID(c), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, it)
}

// Cancel soft-deletes an item the caller owns.
func (h *ItemHandler) Cancel(c echo.Context) error {
	kind, ok := kindParam(c)
	if !ok {
		return badRequest(c, "unknown item kind")
	}
	if err := h.Items.Cancel(c.Request().Context(), kind, c.Param("id"), middleware.UserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Categories lists the categories the filter panel offers.
func Categories(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"items": filter.Categories})
}

func kindParam(c echo.Context) (model.Kind, bool) {
	return model.ParseKind(c.Param("kind"))
}

func queryInt(c echo.Context, name string, def int) int {
	if n, err := strconv.Atoi(c.QueryParam(name)); err == nil {
		return n
	}
	return def
}
