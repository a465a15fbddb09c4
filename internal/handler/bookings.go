package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/evanto-api/internal/middleware"
	"github.com/iliyamo/evanto-api/internal/model"
	"github.com/iliyamo/evanto-api/internal/service"
)

type BookingHandler struct {
	Bookings *service.BookingService
}

func NewBookingHandler(b *service.BookingService) *BookingHandler {
	return &BookingHandler{Bookings: b}
}

type bookingReq struct {
	EventID       string       `json:"event_id"`
	Status        string       `json:"status"`
	SelectedSeats []model.Seat `json:"selected_seats"`
}

type statusReq struct {
	Status string `json:"status"`
}

// Create books seats for the caller.  Capacity failures come back as 409.
func (h *BookingHandler) Create(c echo.Context) error {
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	b := model.Booking{
		EventID:       req.EventID,
		UserID:        middleware.UserID(c),
		Status:        req.Status,
		SelectedSeats: req.SelectedSeats,
	}
	if err := h.Bookings.Create(c.Request().Context(), &b); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) List(c echo.Context) error {
	out, err := h.Bookings.ListByUser(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if !model.ValidBookingStatus(req.Status) {
		return badRequest(c, "status must be pending, confirmed or cancelled")
	}
	b, err := h.Bookings.UpdateStatus(c.Request().Context(), c.Param("id"), middleware.UserID(c), req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}
