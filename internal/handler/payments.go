package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/evanto-api/internal/middleware"
	"github.com/iliyamo/evanto-api/internal/model"
	"github.com/iliyamo/evanto-api/internal/service"
)

type PaymentHandler struct {
	Payments *service.PaymentService
}

func NewPaymentHandler(p *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{Payments: p}
}

func (h *PaymentHandler) List(c echo.Context) error {
	out, err := h.Payments.List(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

func (h *PaymentHandler) Create(c echo.Context) error {
	var p model.PaymentMethod
	if err := c.Bind(&p); err != nil {
		return badRequest(c, "invalid body")
	}
	p.ID = ""
	p.UserID = middleware.UserID(c)
	if err := h.Payments.Create(c.Request().Context(), &p); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *PaymentHandler) Update(c echo.Context) error {
	var patch model.PaymentPatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := h.Payments.Update(c.Request().Context(), c.Param("id"), middleware.UserID(c), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PaymentHandler) Delete(c echo.Context) error {
	if err := h.Payments.Delete(c.Request().Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PaymentHandler) SetDefault(c echo.Context) error {
	if err := h.Payments.SetDefault(c.Request().Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
