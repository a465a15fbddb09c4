package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/evanto-api/internal/geo"
)

type GeoHandler struct {
	Client *geo.Client
}

func NewGeoHandler(c *geo.Client) *GeoHandler { return &GeoHandler{Client: c} }

// Reverse resolves ?lat=&lng= to a city and region.  Lookup failures are
// reported in the body with 200 so the client can fall back to manual entry.
func (h *GeoHandler) Reverse(c echo.Context) error {
	lat, errLat := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.QueryParam("lng"), 64)
	if errLat != nil || errLng != nil {
		return c.JSON(http.StatusOK, echo.Map{"error": "lat and lng are required"})
	}
	p, err := h.Client.Reverse(c.Request().Context(), lat, lng)
	if err != nil {
		c.Logger().Warnf("reverse geocode %f,%f: %v", lat, lng, err)
		return c.JSON(http.StatusOK, echo.Map{"error": "reverse geocoding failed"})
	}
	return c.JSON(http.StatusOK, p)
}
