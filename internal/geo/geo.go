// Package geo resolves coordinates to a city and region through a
// Nominatim-compatible reverse geocoder.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultBaseURL = "https://nominatim.openstreetmap.org"

var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Place is the user-facing result of a reverse lookup.  Region is the
// state or province when known, otherwise the country.
type Place struct {
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country,omitempty"`
}

type address struct {
	City    string `json:"city"`
	Town    string `json:"town"`
	Village string `json:"village"`
	State   string `json:"state"`
	Country string `json:"country"`
}

type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

func NewClient(baseURL, userAgent string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = "evanto-api"
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

// Reverse looks up lat/lng.  Nominatim requires an identifying User-Agent.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (Place, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Place{}, ErrInvalidCoordinates
	}
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return Place{}, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("reverse geocode: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("reverse geocode: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Address *address `json:"address"`
		Error   string   `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Place{}, fmt.Errorf("reverse geocode: decode: %w", err)
	}
	if body.Error != "" {
		return Place{}, fmt.Errorf("reverse geocode: %s", body.Error)
	}
	if body.Address == nil {
		return Place{}, errors.New("reverse geocode: no address")
	}
	return toPlace(*body.Address), nil
}

func toPlace(a address) Place {
	return Place{
		City:    firstNonEmpty(a.City, a.Town, a.Village),
		Region:  firstNonEmpty(a.State, a.Country),
		Country: a.Country,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
