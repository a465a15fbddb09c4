// Package filter applies user-selected predicates to a merged feed.
package filter

import (
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/evanto-api/internal/model"
)

type DateFilter string

const (
	DateUpcoming DateFilter = "Upcoming"
	DateAll      DateFilter = "All"
	DateToday    DateFilter = "Today"
	DateTomorrow DateFilter = "Tomorrow"
	DateThisWeek DateFilter = "This Week"
	DatePast     DateFilter = "Past"
)

type KindFilter string

const (
	KindAny     KindFilter = "Any"
	KindEvents  KindFilter = "Events"
	KindMeetups KindFilter = "Meetups"
)

// AllCategories disables category filtering.
const AllCategories = "All"

// Category is one entry of the category picker.
type Category struct {
	Name     string `json:"name"`
	IconName string `json:"iconName"`
}

var Categories = []Category{
	{"All", "apps"},
	{"Music", "music_note"},
	{"Sport", "sports_soccer"},
	{"Art", "brush"},
	{"Education", "school"},
	{"Tech", "computer"},
	{"Food", "restaurant"},
	{"Other", "more_horiz"},
}

var (
	defaultMinPrice = decimal.Zero
	defaultMaxPrice = decimal.NewFromInt(500)
)

// State holds every filter the feed screen exposes.  The price bounds are
// inclusive; a nil bound leaves that side open.
type State struct {
	Category string           `json:"categoryFilter"`
	Search   string           `json:"searchQuery"`
	Location string           `json:"locationFilter"`
	PriceMin *decimal.Decimal `json:"minPrice"`
	PriceMax *decimal.Decimal `json:"maxPrice"`
	Kind     KindFilter       `json:"eventType"`
	Date     DateFilter       `json:"dateFilter"`
}

// Default is the state a fresh feed screen starts with.
func Default() State {
	lo, hi := defaultMinPrice, defaultMaxPrice
	return State{
		Category: AllCategories,
		PriceMin: &lo,
		PriceMax: &hi,
		Kind:     KindAny,
		Date:     DateUpcoming,
	}
}

// HasActive reports whether s differs from Default.
func HasActive(s State) bool {
	return s.Category != AllCategories ||
		strings.TrimSpace(s.Search) != "" ||
		strings.TrimSpace(s.Location) != "" ||
		s.PriceMin == nil || !s.PriceMin.Equal(defaultMinPrice) ||
		s.PriceMax == nil || !s.PriceMax.Equal(defaultMaxPrice) ||
		s.Kind != KindAny ||
		s.Date != DateUpcoming
}

// ParseState reads a State from query parameters, starting from Default.
// Unknown or malformed values keep their defaults.
func ParseState(v url.Values) State {
	s := Default()
	if c := strings.TrimSpace(v.Get("category")); c != "" {
		s.Category = c
	}
	s.Search = v.Get("q")
	s.Location = v.Get("location")
	if p, err := decimal.NewFromString(v.Get("min_price")); err == nil {
		s.PriceMin = &p
	}
	if p, err := decimal.NewFromString(v.Get("max_price")); err == nil {
		s.PriceMax = &p
	}
	switch KindFilter(v.Get("type")) {
	case KindEvents, KindMeetups, KindAny:
		s.Kind = KindFilter(v.Get("type"))
	}
	switch d := DateFilter(v.Get("date")); d {
	case DateUpcoming, DateAll, DateToday, DateTomorrow, DateThisWeek, DatePast:
		s.Date = d
	}
	return s
}

// Apply returns the items that pass every predicate, in their original
// order.  Calendar buckets are computed in now's location.  The input slice
// is not modified.
func Apply(items []model.Item, s State, now time.Time) []model.Item {
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if Match(it, s, now) {
			out = append(out, it)
		}
	}
	return out
}

// Match evaluates the predicates in order and stops at the first failure.
func Match(it model.Item, s State, now time.Time) bool {
	if s.Date != "" && s.Date != DateAll {
		if it.StartDate.IsZero() || !inDateBucket(it.StartDate, s.Date, now) {
			return false
		}
	}
	if s.Category != "" && s.Category != AllCategories {
		if it.Category == "" || !strings.EqualFold(it.Category, s.Category) {
			return false
		}
	}
	if q := strings.ToLower(strings.TrimSpace(s.Search)); q != "" {
		if !strings.Contains(strings.ToLower(it.Title), q) && !strings.Contains(strings.ToLower(it.Description), q) {
			return false
		}
	}
	price := it.Price()
	if s.PriceMin != nil && price.LessThan(*s.PriceMin) {
		return false
	}
	if s.PriceMax != nil && price.GreaterThan(*s.PriceMax) {
		return false
	}
	switch s.Kind {
	case KindEvents:
		if it.Kind != model.KindEvent {
			return false
		}
	case KindMeetups:
		if it.Kind != model.KindMeetup {
			return false
		}
	}
	if loc := strings.ToLower(strings.TrimSpace(s.Location)); loc != "" {
		if !strings.Contains(strings.ToLower(it.Location), loc) {
			return false
		}
	}
	return true
}

func inDateBucket(start time.Time, d DateFilter, now time.Time) bool {
	switch d {
	case DateUpcoming:
		return start.After(now)
	case DatePast:
		return start.Before(now)
	case DateToday:
		return sameDay(start, now)
	case DateTomorrow:
		return sameDay(start, now.AddDate(0, 0, 1))
	case DateThisWeek:
		from, to := weekBounds(now)
		return !start.Before(from) && !start.After(to)
	}
	return true
}

func sameDay(t, ref time.Time) bool {
	t = t.In(ref.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := ref.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// weekBounds returns Monday 00:00 and Sunday 23:59:59.999999999 of the
// week containing now, in now's location.
func weekBounds(now time.Time) (time.Time, time.Time) {
	offset := (int(now.Weekday()) + 6) % 7
	y, m, d := now.Date()
	start := time.Date(y, m, d-offset, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	return start, end
}
