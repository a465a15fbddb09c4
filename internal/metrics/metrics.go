// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evanto_booking_rejections_total",
			Help: "Bookings rejected by the capacity guard",
		},
		[]string{"reason"},
	)

	bookingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evanto_bookings_created_total",
			Help: "Bookings accepted",
		},
	)

	cacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evanto_cache_invalidations_total",
			Help: "Cache resources invalidated",
		},
		[]string{"resource"},
	)

	feedPages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evanto_feed_pages_total",
			Help: "Merged feed pages served",
		},
		[]string{"sort_by"},
	)

	changesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evanto_changes_consumed_total",
			Help: "Row change events consumed from the change feed",
		},
		[]string{"table", "op"},
	)
)

// Booking rejection reasons.
const (
	ReasonCapacity    = "capacity"
	ReasonFullyBooked = "fully_booked"
)

func TrackBookingRejected(reason string) { bookingRejections.WithLabelValues(reason).Inc() }

func TrackBookingCreated() { bookingsCreated.Inc() }

func TrackInvalidation(resource string) { cacheInvalidations.WithLabelValues(resource).Inc() }

func TrackFeedPage(sortBy string) { feedPages.WithLabelValues(sortBy).Inc() }

func TrackChange(table, op string) { changesConsumed.WithLabelValues(table, op).Inc() }
