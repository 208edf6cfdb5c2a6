// Package metrics holds the Prometheus collectors shared by the vendor client,
// the session token cache, the schedule paginator and the booking store.
//
// Label sets are small and fixed so that cardinality stays bounded:
//
//   - endpoint: vendor path (e.g. /Airline/Booking)
//   - outcome:  ok | business | auth | transport | error | partial | complete
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// VendorRequests counts vendor calls by endpoint and outcome.
	VendorRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendor_requests_total",
			Help: "Total number of calls made to the reservation vendor.",
		},
		[]string{"endpoint", "outcome"},
	)

	// VendorLatency records vendor call duration in seconds. Pages of the
	// all-airline schedule can take tens of seconds, hence the wide buckets.
	VendorLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vendor_request_duration_seconds",
			Help:    "Duration of vendor calls in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"endpoint"},
	)

	// VendorLogins counts session login exchanges.
	VendorLogins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendor_logins_total",
			Help: "Total number of vendor session logins.",
		},
		[]string{"outcome"},
	)

	// ScheduleSteps observes how many pages one aggregation run needed.
	ScheduleSteps = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "schedule_pagination_steps",
			Help:    "Number of vendor calls per all-airline schedule aggregation.",
			Buckets: []float64{1, 2, 3, 5, 8, 12, 20, 30},
		},
	)

	// ScheduleRuns counts aggregation runs by outcome.
	ScheduleRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_runs_total",
			Help: "Total number of all-airline schedule aggregations.",
		},
		[]string{"outcome"},
	)

	// BookingsSaved counts booking aggregate writes by outcome.
	BookingsSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_saved_total",
			Help: "Total number of booking aggregate writes.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		VendorRequests,
		VendorLatency,
		VendorLogins,
		ScheduleSteps,
		ScheduleRuns,
		BookingsSaved,
	)
}
