package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kerbside",
			Name:      "reservation_created_total",
			Help:      "Count of reservation create attempts by outcome.",
		},
		[]string{"outcome"},
	)

	reservationTransition = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kerbside",
			Name:      "reservation_transition_total",
			Help:      "Count of successful reservation transitions by action.",
		},
		[]string{"action"},
	)

	searchRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kerbside",
			Name:      "search_requests_total",
			Help:      "Count of space search requests.",
		},
	)

	geocodeLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kerbside",
			Name:      "geocode_lookups_total",
			Help:      "Count of geocode lookups by result (cache_hit, cache_miss, error).",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kerbside",
			Name:      "http_requests_total",
			Help:      "Count of API requests by handler.",
		},
		[]string{"handler"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reservationCreated, reservationTransition,
			searchRequests, geocodeLookups, httpRequests)
	})
}

func IncReservationCreated(outcome string) {
	reservationCreated.WithLabelValues(outcome).Inc()
}

func IncTransition(action string) {
	reservationTransition.WithLabelValues(action).Inc()
}

func IncSearch() {
	searchRequests.Inc()
}

func IncGeocode(result string) {
	geocodeLookups.WithLabelValues(result).Inc()
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}
