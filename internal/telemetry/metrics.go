package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storedesk_api_requests_total",
			Help: "Total number of backend API requests",
		},
		[]string{"method", "route", "status"},
	)

	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storedesk_api_request_duration_seconds",
			Help:    "Backend API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	socketEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storedesk_socket_events_total",
			Help: "Socket events received or emitted, by event name",
		},
		[]string{"direction", "event"},
	)

	socketConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storedesk_socket_connected",
			Help: "1 while the realtime socket is connected",
		},
	)

	queryCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storedesk_query_cache_lookups_total",
			Help: "Query cache lookups by result",
		},
		[]string{"result"},
	)

	unreadNotifications = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storedesk_unread_notifications",
			Help: "Unread notifications seen on the last refresh",
		},
	)
)

func SocketEvent(direction, event string) {
	socketEventsTotal.WithLabelValues(direction, event).Inc()
}

func SocketConnected(up bool) {
	if up {
		socketConnected.Set(1)
		return
	}
	socketConnected.Set(0)
}

func CacheLookup(hit bool) {
	if hit {
		queryCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	queryCacheLookups.WithLabelValues("miss").Inc()
}

func UnreadNotifications(n int) {
	unreadNotifications.Set(float64(n))
}

func Handler() http.Handler {
	return promhttp.Handler()
}
