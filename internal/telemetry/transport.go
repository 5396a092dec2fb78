package telemetry

import (
	"net/http"
	"regexp"
	"strconv"
	"time"
)

var numericSegment = regexp.MustCompile(`/[0-9]+`)

// Route collapses numeric path segments so label cardinality stays bounded:
// /orders/41/accept becomes /orders/{id}/accept.
func Route(path string) string {
	return numericSegment.ReplaceAllString(path, "/{id}")
}

// Transport records count and latency of every outgoing request.
type Transport struct {
	Base http.RoundTripper
}

func NewTransport(base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Base: base}
}

func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.Base.RoundTrip(r)
	duration := time.Since(start).Seconds()

	route := Route(r.URL.Path)
	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}

	apiRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	apiRequestDuration.WithLabelValues(r.Method, route).Observe(duration)

	return resp, err
}
