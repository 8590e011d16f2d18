package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// RegisterMetrics registers the HTTP metrics with the given registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration)
}

// Metrics instruments each request with request count, latency, and
// in-flight gauges. The route template is used as the path label so that
// /api/v1/practices/:id does not explode the cardinality.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			httpInFlight.Inc()
			start := time.Now()

			err := next(c)

			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			status := strconv.Itoa(c.Response().Status)
			method := c.Request().Method

			httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(method, path, status).Inc()
			httpInFlight.Dec()

			return err
		}
	}
}
