// Package metrics exposes Prometheus counters and histograms for the HTTP
// layer, the booking flow and the confirmation email worker.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the application collectors. Build one per process with New.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	BookingsCreated   prometheus.Counter
	BookingsCancelled prometheus.Counter
	BookingConflicts  prometheus.Counter
	EmailsSent        prometheus.Counter
	EmailFailures     prometheus.Counter
	EmailQueueDepth   prometheus.Gauge
}

// New registers all collectors on a private registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salon_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "salon_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		BookingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salon_bookings_created_total",
			Help: "Bookings created.",
		}),
		BookingsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salon_bookings_cancelled_total",
			Help: "Bookings deleted and their slots released.",
		}),
		BookingConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salon_booking_slot_conflicts_total",
			Help: "Booking attempts rejected because the slot was taken or missing.",
		}),
		EmailsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salon_confirmation_emails_sent_total",
			Help: "Confirmation emails delivered.",
		}),
		EmailFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salon_confirmation_email_failures_total",
			Help: "Confirmation email attempts that failed.",
		}),
		EmailQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "salon_confirmation_email_pending",
			Help: "Confirmed bookings still waiting for their email at the last sweep.",
		}),
	}
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.BookingsCreated, m.BookingsCancelled, m.BookingConflicts,
		m.EmailsSent, m.EmailFailures, m.EmailQueueDepth,
	)
	return m
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
