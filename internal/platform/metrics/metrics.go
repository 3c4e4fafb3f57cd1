package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	BookingsCreated   prometheus.Counter
	BookingsCancelled prometheus.Counter
	BookingFailures   *prometheus.CounterVec
	LoginAttempts     *prometheus.CounterVec
	CreditReloads     prometheus.Counter
	UsersCreated      prometheus.Counter
	AuditDropped      prometheus.Counter
	RequestDuration   *prometheus.HistogramVec
}

// New creates all metrics and registers them on the given registerer. Tests
// pass a fresh prometheus.NewRegistry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BookingsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "arabesque_bookings_created_total",
			Help: "Total number of seats successfully reserved",
		}),
		BookingsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "arabesque_bookings_cancelled_total",
			Help: "Total number of bookings cancelled with credit refund",
		}),
		BookingFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arabesque_booking_failures_total",
			Help: "Booking attempts rejected, by reason",
		}, []string{"reason"}),
		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arabesque_login_attempts_total",
			Help: "Login attempts, by result",
		}, []string{"result"}),
		CreditReloads: factory.NewCounter(prometheus.CounterOpts{
			Name: "arabesque_credit_reloads_total",
			Help: "Monthly credit reloads applied at login",
		}),
		UsersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "arabesque_users_created_total",
			Help: "Total number of users registered",
		}),
		AuditDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "arabesque_audit_events_dropped_total",
			Help: "Audit events dropped because the publisher buffer was full",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arabesque_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// ObserveRequest records one HTTP request observation.
func (m *Metrics) ObserveRequest(method, route, status string, d time.Duration) {
	m.RequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}
