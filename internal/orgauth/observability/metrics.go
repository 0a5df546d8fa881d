// Package observability holds the Prometheus metrics of the auth service.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements service.Recorder.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SessionResolutionsTotal *prometheus.CounterVec
	OrgOverridesTotal       *prometheus.CounterVec
	AutoPromotionsTotal     *prometheus.CounterVec
	PromotedMemberships     prometheus.Counter
	LoginsTotal             *prometheus.CounterVec
	SelectionExchangesTotal *prometheus.CounterVec
	HousekeepingDeletedTotal prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates the metrics and registers them with registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgauth_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orgauth_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SessionResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgauth_session_resolutions_total",
				Help: "Session resolutions by outcome",
			},
			[]string{"outcome"},
		),
		OrgOverridesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgauth_org_overrides_total",
				Help: "X-Organization-Id overrides by outcome",
			},
			[]string{"outcome"},
		),
		AutoPromotionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgauth_auto_promotions_total",
				Help: "Auto-promotion attempts by result",
			},
			[]string{"result"},
		),
		PromotedMemberships: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orgauth_promoted_memberships_total",
			Help: "Memberships raised to OWNER by auto-promotion",
		}),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgauth_logins_total",
				Help: "Password logins by outcome",
			},
			[]string{"outcome"},
		),
		SelectionExchangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgauth_selection_exchanges_total",
				Help: "Selection token exchanges by outcome",
			},
			[]string{"outcome"},
		),
		HousekeepingDeletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orgauth_housekeeping_deleted_total",
			Help: "Expired selection token records deleted",
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SessionResolutionsTotal,
		m.OrgOverridesTotal,
		m.AutoPromotionsTotal,
		m.PromotedMemberships,
		m.LoginsTotal,
		m.SelectionExchangesTotal,
		m.HousekeepingDeletedTotal,
	)
	return m
}

func (m *Metrics) SessionResolved(outcome string) {
	m.SessionResolutionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) OrganizationOverride(outcome string) {
	m.OrgOverridesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AutoPromotion(rows int64, err error) {
	if err != nil {
		m.AutoPromotionsTotal.WithLabelValues("error").Inc()
		return
	}
	m.AutoPromotionsTotal.WithLabelValues("ok").Inc()
	m.PromotedMemberships.Add(float64(rows))
}

func (m *Metrics) Login(outcome string) {
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SelectionExchanged(outcome string) {
	m.SelectionExchangesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) HousekeepingDeleted(rows int64) {
	m.HousekeepingDeletedTotal.Add(float64(rows))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HTTPMiddleware counts requests by route pattern. Unmatched requests are
// labelled "unmatched" to keep cardinality bounded.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
