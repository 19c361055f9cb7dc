package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// fee ledger domain.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	feeRecordsCreated prometheus.Counter
	feeRecordsUpdated prometheus.Counter
	promotions        prometheus.Counter
	graduations       prometheus.Counter

	entitlementDenied   *prometheus.CounterVec
	entitlementFailOpen prometheus.Counter
	entitlementCacheHit prometheus.Counter
	entitlementCacheMiss prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	feeRecordsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fee_records_created_total",
		Help: "Fee records created by structure setup and maintenance runs",
	})

	feeRecordsUpdated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fee_records_updated_total",
		Help: "Fee records reconciled against a changed fee structure",
	})

	promotions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "student_promotions_total",
		Help: "Students successfully promoted between classes",
	})

	graduations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "student_graduations_total",
		Help: "Students successfully graduated to alumni status",
	})

	entitlementDenied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "entitlement_denied_total",
		Help: "Requests rejected by the subscription gate, by error code",
	}, []string{"code"})

	entitlementFailOpen := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "entitlement_failopen_total",
		Help: "Gate checks allowed despite an entitlement store error",
	})

	entitlementCacheHit := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "entitlement_cache_hits_total",
		Help: "Tenant entitlement lookups served from cache",
	})

	entitlementCacheMiss := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "entitlement_cache_misses_total",
		Help: "Tenant entitlement lookups that fell through to the database",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal,
		feeRecordsCreated, feeRecordsUpdated, promotions, graduations,
		entitlementDenied, entitlementFailOpen, entitlementCacheHit, entitlementCacheMiss,
		goroutines)

	return &MetricsService{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		feeRecordsCreated:    feeRecordsCreated,
		feeRecordsUpdated:    feeRecordsUpdated,
		promotions:           promotions,
		graduations:          graduations,
		entitlementDenied:    entitlementDenied,
		entitlementFailOpen:  entitlementFailOpen,
		entitlementCacheHit:  entitlementCacheHit,
		entitlementCacheMiss: entitlementCacheMiss,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// AddFeeRecordsCreated bumps the created counter after a reconciliation.
func (m *MetricsService) AddFeeRecordsCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.feeRecordsCreated.Add(float64(n))
}

// AddFeeRecordsUpdated bumps the updated counter after a reconciliation.
func (m *MetricsService) AddFeeRecordsUpdated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.feeRecordsUpdated.Add(float64(n))
}

// AddPromotions counts successful student promotions.
func (m *MetricsService) AddPromotions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.promotions.Add(float64(n))
}

// AddGraduations counts successful student graduations.
func (m *MetricsService) AddGraduations(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.graduations.Add(float64(n))
}

// RecordEntitlementDenied counts one gate rejection by error code.
func (m *MetricsService) RecordEntitlementDenied(code string) {
	if m == nil {
		return
	}
	m.entitlementDenied.WithLabelValues(code).Inc()
}

// RecordEntitlementFailOpen counts one fail-open allowance.
func (m *MetricsService) RecordEntitlementFailOpen() {
	if m == nil {
		return
	}
	m.entitlementFailOpen.Inc()
}

// RecordEntitlementCache counts a cache hit or miss on tenant lookups.
func (m *MetricsService) RecordEntitlementCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.entitlementCacheHit.Inc()
	} else {
		m.entitlementCacheMiss.Inc()
	}
}
