// Package metrics provides Prometheus metrics for howcatalog
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for howcatalog
type Metrics struct {
	// gRPC request metrics
	GrpcRequestsTotal    *prometheus.CounterVec
	GrpcRequestDuration  *prometheus.HistogramVec
	GrpcRequestsInFlight prometheus.Gauge

	// REST request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Catalog metrics
	CatalogOperationsTotal   *prometheus.CounterVec
	CatalogOperationDuration *prometheus.HistogramVec
	IndexLinksCreatedTotal   prometheus.Counter
	IndexLinksDeletedTotal   prometheus.Counter
	AnchorsEnsuredTotal      prometheus.Counter
	UnresolvedDroppedTotal   prometheus.Counter

	// Server metrics
	ServerUptimeSeconds prometheus.GaugeFunc
	ServerStartTime     time.Time
}

// NewMetrics creates all metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		ServerStartTime: time.Now(),
	}

	m.GrpcRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "howcatalog_grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "status"},
	)

	m.GrpcRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "howcatalog_grpc_request_duration_seconds",
			Help:    "Duration of gRPC requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	m.GrpcRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "howcatalog_grpc_requests_in_flight",
			Help: "Number of gRPC requests currently being processed",
		},
	)

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "howcatalog_http_requests_total",
			Help: "Total number of REST requests",
		},
		[]string{"method", "route", "code"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "howcatalog_http_request_duration_seconds",
			Help:    "Duration of REST requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.CatalogOperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "howcatalog_catalog_operations_total",
			Help: "Total number of catalog operations",
		},
		[]string{"operation", "status"},
	)

	m.CatalogOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "howcatalog_catalog_operation_duration_seconds",
			Help:    "Duration of catalog operations in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"operation"},
	)

	m.IndexLinksCreatedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "howcatalog_index_links_created_total",
			Help: "Total number of index links created",
		},
	)

	m.IndexLinksDeletedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "howcatalog_index_links_deleted_total",
			Help: "Total number of index links deleted",
		},
	)

	m.AnchorsEnsuredTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "howcatalog_anchors_ensured_total",
			Help: "Total number of anchor ensure calls",
		},
	)

	m.UnresolvedDroppedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "howcatalog_unresolved_dropped_total",
			Help: "Total number of indexed addresses skipped because they resolved to nothing",
		},
	)

	m.ServerUptimeSeconds = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "howcatalog_server_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.ServerStartTime).Seconds() },
	)

	return m
}

// RecordGrpcRequest records a gRPC request with its status
func (m *Metrics) RecordGrpcRequest(method string, status string, duration time.Duration) {
	m.GrpcRequestsTotal.WithLabelValues(method, status).Inc()
	m.GrpcRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordHTTPRequest records a REST request with its response code
func (m *Metrics) RecordHTTPRequest(method, route, code string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordCatalogOperation records a catalog operation
func (m *Metrics) RecordCatalogOperation(operation, status string, duration time.Duration) {
	m.CatalogOperationsTotal.WithLabelValues(operation, status).Inc()
	m.CatalogOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) LinksCreated(n int) {
	m.IndexLinksCreatedTotal.Add(float64(n))
}

func (m *Metrics) LinksDeleted(n int) {
	m.IndexLinksDeletedTotal.Add(float64(n))
}

func (m *Metrics) AnchorEnsured() {
	m.AnchorsEnsuredTotal.Inc()
}

func (m *Metrics) UnresolvedDropped(n int) {
	m.UnresolvedDroppedTotal.Add(float64(n))
}
