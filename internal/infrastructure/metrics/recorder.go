package metrics

import (
	"context"
	"net/http"
	"time"

	"archie-core-forms-layer/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric names
const (
	MetricSchemaFetchesTotal       = "forms_schema_fetches_total"
	MetricOperationsTotal          = "forms_dispatch_operations_total"
	MetricOperationDurationSeconds = "forms_dispatch_operation_duration_seconds"
	MetricDispatchesTotal          = "forms_dispatches_total"
	MetricDispatchFailedOperations = "forms_dispatch_failed_operations_total"
)

// Recorder records engine metrics on its own registry and serves them on /metrics
type Recorder struct {
	registry *prometheus.Registry

	schemaFetches     *prometheus.CounterVec
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	dispatches        *prometheus.CounterVec
	failedOperations  *prometheus.CounterVec
}

// NewRecorder creates a recorder with Go and process collectors registered
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	r := &Recorder{
		registry: registry,
		schemaFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSchemaFetchesTotal,
			Help: "Remote schema lookups by source (cache or remote) and outcome.",
		}, []string{"integration", "object_type", "source", "outcome"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricOperationsTotal,
			Help: "Remote dispatch operations by outcome.",
		}, []string{"integration", "operation", "outcome"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricOperationDurationSeconds,
			Help:    "Duration of remote dispatch operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"integration", "operation"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricDispatchesTotal,
			Help: "Aggregated dispatch results.",
		}, []string{"integration", "outcome"}),
		failedOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricDispatchFailedOperations,
			Help: "Failed operations in aggregated dispatches by error kind.",
		}, []string{"integration", "kind"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.schemaFetches,
		r.operations,
		r.operationDuration,
		r.dispatches,
		r.failedOperations,
	)
	return r
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// ObserveSchemaFetch counts a schema lookup
func (r *Recorder) ObserveSchemaFetch(integrationID, objectType, source string, err error) {
	r.schemaFetches.WithLabelValues(integrationID, objectType, source, outcome(err == nil)).Inc()
}

// ObserveOperation counts and times one remote operation
func (r *Recorder) ObserveOperation(integrationID, operation string, success bool, duration time.Duration) {
	r.operations.WithLabelValues(integrationID, operation, outcome(success)).Inc()
	r.operationDuration.WithLabelValues(integrationID, operation).Observe(duration.Seconds())
}

// OnDispatch counts an aggregated dispatch and its failures by kind
func (r *Recorder) OnDispatch(_ context.Context, result *domain.DispatchResult) error {
	r.dispatches.WithLabelValues(result.IntegrationID, outcome(result.Success)).Inc()
	for _, failed := range result.Failures() {
		kind := string(failed.ErrorKind)
		if kind == "" {
			kind = string(domain.KindUnknown)
		}
		r.failedOperations.WithLabelValues(result.IntegrationID, kind).Inc()
	}
	return nil
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
