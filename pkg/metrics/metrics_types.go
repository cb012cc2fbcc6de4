package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Preparation Metrics
	ProceduresPrepared  *prometheus.CounterVec
	PreparationDuration prometheus.Histogram
	StepsExpanded       *prometheus.CounterVec
	SanityFailures      *prometheus.CounterVec
	StepsElided         *prometheus.CounterVec
	ImpliedStepsAdded   *prometheus.CounterVec

	// Execution Metrics
	CommandsExecuted       *prometheus.CounterVec
	CommandDuration        *prometheus.HistogramVec
	PhaseSeparationReads   prometheus.Counter
	PhaseSeparationRetries prometheus.Counter
	ExecutionFailures      *prometheus.CounterVec

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initPreparationMetrics()
	r.initExecutionMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
