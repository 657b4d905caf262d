// Package metrics exposes Prometheus instrumentation for lifecycle runs.
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Config labels every metric with service identity.
type Config struct {
	ServiceName string
	Environment string
}

// LifecycleMetrics counts archival, export and import activity.
type LifecycleMetrics struct {
	archivalRuns       prometheus.Counter
	archivalTenants    prometheus.Counter
	archivalArchived   prometheus.Counter
	archivalTenantErrs prometheus.Counter
	exportsTotal       *prometheus.CounterVec
	importsTotal       *prometheus.CounterVec
	exportBytes        prometheus.Histogram
}

var (
	lifecycleOnce    sync.Once
	lifecycleMetrics *LifecycleMetrics
)

// Lifecycle returns the process-wide lifecycle metrics, registering them on
// first use.
func Lifecycle(cfg Config) *LifecycleMetrics {
	lifecycleOnce.Do(func() {
		lifecycleMetrics = newLifecycleMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return lifecycleMetrics
}

// ResetLifecycleMetricsForTest clears the singleton between test runs.
func ResetLifecycleMetricsForTest() {
	lifecycleOnce = sync.Once{}
	lifecycleMetrics = nil
}

func newLifecycleMetrics(registerer prometheus.Registerer, cfg Config) *LifecycleMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "helpdesk"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &LifecycleMetrics{
		archivalRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "helpdesk_archival_runs_total",
			Help:        "Total archival passes executed.",
			ConstLabels: constLabels,
		}),
		archivalTenants: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "helpdesk_archival_tenants_processed_total",
			Help:        "Total tenant slices processed across archival runs.",
			ConstLabels: constLabels,
		}),
		archivalArchived: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "helpdesk_archival_tickets_archived_total",
			Help:        "Total tickets moved to the archived state.",
			ConstLabels: constLabels,
		}),
		archivalTenantErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "helpdesk_archival_tenants_with_errors_total",
			Help:        "Tenant slices that finished with at least one error.",
			ConstLabels: constLabels,
		}),
		exportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "helpdesk_exports_total",
			Help:        "Tenant snapshot exports by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		importsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "helpdesk_imports_total",
			Help:        "Tenant snapshot imports by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		exportBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "helpdesk_export_artifact_bytes",
			Help:        "Size of generated export artifacts.",
			Buckets:     prometheus.ExponentialBuckets(1024, 4, 8),
			ConstLabels: constLabels,
		}),
	}

	registerer.MustRegister(
		m.archivalRuns,
		m.archivalTenants,
		m.archivalArchived,
		m.archivalTenantErrs,
		m.exportsTotal,
		m.importsTotal,
		m.exportBytes,
	)
	return m
}

// ObserveArchivalRun records the aggregate outcome of one archival pass.
func (m *LifecycleMetrics) ObserveArchivalRun(tenantsProcessed, totalArchived, tenantsWithErrors int) {
	if m == nil {
		return
	}
	m.archivalRuns.Inc()
	m.archivalTenants.Add(float64(tenantsProcessed))
	m.archivalArchived.Add(float64(totalArchived))
	m.archivalTenantErrs.Add(float64(tenantsWithErrors))
}

// ObserveExport records one export attempt.
func (m *LifecycleMetrics) ObserveExport(success bool, sizeBytes int64) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.exportsTotal.WithLabelValues(result).Inc()
	if success && sizeBytes > 0 {
		m.exportBytes.Observe(float64(sizeBytes))
	}
}

// ObserveImport records one import attempt. Partial failures still count
// as success; only structural rejections are failures.
func (m *LifecycleMetrics) ObserveImport(success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.importsTotal.WithLabelValues(result).Inc()
}
