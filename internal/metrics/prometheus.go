package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"grimm.is/netgen/internal/clock"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds all generation metrics. Each Registry owns its own
// prometheus registry so tests and the textfile exporter see only these
// series.
type Registry struct {
	reg *prometheus.Registry

	// Parse and import
	DefinitionsLoaded prometheus.Gauge
	FilesLoaded       prometheus.Gauge
	Unresolved        prometheus.Gauge

	// Generation
	ArtifactsWritten *prometheus.CounterVec
	ArtifactsRemoved *prometheus.CounterVec
	UnitsEnabled     *prometheus.CounterVec
	Errors           *prometheus.CounterVec

	// Runs
	Runs          *prometheus.CounterVec
	LastRun       prometheus.Gauge
	RunDuration   prometheus.Histogram
}

// Get returns the global metrics registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = New()
	})
	return registry
}

// New creates an independent registry.
func New() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}
	factory := promauto.With(r.reg)

	r.DefinitionsLoaded = factory.NewGauge(prometheus.GaugeOpts{
		Name: "netgen_definitions",
		Help: "Number of network definitions in the last imported state",
	})

	r.FilesLoaded = factory.NewGauge(prometheus.GaugeOpts{
		Name: "netgen_source_files",
		Help: "Number of documents loaded by the last run",
	})

	r.Unresolved = factory.NewGauge(prometheus.GaugeOpts{
		Name: "netgen_unresolved_references",
		Help: "References that matched neither a definition nor a system device",
	})

	r.ArtifactsWritten = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "netgen_artifacts_written_total",
		Help: "Backend artifacts written",
	}, []string{"backend"})

	r.ArtifactsRemoved = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "netgen_artifacts_removed_total",
		Help: "Stale backend artifacts removed during cleanup",
	}, []string{"backend"})

	r.UnitsEnabled = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "netgen_units_enabled_total",
		Help: "Service enablement links created",
	}, []string{"backend"})

	r.Errors = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "netgen_errors_total",
		Help: "Errors by pipeline stage",
	}, []string{"stage"})

	r.Runs = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "netgen_runs_total",
		Help: "Generation runs by result",
	}, []string{"result"})

	r.LastRun = factory.NewGauge(prometheus.GaugeOpts{
		Name: "netgen_last_run_timestamp_seconds",
		Help: "Unix time of the last generation run",
	})

	r.RunDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "netgen_run_duration_seconds",
		Help:    "Duration of generation runs",
		Buckets: prometheus.DefBuckets,
	})

	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// RecordImport records the size of an imported state.
func (r *Registry) RecordImport(files, definitions, unresolved int) {
	r.FilesLoaded.Set(float64(files))
	r.DefinitionsLoaded.Set(float64(definitions))
	r.Unresolved.Set(float64(unresolved))
}

// RecordWritten records artifacts written for a backend.
func (r *Registry) RecordWritten(backend string, n int) {
	r.ArtifactsWritten.WithLabelValues(backend).Add(float64(n))
}

// RecordRemoved records artifacts removed for a backend.
func (r *Registry) RecordRemoved(backend string, n int) {
	r.ArtifactsRemoved.WithLabelValues(backend).Add(float64(n))
}

// RecordEnabled records enablement links created for a backend.
func (r *Registry) RecordEnabled(backend string, n int) {
	r.UnitsEnabled.WithLabelValues(backend).Add(float64(n))
}

// RecordError records a failure in a pipeline stage.
func (r *Registry) RecordError(stage string) {
	r.Errors.WithLabelValues(stage).Inc()
}

// RecordRun records a finished run.
func (r *Registry) RecordRun(started time.Time, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.Runs.WithLabelValues(result).Inc()
	r.LastRun.Set(float64(clock.Now().Unix()))
	r.RunDuration.Observe(clock.Since(started).Seconds())
}

// WriteTextfile writes the current metrics in the text exposition format,
// for the node exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
