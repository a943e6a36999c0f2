package telemetry

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ErrInvalidSinkConfig is returned when a SinkConfig is missing a
// required field.
var ErrInvalidSinkConfig = errors.New("invalid prometheus sink configuration")

// SinkConfig configures a Sink, mirroring
// services/code_buddy/eval/telemetry/prometheus.go's PrometheusConfig
// (namespace/subsystem/registry), trimmed to the single run-summary Sink
// a one-shot analysis CLI needs rather than that file's per-benchmark
// histogram/counter vectors.
type SinkConfig struct {
	Namespace string
	Subsystem string
	Registry  *prometheus.Registry // defaults to a fresh registry when nil
}

func DefaultSinkConfig() SinkConfig {
	return SinkConfig{Namespace: "mycelium", Subsystem: "run"}
}

func (c SinkConfig) Validate() error {
	if c.Namespace == "" || c.Subsystem == "" {
		return ErrInvalidSinkConfig
	}
	return nil
}

// Sink exposes one pipeline run's summary stats as Prometheus gauges.
type Sink struct {
	registry *prometheus.Registry

	files       prometheus.Gauge
	folders     prometheus.Gauge
	symbols     prometheus.Gauge
	imports     prometheus.Gauge
	calls       prometheus.Gauge
	communities prometheus.Gauge
	processes   prometheus.Gauge
	durationSec prometheus.Gauge
}

// NewSink builds and registers a Sink's gauges against config.Registry
// (or a fresh *prometheus.Registry when nil).
func NewSink(config SinkConfig) (*Sink, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	registry := config.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      name,
			Help:      help,
		})
	}

	s := &Sink{
		registry:    registry,
		files:       gauge("files", "Files discovered by the last run"),
		folders:     gauge("folders", "Folders discovered by the last run"),
		symbols:     gauge("symbols", "Symbols extracted by the last run"),
		imports:     gauge("imports", "Import edges resolved by the last run"),
		calls:       gauge("calls", "Call edges resolved by the last run"),
		communities: gauge("communities", "Communities detected by the last run"),
		processes:   gauge("processes", "Processes traced by the last run"),
		durationSec: gauge("duration_seconds", "Wall-clock duration of the last run"),
	}

	for _, c := range []prometheus.Collector{
		s.files, s.folders, s.symbols, s.imports, s.calls, s.communities, s.processes, s.durationSec,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Stats is the subset of artifact.Stats a Sink reports; kept separate
// from the artifact package to avoid an import cycle (artifact depends
// on pipeline, telemetry stays a leaf).
type Stats struct {
	Files, Folders, Symbols, Imports, Calls, Communities, Processes int
	DurationSeconds                                                 float64
}

// Observe sets every gauge from one run's stats.
func (s *Sink) Observe(stats Stats) {
	s.files.Set(float64(stats.Files))
	s.folders.Set(float64(stats.Folders))
	s.symbols.Set(float64(stats.Symbols))
	s.imports.Set(float64(stats.Imports))
	s.calls.Set(float64(stats.Calls))
	s.communities.Set(float64(stats.Communities))
	s.processes.Set(float64(stats.Processes))
	s.durationSec.Set(stats.DurationSeconds)
}

// Handler returns an http.Handler serving this Sink's registry in the
// Prometheus exposition format.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
