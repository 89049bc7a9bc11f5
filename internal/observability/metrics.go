package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service. Every method
// is safe on a nil receiver so components can run without instrumentation.
type Metrics struct {
	registry *prometheus.Registry
	stages   *stageWindow

	PipelineRuns      *prometheus.CounterVec
	StageLatency      *prometheus.HistogramVec
	FactLookups       *prometheus.CounterVec
	StoreOps          *prometheus.CounterVec
	Hydrations        *prometheus.CounterVec
	CachedTranscripts prometheus.Gauge
	ProviderErrors    *prometheus.CounterVec
	BotEvents         *prometheus.CounterVec
	WSMessages        *prometheus.CounterVec
	WSWriteErrors     *prometheus.CounterVec
}

// NewMetrics builds the instruments on a dedicated registry, so several
// instances (tests, multiple bots in one binary) never collide.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		stages:   newStageWindow(256),
		PipelineRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Response pipeline runs by outcome.",
		}, []string{"outcome"}),
		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_latency_ms",
			Help:      "Latency of each response pipeline stage in milliseconds.",
			Buckets:   []float64{5, 20, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"stage"}),
		FactLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fact_lookups_total",
			Help:      "Fact store lookups by outcome.",
		}, []string{"outcome"}),
		StoreOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Storage operations by store, operation and outcome.",
		}, []string{"store", "op", "outcome"}),
		Hydrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_hydrations_total",
			Help:      "Transcript hydrations by result.",
		}, []string{"result"}),
		CachedTranscripts: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_transcripts",
			Help:      "Number of transcripts held in the history cache.",
		}),
		ProviderErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Completion provider errors by provider and code.",
		}, []string{"provider", "code"}),
		BotEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_events_total",
			Help:      "Inbound bot events by kind.",
		}, []string{"event"}),
		WSMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		WSWriteErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_write_errors_total",
			Help:      "WebSocket write failures by operation.",
		}, []string{"op"}),
	}
}

func (m *Metrics) ObservePipeline(outcome string) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(outcome).Inc()
}

// ObserveStage feeds both the Prometheus histogram and the rolling window
// served by /v1/perf/latency.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil || d < 0 {
		return
	}
	ms := float64(d.Microseconds()) / 1000
	m.StageLatency.WithLabelValues(stage).Observe(ms)
	m.stages.Observe(stage, ms)
}

func (m *Metrics) ObserveIndicator(name string) {
	if m == nil {
		return
	}
	m.stages.ObserveIndicator(name)
}

func (m *Metrics) ObserveFactLookup(outcome string) {
	if m == nil {
		return
	}
	m.FactLookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStoreOp(store, op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.StoreOps.WithLabelValues(store, op, outcome).Inc()
}

func (m *Metrics) ObserveHydration(result string) {
	if m == nil {
		return
	}
	m.Hydrations.WithLabelValues(result).Inc()
}

func (m *Metrics) SetCachedTranscripts(n int) {
	if m == nil {
		return
	}
	m.CachedTranscripts.Set(float64(n))
}

func (m *Metrics) ObserveProviderError(provider, code string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider, code).Inc()
}

func (m *Metrics) ObserveBotEvent(event string) {
	if m == nil {
		return
	}
	m.BotEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) ObserveWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

func (m *Metrics) ObserveWSWriteError(op string) {
	if m == nil {
		return
	}
	m.WSWriteErrors.WithLabelValues(op).Inc()
}

// SnapshotStages returns percentile stats for recent pipeline stages.
func (m *Metrics) SnapshotStages() StageSnapshot {
	if m == nil {
		return StageSnapshot{GeneratedAt: time.Now().UTC(), Stages: []StageStats{}}
	}
	return m.stages.Snapshot()
}

// Handler serves this instance's registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
