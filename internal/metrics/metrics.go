// Package metrics provides Prometheus-backed instrumentation for the
// pipeline runtime, grounded on the teacher's internal/audiocore
// MetricsCollector (an enabled-check-first wrapper over a metrics struct)
// and internal/observability/metrics's Recorder test-seam pattern. The
// underlying AudioCoreMetrics struct referenced by the teacher is never
// defined in the example pack, so PrometheusMetrics below is written fresh
// against the same prometheus/client_golang primitives the teacher uses.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is the interface pipeline components depend on, mirroring the
// teacher's test-seam split between a real Prometheus recorder and a
// map-based TestRecorder.
type Recorder interface {
	RecordBufferAcquired(poolName string)
	RecordBufferAllocated(poolName string)
	RecordBufferReleased(poolName string)
	RecordQueuePush(stageName, portName string, ok bool)
	RecordQueuePop(stageName, portName string, ok bool)
	RecordQueueDepth(stageName, portName string, depth, capacity int)
	RecordProcessDuration(stageName string, d time.Duration)
	RecordProcessError(stageName, reason string)
	RecordStageState(stageName, state string)
}

// PrometheusMetrics is the production Recorder.
type PrometheusMetrics struct {
	buffersAcquired  *prometheus.CounterVec
	buffersAllocated *prometheus.CounterVec
	buffersReleased  *prometheus.CounterVec
	queuePushes      *prometheus.CounterVec
	queuePops        *prometheus.CounterVec
	queueDepth       *prometheus.GaugeVec
	processDuration  *prometheus.HistogramVec
	processErrors    *prometheus.CounterVec
	stageState       *prometheus.GaugeVec
}

// NewPrometheusMetrics builds and registers the collectors against reg.
// Pass prometheus.NewRegistry() in tests to avoid global-registry
// collisions; pass prometheus.DefaultRegisterer in production.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		buffersAcquired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "audiopipeline",
			Subsystem: "pool",
			Name:      "buffers_acquired_total",
			Help:      "Buffers handed out by a pool, including newly allocated ones.",
		}, []string{"pool"}),
		buffersAllocated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "audiopipeline",
			Subsystem: "pool",
			Name:      "buffers_allocated_total",
			Help:      "Buffers allocated because a pool's free stack was empty.",
		}, []string{"pool"}),
		buffersReleased: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "audiopipeline",
			Subsystem: "pool",
			Name:      "buffers_released_total",
			Help:      "Buffers returned to a pool's free stack.",
		}, []string{"pool"}),
		queuePushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "audiopipeline",
			Subsystem: "queue",
			Name:      "pushes_total",
			Help:      "BufferQueue push attempts, labeled by outcome.",
		}, []string{"stage", "port", "outcome"}),
		queuePops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "audiopipeline",
			Subsystem: "queue",
			Name:      "pops_total",
			Help:      "BufferQueue pop attempts, labeled by outcome.",
		}, []string{"stage", "port", "outcome"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "audiopipeline",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Current occupied slots in a link's BufferQueue.",
		}, []string{"stage", "port"}),
		processDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "audiopipeline",
			Subsystem: "stage",
			Name:      "process_duration_seconds",
			Help:      "Duration of a single Stage.process invocation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		processErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "audiopipeline",
			Subsystem: "stage",
			Name:      "process_errors_total",
			Help:      "Errors surfaced by a Stage's process callback.",
		}, []string{"stage", "reason"}),
		stageState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "audiopipeline",
			Subsystem: "stage",
			Name:      "state",
			Help:      "Current lifecycle state of a Stage (1 = current state, labeled).",
		}, []string{"stage", "state"}),
	}

	collectors := []prometheus.Collector{
		m.buffersAcquired, m.buffersAllocated, m.buffersReleased,
		m.queuePushes, m.queuePops, m.queueDepth,
		m.processDuration, m.processErrors, m.stageState,
	}
	for _, c := range collectors {
		if reg != nil {
			reg.MustRegister(c)
		}
	}
	return m
}

func (m *PrometheusMetrics) RecordBufferAcquired(poolName string) {
	m.buffersAcquired.WithLabelValues(poolName).Inc()
}

func (m *PrometheusMetrics) RecordBufferAllocated(poolName string) {
	m.buffersAllocated.WithLabelValues(poolName).Inc()
}

func (m *PrometheusMetrics) RecordBufferReleased(poolName string) {
	m.buffersReleased.WithLabelValues(poolName).Inc()
}

func (m *PrometheusMetrics) RecordQueuePush(stageName, portName string, ok bool) {
	m.queuePushes.WithLabelValues(stageName, portName, outcome(ok)).Inc()
}

func (m *PrometheusMetrics) RecordQueuePop(stageName, portName string, ok bool) {
	m.queuePops.WithLabelValues(stageName, portName, outcome(ok)).Inc()
}

func (m *PrometheusMetrics) RecordQueueDepth(stageName, portName string, depth, _ int) {
	m.queueDepth.WithLabelValues(stageName, portName).Set(float64(depth))
}

func (m *PrometheusMetrics) RecordProcessDuration(stageName string, d time.Duration) {
	m.processDuration.WithLabelValues(stageName).Observe(d.Seconds())
}

func (m *PrometheusMetrics) RecordProcessError(stageName, reason string) {
	m.processErrors.WithLabelValues(stageName, reason).Inc()
}

func (m *PrometheusMetrics) RecordStageState(stageName, state string) {
	m.stageState.WithLabelValues(stageName, state).Set(1)
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// NoopMetrics discards everything; used when a caller doesn't supply a
// Recorder, so pipeline code never needs a nil check.
type NoopMetrics struct{}

func (NoopMetrics) RecordBufferAcquired(string)                      {}
func (NoopMetrics) RecordBufferAllocated(string)                     {}
func (NoopMetrics) RecordBufferReleased(string)                      {}
func (NoopMetrics) RecordQueuePush(string, string, bool)             {}
func (NoopMetrics) RecordQueuePop(string, string, bool)              {}
func (NoopMetrics) RecordQueueDepth(string, string, int, int)        {}
func (NoopMetrics) RecordProcessDuration(string, time.Duration)      {}
func (NoopMetrics) RecordProcessError(string, string)                {}
func (NoopMetrics) RecordStageState(string, string)                  {}

var (
	globalMu sync.RWMutex
	global   Recorder = NoopMetrics{}
)

// SetGlobal installs the process-wide Recorder used by components that
// don't have one injected directly (mirrors the teacher's GetMetrics()
// global accessor pattern).
func SetGlobal(r Recorder) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if r == nil {
		r = NoopMetrics{}
	}
	global = r
}

// Global returns the process-wide Recorder, defaulting to a no-op.
func Global() Recorder {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}
