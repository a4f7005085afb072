package metrics

import (
	"sync"
	"time"
)

// TestRecorder is a map-based Recorder for unit tests, grounded on the
// teacher's internal/observability/metrics TestRecorder.
type TestRecorder struct {
	mu          sync.Mutex
	Counters    map[string]int
	Gauges      map[string]float64
	Durations   map[string][]time.Duration
}

func NewTestRecorder() *TestRecorder {
	return &TestRecorder{
		Counters:  make(map[string]int),
		Gauges:    make(map[string]float64),
		Durations: make(map[string][]time.Duration),
	}
}

func (t *TestRecorder) inc(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Counters[key]++
}

func (t *TestRecorder) RecordBufferAcquired(poolName string)  { t.inc("buffer_acquired:" + poolName) }
func (t *TestRecorder) RecordBufferAllocated(poolName string) { t.inc("buffer_allocated:" + poolName) }
func (t *TestRecorder) RecordBufferReleased(poolName string)  { t.inc("buffer_released:" + poolName) }

func (t *TestRecorder) RecordQueuePush(stageName, portName string, ok bool) {
	t.inc("queue_push:" + stageName + ":" + portName + ":" + outcome(ok))
}

func (t *TestRecorder) RecordQueuePop(stageName, portName string, ok bool) {
	t.inc("queue_pop:" + stageName + ":" + portName + ":" + outcome(ok))
}

func (t *TestRecorder) RecordQueueDepth(stageName, portName string, depth, _ int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Gauges["queue_depth:"+stageName+":"+portName] = float64(depth)
}

func (t *TestRecorder) RecordProcessDuration(stageName string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := "process_duration:" + stageName
	t.Durations[key] = append(t.Durations[key], d)
}

func (t *TestRecorder) RecordProcessError(stageName, reason string) {
	t.inc("process_error:" + stageName + ":" + reason)
}

func (t *TestRecorder) RecordStageState(stageName, state string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Gauges["stage_state:"+stageName+":"+state] = 1
}

func (t *TestRecorder) Count(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Counters[key]
}
