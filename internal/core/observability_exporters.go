package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// opStats aggregates one operation's totals. Durations accumulate in
// milliseconds; success and error outcomes are counted separately.
type opStats struct {
	totalMS float64
	success int64
	failure int64
}

// ExpvarMetricsRecorder is a MetricsRecorder that exposes per-operation
// aggregates through expvar, for deployments that want process-local metrics
// without a scrape endpoint.
type ExpvarMetricsRecorder struct {
	name string
	mu   sync.Mutex
	ops  map[string]*opStats
}

// ExpvarMetricsSnapshot is the read-only view published under the expvar
// name, keyed by operation.
type ExpvarMetricsSnapshot struct {
	DurationsMS map[string]float64          `json:"durations_ms_total"`
	Results     map[string]map[string]int64 `json:"results_total"`
	RecordedAt  time.Time                   `json:"recorded_at"`
}

// NewExpvarMetricsRecorder publishes a recorder under name. An empty name
// gets a unique generated one, so tests can create recorders freely without
// expvar panicking on re-registration.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("rentalcore_ops_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	rec := &ExpvarMetricsRecorder{
		name: name,
		ops:  make(map[string]*opStats),
	}
	expvar.Publish(name, expvar.Func(func() any { return rec.Snapshot() }))
	return rec
}

// Name returns the expvar name the recorder publishes under.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot copies the current aggregates.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := ExpvarMetricsSnapshot{
		DurationsMS: make(map[string]float64, len(r.ops)),
		Results:     make(map[string]map[string]int64, len(r.ops)),
		RecordedAt:  time.Now().UTC(),
	}
	for op, stats := range r.ops {
		snap.DurationsMS[op] = stats.totalMS
		snap.Results[op] = map[string]int64{
			"success": stats.success,
			"error":   stats.failure,
		}
	}
	return snap
}

// Observe implements MetricsRecorder. Records with no operation name are
// dropped.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stats, ok := r.ops[operation]
	if !ok {
		stats = &opStats{}
		r.ops[operation] = stats
	}
	stats.totalMS += float64(duration) / float64(time.Millisecond)
	if success {
		stats.success++
	} else {
		stats.failure++
	}
}

// JSONTraceEntry is one completed span as the tracer serializes it.
type JSONTraceEntry struct {
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTraceTracer writes one JSON line per finished span and keeps every
// entry in memory for inspection.
type JSONTraceTracer struct {
	mu      sync.Mutex
	entries []JSONTraceEntry
	enc     *json.Encoder
}

// NewJSONTracer builds a tracer emitting JSON lines to w. A nil writer keeps
// spans in memory only.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	t := &JSONTraceTracer{}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Entries returns a copy of every span recorded so far.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]JSONTraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonTraceSpan{
		tracer:    t,
		operation: operation,
		started:   time.Now().UTC(),
	}
}

func (t *JSONTraceTracer) record(entry JSONTraceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
	if t.enc != nil {
		_ = t.enc.Encode(entry)
	}
}

type jsonTraceSpan struct {
	tracer    *JSONTraceTracer
	operation string
	started   time.Time
}

func (s *jsonTraceSpan) End(err error) {
	ended := time.Now().UTC()
	entry := JSONTraceEntry{
		Operation:  s.operation,
		Status:     "success",
		DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
		StartedAt:  s.started,
		EndedAt:    ended,
	}
	if err != nil {
		entry.Status = "error"
		entry.Error = err.Error()
	}
	s.tracer.record(entry)
}
