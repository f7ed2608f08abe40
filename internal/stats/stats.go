// Package stats aggregates ingest throughput and latency over a rolling
// window for the /api/stats endpoint.
package stats

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	durationMs int64
	chunks     int
	docType    string
}

// LatencySnapshot is a point-in-time aggregate of ingest latency samples.
type LatencySnapshot struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// Snapshot aggregates everything recorded within the rolling window.
type Snapshot struct {
	Documents   int             `json:"documents"`
	Chunks      int             `json:"chunks"`
	ByDocType   map[string]int  `json:"by_doc_type"`
	IngestMs    LatencySnapshot `json:"ingest_ms"`
	WindowStart time.Time       `json:"window_start"`
}

// Recorder tracks per-document ingest outcomes within a rolling window.
type Recorder struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
}

func NewRecorder(maxAge time.Duration) *Recorder {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Recorder{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
	}
}

// RecordDocument registers one completed ingest: its semantic doc type,
// chunk count and wall-clock duration.
func (r *Recorder) RecordDocument(docType string, chunks int, elapsed time.Duration) {
	ms := elapsed.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	if chunks < 0 {
		chunks = 0
	}
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(now)
	r.samples = append(r.samples, sample{
		timestamp:  now,
		durationMs: ms,
		chunks:     chunks,
		docType:    docType,
	})
}

func (r *Recorder) Snapshot() Snapshot {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(now)
	snap := Snapshot{
		ByDocType:   map[string]int{},
		WindowStart: now.Add(-r.maxAge),
	}
	if len(r.samples) == 0 {
		return snap
	}

	values := make([]int64, 0, len(r.samples))
	var sum int64
	for _, sm := range r.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
		snap.Chunks += sm.chunks
		if sm.docType != "" {
			snap.ByDocType[sm.docType]++
		}
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	snap.Documents = len(values)
	snap.IngestMs = LatencySnapshot{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: percentile(values, 50),
		P95Ms: percentile(values, 95),
		P99Ms: percentile(values, 99),
	}
	return snap
}

func (r *Recorder) pruneLocked(now time.Time) {
	cutoff := now.Add(-r.maxAge)
	writeIdx := 0
	for _, sm := range r.samples {
		if !sm.timestamp.Before(cutoff) {
			r.samples[writeIdx] = sm
			writeIdx++
		}
	}
	r.samples = r.samples[:writeIdx]
}

// percentile interpolates linearly between the two nearest ranks of an
// ascending-sorted slice.
func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
