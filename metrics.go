package wtf

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the save-latency histogram buckets in nanoseconds.
// Buckets cover from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks performance and operational statistics for a Runtime.
type Metrics struct {
	// Event counters.
	EventsEmitted   atomic.Uint64 // Total events appended across all buffers
	ScopesEntered   atomic.Uint64 // Total Enter-class events
	ScopesLeft      atomic.Uint64 // Total ScopeLeave events
	DroppedSlots    atomic.Uint64 // Slot writes skipped because a buffer chunk was full

	// Byte and chunk counters.
	BytesWritten    atomic.Uint64 // Total bytes written across all Save calls
	ChunksAllocated atomic.Uint64 // Total EventBuffer chunks allocated
	ChunksFlushed   atomic.Uint64 // Total chunks handed off to a save

	// Save lifecycle.
	SavesStarted    atomic.Uint64
	SavesCompleted  atomic.Uint64
	SaveErrors      atomic.Uint64

	// Save latency tracking.
	TotalSaveLatencyNs atomic.Uint64
	SaveCount          atomic.Uint64
	LatencyBuckets     [numLatencyBuckets]atomic.Uint64

	// Runtime lifecycle.
	StartTime atomic.Int64 // Runtime creation timestamp (UnixNano)
	StopTime  atomic.Int64 // ResetForTesting / shutdown timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordEvent records a single emitted event.
func (m *Metrics) RecordEvent(isScopeEnter, isScopeLeave bool) {
	m.EventsEmitted.Add(1)
	if isScopeEnter {
		m.ScopesEntered.Add(1)
	}
	if isScopeLeave {
		m.ScopesLeft.Add(1)
	}
}

// RecordDroppedSlots records slots that could not be written because a
// chunk ran out of room before the caller could retry against a new one.
func (m *Metrics) RecordDroppedSlots(n uint64) {
	m.DroppedSlots.Add(n)
}

// RecordChunkAllocated records a new EventBuffer chunk coming online.
func (m *Metrics) RecordChunkAllocated() {
	m.ChunksAllocated.Add(1)
}

// RecordChunkFlushed records a chunk being handed off to a save pass.
func (m *Metrics) RecordChunkFlushed() {
	m.ChunksFlushed.Add(1)
}

// RecordSave records the outcome and latency of one Save/SaveToFile call.
func (m *Metrics) RecordSave(bytesWritten uint64, latencyNs uint64, err error) {
	m.SavesStarted.Add(1)
	if err != nil {
		m.SaveErrors.Add(1)
		return
	}
	m.SavesCompleted.Add(1)
	m.BytesWritten.Add(bytesWritten)
	m.recordLatency(latencyNs)
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalSaveLatencyNs.Add(latencyNs)
	m.SaveCount.Add(1)

	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the runtime as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	EventsEmitted uint64
	ScopesEntered uint64
	ScopesLeft    uint64
	DroppedSlots  uint64

	BytesWritten    uint64
	ChunksAllocated uint64
	ChunksFlushed   uint64

	SavesStarted   uint64
	SavesCompleted uint64
	SaveErrors     uint64

	AvgSaveLatencyNs uint64
	UptimeNs         uint64

	SaveLatencyP50Ns  uint64
	SaveLatencyP99Ns  uint64
	SaveLatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	EventsPerSecond float64
	SaveErrorRate   float64 // Percentage of Save attempts that failed
}

// SaveCountFromHistogram returns the count represented by the histogram's
// top bucket, which is cumulative and therefore the total sample count
// when every recorded latency fell within the buckets' range.
func (s MetricsSnapshot) SaveCountFromHistogram() uint64 {
	return s.LatencyHistogram[numLatencyBuckets-1]
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		EventsEmitted:   m.EventsEmitted.Load(),
		ScopesEntered:   m.ScopesEntered.Load(),
		ScopesLeft:      m.ScopesLeft.Load(),
		DroppedSlots:    m.DroppedSlots.Load(),
		BytesWritten:    m.BytesWritten.Load(),
		ChunksAllocated: m.ChunksAllocated.Load(),
		ChunksFlushed:   m.ChunksFlushed.Load(),
		SavesStarted:    m.SavesStarted.Load(),
		SavesCompleted:  m.SavesCompleted.Load(),
		SaveErrors:      m.SaveErrors.Load(),
	}

	totalLatencyNs := m.TotalSaveLatencyNs.Load()
	saveCount := m.SaveCount.Load()
	if saveCount > 0 {
		snap.AvgSaveLatencyNs = totalLatencyNs / saveCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		uptimeSeconds := float64(snap.UptimeNs) / 1e9
		snap.EventsPerSecond = float64(snap.EventsEmitted) / uptimeSeconds
	}

	if snap.SavesStarted > 0 {
		snap.SaveErrorRate = float64(snap.SaveErrors) / float64(snap.SavesStarted) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if saveCount > 0 {
		snap.SaveLatencyP50Ns = m.calculatePercentile(0.50)
		snap.SaveLatencyP99Ns = m.calculatePercentile(0.99)
		snap.SaveLatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile (0.0-1.0)
// using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.SaveCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset resets all metrics counters. Useful for testing.
func (m *Metrics) Reset() {
	m.EventsEmitted.Store(0)
	m.ScopesEntered.Store(0)
	m.ScopesLeft.Store(0)
	m.DroppedSlots.Store(0)
	m.BytesWritten.Store(0)
	m.ChunksAllocated.Store(0)
	m.ChunksFlushed.Store(0)
	m.SavesStarted.Store(0)
	m.SavesCompleted.Store(0)
	m.SaveErrors.Store(0)
	m.TotalSaveLatencyNs.Store(0)
	m.SaveCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection for a Runtime.
type Observer interface {
	// ObserveEvent is called for each emitted event.
	ObserveEvent(isScopeEnter, isScopeLeave bool)

	// ObserveSave is called once per Save/SaveToFile call.
	ObserveSave(bytesWritten uint64, latencyNs uint64, err error)

	// ObserveChunkAllocated is called when a new EventBuffer chunk is
	// brought online.
	ObserveChunkAllocated()
}

// NoOpObserver is a no-op implementation of Observer.
type NoOpObserver struct{}

func (NoOpObserver) ObserveEvent(bool, bool)             {}
func (NoOpObserver) ObserveSave(uint64, uint64, error)   {}
func (NoOpObserver) ObserveChunkAllocated()              {}

// MetricsObserver implements Observer using the built-in Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveEvent(isScopeEnter, isScopeLeave bool) {
	o.metrics.RecordEvent(isScopeEnter, isScopeLeave)
}

func (o *MetricsObserver) ObserveSave(bytesWritten uint64, latencyNs uint64, err error) {
	o.metrics.RecordSave(bytesWritten, latencyNs, err)
}

func (o *MetricsObserver) ObserveChunkAllocated() {
	o.metrics.RecordChunkAllocated()
}

// Compile-time interface checks.
var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
