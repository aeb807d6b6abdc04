package redstack

import (
	"sync/atomic"
	"time"

	"github.com/tinkerforge/red-stackd/internal/interfaces"
)

// Metrics tracks operational statistics for a running Stack.
type Metrics struct {
	TicksRun         atomic.Uint64
	FramesSent       atomic.Uint64
	FramesReceived   atomic.Uint64
	ChecksumErrors   atomic.Uint64
	DiscoveryRetries atomic.Uint64

	QueueDepthTotal atomic.Uint64 // cumulative queue depth samples
	QueueDepthCount atomic.Uint64 // number of queue depth measurements
	MaxQueueDepth   atomic.Uint32

	StartTime atomic.Int64 // UnixNano
	StopTime  atomic.Int64 // UnixNano
}

// NewMetrics creates a new metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// ObserveTick records one polling-engine iteration.
func (m *Metrics) ObserveTick() {
	m.TicksRun.Add(1)
}

// ObserveFrameSent records a successfully sent SPI frame.
func (m *Metrics) ObserveFrameSent() {
	m.FramesSent.Add(1)
}

// ObserveFrameReceived records a successfully received SPI frame.
func (m *Metrics) ObserveFrameReceived() {
	m.FramesReceived.Add(1)
}

// ObserveChecksumError records a received frame that failed validation:
// bad preamble, bad length or bad Pearson checksum.
func (m *Metrics) ObserveChecksumError() {
	m.ChecksumErrors.Add(1)
}

// ObserveDiscoveryRetry records one retry attempt during slave discovery.
func (m *Metrics) ObserveDiscoveryRetry() {
	m.DiscoveryRetries.Add(1)
}

// ObserveQueueDepth records the current outbound queue depth.
func (m *Metrics) ObserveQueueDepth(depth int) {
	m.QueueDepthTotal.Add(uint64(depth))
	m.QueueDepthCount.Add(1)

	for {
		current := m.MaxQueueDepth.Load()
		if uint32(depth) <= current {
			break
		}
		if m.MaxQueueDepth.CompareAndSwap(current, uint32(depth)) {
			break
		}
	}
}

// Stop marks the stack as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics' counters plus derived
// statistics.
type MetricsSnapshot struct {
	TicksRun         uint64
	FramesSent       uint64
	FramesReceived   uint64
	ChecksumErrors   uint64
	DiscoveryRetries uint64

	AvgQueueDepth float64
	MaxQueueDepth uint32

	UptimeNs uint64
	TickRate float64 // ticks per second
}

// Snapshot creates a point-in-time snapshot of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		TicksRun:         m.TicksRun.Load(),
		FramesSent:       m.FramesSent.Load(),
		FramesReceived:   m.FramesReceived.Load(),
		ChecksumErrors:   m.ChecksumErrors.Load(),
		DiscoveryRetries: m.DiscoveryRetries.Load(),
		MaxQueueDepth:    m.MaxQueueDepth.Load(),
	}

	queueDepthTotal := m.QueueDepthTotal.Load()
	queueDepthCount := m.QueueDepthCount.Load()
	if queueDepthCount > 0 {
		snap.AvgQueueDepth = float64(queueDepthTotal) / float64(queueDepthCount)
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		snap.TickRate = float64(snap.TicksRun) / (float64(snap.UptimeNs) / 1e9)
	}

	return snap
}

// Reset resets all counters, useful for testing.
func (m *Metrics) Reset() {
	m.TicksRun.Store(0)
	m.FramesSent.Store(0)
	m.FramesReceived.Store(0)
	m.ChecksumErrors.Store(0)
	m.DiscoveryRetries.Store(0)
	m.QueueDepthTotal.Store(0)
	m.QueueDepthCount.Store(0)
	m.MaxQueueDepth.Store(0)
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Compile-time interface check: Metrics satisfies interfaces.Observer
// directly, the way the teacher's MetricsObserver wrapped its own Metrics.
var _ interfaces.Observer = (*Metrics)(nil)

// NoOpObserver discards every observation. Useful when a Stack is
// constructed without metrics wired in.
type NoOpObserver struct{}

func (NoOpObserver) ObserveTick()            {}
func (NoOpObserver) ObserveFrameSent()       {}
func (NoOpObserver) ObserveFrameReceived()   {}
func (NoOpObserver) ObserveChecksumError()   {}
func (NoOpObserver) ObserveDiscoveryRetry()  {}
func (NoOpObserver) ObserveQueueDepth(int)   {}

var _ interfaces.Observer = NoOpObserver{}
