package redstack

import (
	"testing"
	"time"
)

func TestMetricsInitialState(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	if snap.TicksRun != 0 {
		t.Errorf("Expected 0 initial ticks, got %d", snap.TicksRun)
	}
}

func TestMetricsObservations(t *testing.T) {
	m := NewMetrics()

	m.ObserveTick()
	m.ObserveTick()
	m.ObserveFrameSent()
	m.ObserveFrameReceived()
	m.ObserveChecksumError()
	m.ObserveDiscoveryRetry()

	snap := m.Snapshot()
	if snap.TicksRun != 2 {
		t.Errorf("Expected 2 ticks, got %d", snap.TicksRun)
	}
	if snap.FramesSent != 1 {
		t.Errorf("Expected 1 frame sent, got %d", snap.FramesSent)
	}
	if snap.FramesReceived != 1 {
		t.Errorf("Expected 1 frame received, got %d", snap.FramesReceived)
	}
	if snap.ChecksumErrors != 1 {
		t.Errorf("Expected 1 checksum error, got %d", snap.ChecksumErrors)
	}
	if snap.DiscoveryRetries != 1 {
		t.Errorf("Expected 1 discovery retry, got %d", snap.DiscoveryRetries)
	}
}

func TestMetricsQueueDepth(t *testing.T) {
	m := NewMetrics()

	m.ObserveQueueDepth(10)
	m.ObserveQueueDepth(20)
	m.ObserveQueueDepth(15)

	snap := m.Snapshot()

	if snap.MaxQueueDepth != 20 {
		t.Errorf("Expected max queue depth 20, got %d", snap.MaxQueueDepth)
	}

	expectedAvg := float64(10+20+15) / 3.0
	if snap.AvgQueueDepth < expectedAvg-0.1 || snap.AvgQueueDepth > expectedAvg+0.1 {
		t.Errorf("Expected avg queue depth %.1f, got %.1f", expectedAvg, snap.AvgQueueDepth)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()

	time.Sleep(10 * time.Millisecond)

	snap := m.Snapshot()
	if snap.UptimeNs < 10*1000000 {
		t.Errorf("Expected uptime >= 10ms, got %d ns", snap.UptimeNs)
	}

	m.Stop()
	time.Sleep(5 * time.Millisecond)

	snap2 := m.Snapshot()
	if snap2.UptimeNs > snap.UptimeNs+2*1000000 {
		t.Errorf("Uptime increased too much after stop: %d -> %d", snap.UptimeNs, snap2.UptimeNs)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()

	m.ObserveTick()
	m.ObserveFrameSent()
	m.ObserveQueueDepth(10)

	snap := m.Snapshot()
	if snap.TicksRun == 0 {
		t.Error("Expected some ticks before reset")
	}

	m.Reset()

	snap = m.Snapshot()
	if snap.TicksRun != 0 {
		t.Errorf("Expected 0 ticks after reset, got %d", snap.TicksRun)
	}
	if snap.MaxQueueDepth != 0 {
		t.Errorf("Expected 0 max queue depth after reset, got %d", snap.MaxQueueDepth)
	}
}

func TestNoOpObserverDoesNotPanic(t *testing.T) {
	var observer NoOpObserver
	observer.ObserveTick()
	observer.ObserveFrameSent()
	observer.ObserveFrameReceived()
	observer.ObserveChecksumError()
	observer.ObserveDiscoveryRetry()
	observer.ObserveQueueDepth(10)
}

func TestMetricsTickRate(t *testing.T) {
	m := NewMetrics()

	startTime := time.Now()
	m.StartTime.Store(startTime.UnixNano())

	for i := 0; i < 10; i++ {
		m.ObserveTick()
	}

	stopTime := startTime.Add(1 * time.Second)
	m.StopTime.Store(stopTime.UnixNano())

	snap := m.Snapshot()
	if snap.TickRate < 9 || snap.TickRate > 11 {
		t.Errorf("Expected TickRate ~10, got %.2f", snap.TickRate)
	}
}
