// Package interfaces provides internal interface definitions for
// red-stackd. These are separate from the top-level package's exported
// types to avoid import cycles between it and the internal/* packages
// that need to share these contracts.
package interfaces

import "time"

// Bus performs one full-duplex exchange of exactly frame.Size bytes with
// whichever slave is currently selected. Implementations wrap either the
// periph.io sysfs SPI driver or a raw spidev ioctl.
type Bus interface {
	Exchange(tx []byte) (rx []byte, err error)
}

// Selector drives the chip-select GPIO for a stack slot. Exactly one slot
// is asserted at a time; the bus itself has no notion of addressing.
type Selector interface {
	Assert(slot int) error
	Deassert(slot int) error
}

// Clock abstracts the monotonic clock and absolute sleep used by the
// polling engine, so tests can drive ticks without real wall-clock delay.
type Clock interface {
	Now() time.Time
	SleepUntil(deadline time.Time)
}

// Logger is the leveled logging interface consumed throughout red-stackd.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Observer collects operational metrics. Implementations must be
// thread-safe: methods are called from the polling goroutine.
type Observer interface {
	ObserveTick()
	ObserveFrameSent()
	ObserveFrameReceived()
	ObserveChecksumError()
	ObserveDiscoveryRetry()
	ObserveQueueDepth(depth int)
}

// HostStack is the higher-level dispatcher this daemon registers with.
// It is an external collaborator (see spec §1); red-stackd's core only
// calls it. The implementations in this module are the placeholder
// consoleHost in cmd/red-stackd and the FakeHost test double.
type HostStack interface {
	StackCreate(name string, onRequest func(packet []byte)) error
	StackAddUID(uid uint32)
	NetworkDispatchResponse(packet []byte)
	HardwareAddStack(stack any) error
}
