// Package pollengine drives the 500us periodic SPI polling loop: send
// priority over round-robin, checksum/preamble-validated framed exchanges,
// and the hand-off of received packets to the event loop.
package pollengine

import (
	"context"
	"time"

	"github.com/tinkerforge/red-stackd/internal/handoff"
	"github.com/tinkerforge/red-stackd/internal/interfaces"
	"github.com/tinkerforge/red-stackd/internal/outqueue"
	"github.com/tinkerforge/red-stackd/internal/slavetable"
	"github.com/tinkerforge/red-stackd/internal/spibus"
)

// TickInterval is the nominal period between SPI exchanges.
const TickInterval = 500 * time.Microsecond

// Engine owns the round-robin cursor and runs the periodic tick loop.
type Engine struct {
	Bus      interfaces.Bus
	Selector interfaces.Selector
	Table    *slavetable.Table
	Queue    *outqueue.Queue
	Handoff  *handoff.Handoff
	Clock    interfaces.Clock
	Logger   interfaces.Logger
	Observer interfaces.Observer

	cursor int
}

// realClock is the default interfaces.Clock. SleepUntil sleeps for the time
// remaining until deadline, measured on Go's monotonic clock reading, and
// returns at once if the deadline has already passed; it does not call
// clock_nanosleep.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) SleepUntil(deadline time.Time) {
	d := time.Until(deadline)
	if d > 0 {
		time.Sleep(d)
	}
}

// NewRealClock returns the production Clock implementation. Exposed so
// Stack construction can wire it explicitly rather than Engine defaulting
// silently.
func NewRealClock() interfaces.Clock { return realClock{} }

// Run executes the tick loop until ctx is cancelled. It assumes discovery
// has already populated e.Table and that e.Table.SlaveNum() > 0; callers
// are responsible for not starting the engine otherwise (see Open
// Question resolution: no queue/handoff is even allocated when there are
// no slaves).
func (e *Engine) Run(ctx context.Context) {
	deadline := e.Clock.Now()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		e.tick()
		if e.Observer != nil {
			e.Observer.ObserveTick()
			e.Observer.ObserveQueueDepth(e.Queue.Len())
		}

		deadline = deadline.Add(TickInterval)
		e.Clock.SleepUntil(deadline)
		deadline = e.Clock.Now()
	}
}

// tick executes exactly one iteration: peek-with-priority, transceive,
// pop-on-send, stage-and-block-on-receive.
func (e *Engine) tick() {
	n := e.Table.SlaveNum()
	if n == 0 {
		return
	}

	work, hasWork := e.Queue.Peek()

	var slave *slavetable.Slave
	var request []byte
	if hasWork {
		slave = work.Slave
		request = work.Packet
	} else {
		slave = &e.Table.Slaves[e.cursor]
		e.cursor = (e.cursor + 1) % n
	}

	outcome, err := spibus.Transceive(e.Bus, e.Selector, slave, request)
	if err != nil {
		if e.Logger != nil {
			e.Logger.Error("spi transceive failed", "slave", slave.StackAddress, "err", err)
		}
		return
	}

	if outcome.DataSent {
		e.Queue.Pop()
		if e.Observer != nil {
			e.Observer.ObserveFrameSent()
		}
	}

	if outcome.Read == spibus.ReadError {
		if e.Observer != nil {
			e.Observer.ObserveChecksumError()
		}
		if e.Logger != nil {
			e.Logger.Error("spi frame error", "slave", slave.StackAddress)
		}
	}

	if outcome.DataReceived {
		if e.Observer != nil {
			e.Observer.ObserveFrameReceived()
		}
		if err := e.Handoff.Stage(outcome.Payload); err != nil && e.Logger != nil {
			e.Logger.Error("handoff stage failed", "err", err)
		}
	}
}
