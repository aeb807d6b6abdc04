// Package redstack bridges the RED Brick's SPI stack bus to the
// higher-level daemon event loop: it discovers stack slaves at startup,
// runs the 500us polling engine that multiplexes requests and responses
// by UID, and exposes the dispatcher glue (DispatchToSPI/DispatchFromSPI)
// the higher-level stack index calls into.
package redstack

import (
	"context"
	"fmt"

	"github.com/tinkerforge/red-stackd/internal/discovery"
	"github.com/tinkerforge/red-stackd/internal/extboot"
	"github.com/tinkerforge/red-stackd/internal/frame"
	"github.com/tinkerforge/red-stackd/internal/handoff"
	"github.com/tinkerforge/red-stackd/internal/interfaces"
	"github.com/tinkerforge/red-stackd/internal/logging"
	"github.com/tinkerforge/red-stackd/internal/outqueue"
	"github.com/tinkerforge/red-stackd/internal/packet"
	"github.com/tinkerforge/red-stackd/internal/pollengine"
	"github.com/tinkerforge/red-stackd/internal/slavetable"
)

// Config carries everything needed to construct a Stack. Bus, Selector and
// Host are required; the rest default to sane production values.
type Config struct {
	Name string

	Bus      interfaces.Bus
	Selector interfaces.Selector
	Host     interfaces.HostStack

	Logger       interfaces.Logger
	Observer     interfaces.Observer
	Clock        interfaces.Clock
	Bootstrapper extboot.Bootstrapper

	// SlotPins is hardware-specific metadata recorded in the slave table;
	// the actual GPIO drive happens through Selector, not this field.
	SlotPins [slavetable.MaxSlaves]int
}

// Stack is one SPI stack bus: its slave table, polling engine, and the
// glue that lets the higher-level dispatcher push requests in and receive
// responses out.
type Stack struct {
	name string

	bus      interfaces.Bus
	sel      interfaces.Selector
	host     interfaces.HostStack
	logger   interfaces.Logger
	observer interfaces.Observer

	table   *slavetable.Table
	queue   *outqueue.Queue
	handoff *handoff.Handoff
	engine  *pollengine.Engine

	cancel context.CancelFunc
}

// Init performs startup: extension-slot bootstrap (out of core, a no-op
// unless a real Bootstrapper is supplied), slave discovery, and — only if
// at least one slave answered — allocation of the outbound queue, hand-off
// buffer and polling engine, followed by registration with the
// higher-level host stack index.
//
// Any failure partway through unwinds everything already constructed, in
// reverse order, mirroring red_stack_init's phased rollback on error.
func Init(cfg Config) (*Stack, error) {
	if cfg.Bus == nil || cfg.Selector == nil || cfg.Host == nil {
		return nil, NewError("INIT", ErrCodeStartupFailure, "Bus, Selector and Host are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = NoOpObserver{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = pollengine.NewRealClock()
	}
	bootstrapper := cfg.Bootstrapper
	if bootstrapper == nil {
		bootstrapper = extboot.NullBootstrapper{}
	}

	var rb rollback

	for slot := 0; slot < 2; slot++ {
		if _, err := bootstrapper.DetectExtensionType(slot); err != nil {
			rb.unwind()
			return nil, WrapError("INIT", err)
		}
	}

	table := slavetable.New(cfg.SlotPins)

	s := &Stack{
		name:     cfg.Name,
		bus:      cfg.Bus,
		sel:      cfg.Selector,
		host:     cfg.Host,
		logger:   logger,
		observer: observer,
		table:    table,
	}

	register := func(uid uint32) {
		s.host.StackAddUID(uid)
	}
	discovery.Run(cfg.Bus, cfg.Selector, table, register, logger, observer)

	if table.SlaveNum() == 0 {
		logger.Info("no stack slaves present, polling engine will not start", "name", cfg.Name)
		if err := cfg.Host.StackCreate(cfg.Name, s.DispatchToSPI); err != nil {
			rb.unwind()
			return nil, WrapError("INIT", err)
		}
		return s, nil
	}

	s.queue = outqueue.New()

	ho, err := handoff.New()
	if err != nil {
		rb.unwind()
		return nil, NewError("INIT", ErrCodeStartupFailure, fmt.Sprintf("create hand-off: %v", err))
	}
	rb.add(func() { ho.Close() })
	s.handoff = ho

	s.engine = &pollengine.Engine{
		Bus:      cfg.Bus,
		Selector: cfg.Selector,
		Table:    table,
		Queue:    s.queue,
		Handoff:  ho,
		Clock:    clock,
		Logger:   logger,
		Observer: observer,
	}

	if err := cfg.Host.StackCreate(cfg.Name, s.DispatchToSPI); err != nil {
		rb.unwind()
		return nil, WrapError("INIT", err)
	}

	if err := cfg.Host.HardwareAddStack(s); err != nil {
		rb.unwind()
		return nil, WrapError("INIT", err)
	}

	return s, nil
}

// Run starts the polling engine and the hand-off drain loop, blocking until
// ctx is cancelled. If no slaves were discovered it returns at once.
func (s *Stack) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	if s.engine == nil {
		// Nothing to poll: the polling thread exits immediately, matching
		// discovery's slave_num == 0 shutdown behavior.
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.engine.Run(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			<-done
			return
		default:
		}

		resp, err := s.handoff.Consume()
		if err != nil {
			if ctx.Err() != nil {
				<-done
				return
			}
			s.logger.Error("handoff consume failed", "err", err)
			continue
		}
		s.host.NetworkDispatchResponse(resp)
	}
}

// Exit cancels the polling engine (if running) and releases the hand-off
// resources. Safe to call even if the stack has no slaves.
func (s *Stack) Exit() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.handoff != nil {
		return s.handoff.Close()
	}
	return nil
}

// DispatchToSPI resolves the target slave(s) for request (by the UID in
// its packet header) and enqueues it for the polling engine. UID 0
// broadcasts to every present slave; an unknown non-zero UID or a request
// too large to fit a frame is dropped with an error log, never retried.
func (s *Stack) DispatchToSPI(request []byte) error {
	if s.queue == nil {
		return NewError("DISPATCH_TO_SPI", ErrCodeNoSlaves, "no stack slaves present")
	}

	hdr, ok := packet.UnmarshalHeader(request)
	if !ok {
		return NewError("DISPATCH_TO_SPI", ErrCodeFrame, "request shorter than packet header")
	}

	if len(request) > frame.MaxPayload {
		s.logger.Error("dispatch to spi: oversize request", "uid", hdr.UID, "len", len(request))
		return NewError("DISPATCH_TO_SPI", ErrCodeOversizeRequest, fmt.Sprintf("request of %d bytes exceeds max payload %d", len(request), frame.MaxPayload))
	}

	if hdr.UID == packet.BroadcastUID {
		n := s.table.SlaveNum()
		for i := 0; i < n; i++ {
			s.queue.Push(outqueue.WorkItem{Slave: &s.table.Slaves[i], Packet: request})
		}
		return nil
	}

	slave := s.table.SlaveForUID(hdr.UID)
	if slave == nil {
		s.logger.Error("dispatch to spi: unknown UID", "uid", hdr.UID)
		return NewError("DISPATCH_TO_SPI", ErrCodeRouting, fmt.Sprintf("unknown UID %d", hdr.UID))
	}

	s.queue.Push(outqueue.WorkItem{Slave: slave, Packet: request})
	return nil
}

// DispatchFromSPI drains one staged response packet directly, bypassing
// Run's own drain loop. Exposed for callers that integrate the hand-off's
// read fd into their own event loop instead of using Run.
func (s *Stack) DispatchFromSPI() ([]byte, error) {
	if s.handoff == nil {
		return nil, NewError("DISPATCH_FROM_SPI", ErrCodeNoSlaves, "no stack slaves present")
	}
	return s.handoff.Consume()
}

// NotificationFD returns the hand-off's readiness fd for registration with
// an external event loop, or -1 if no slaves were discovered.
func (s *Stack) NotificationFD() int {
	if s.handoff == nil {
		return -1
	}
	return s.handoff.ReadFD()
}

// SlaveNum reports how many slaves were discovered.
func (s *Stack) SlaveNum() int {
	return s.table.SlaveNum()
}

// Name returns the stack's registered name.
func (s *Stack) Name() string {
	return s.name
}
