// Package handoff implements the single-slot producer/consumer buffer
// that couples the SPI polling goroutine to the event goroutine: exactly
// one received packet is staged at a time, with a binary permit that the
// engine blocks on until the event loop has consumed the packet.
package handoff

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Handoff is created only once discovery has confirmed there is at least
// one present slave (see Open Question resolution in DESIGN.md): a Stack
// with no slaves never allocates the notification pipe or permit.
type Handoff struct {
	packet []byte

	readFD, writeFD int
	permit          chan struct{}
}

// New creates the notification pipe and the binary permit. The permit
// starts empty: the first Stage call blocks until the event goroutine has
// consumed a packet and released it, exactly as the brickd hand-off
// semaphore starts at 0.
func New() (*Handoff, error) {
	var p [2]int
	if err := unixPipe2(&p); err != nil {
		return nil, fmt.Errorf("handoff: create notification pipe: %w", err)
	}
	return &Handoff{
		readFD:  p[0],
		writeFD: p[1],
		permit:  make(chan struct{}, 1),
	}, nil
}

// unixPipe2 is split out so tests on non-Linux build tags could stub it;
// on Linux it is a thin wrapper over unix.Pipe2.
func unixPipe2(p *[2]int) error {
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_CLOEXEC); err != nil {
		return err
	}
	p[0], p[1] = fds[0], fds[1]
	return nil
}

// ReadFD is the file descriptor the event loop registers for readiness
// (EVENT_READ in the higher-level dispatcher's terms).
func (h *Handoff) ReadFD() int {
	return h.readFD
}

// Stage is called by the polling goroutine: it writes packet into the
// buffer, signals the notification pipe, and blocks until the event loop
// has called Release. Only one packet is ever staged at a time; the
// invariant is enforced by this call itself blocking the next Stage.
func (h *Handoff) Stage(packet []byte) error {
	h.packet = packet
	if _, err := unix.Write(h.writeFD, []byte{0}); err != nil {
		return fmt.Errorf("handoff: notify: %w", err)
	}
	<-h.permit
	return nil
}

// Consume is called by the event goroutine on notification: it drains the
// one-byte wakeup, returns the staged packet, and releases the permit so
// the polling goroutine may proceed to its next tick.
func (h *Handoff) Consume() ([]byte, error) {
	var b [1]byte
	if _, err := unix.Read(h.readFD, b[:]); err != nil {
		return nil, fmt.Errorf("handoff: read notification: %w", err)
	}
	packet := h.packet
	h.release()
	return packet, nil
}

func (h *Handoff) release() {
	select {
	case h.permit <- struct{}{}:
	default:
	}
}

// Close releases the pipe file descriptors. Safe to call once the
// polling goroutine has exited.
func (h *Handoff) Close() error {
	err1 := unix.Close(h.readFD)
	err2 := unix.Close(h.writeFD)
	if err1 != nil {
		return err1
	}
	return err2
}
