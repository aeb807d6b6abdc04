package redstack

import (
	"fmt"
	"sync"

	"github.com/tinkerforge/red-stackd/internal/frame"
)

// FakeBus is a scripted internal/interfaces.Bus for tests. Each call to
// Exchange pops the next queued response; if the queue is empty it returns
// an all-zero frame with no preamble (outcome Empty) so callers can exercise
// default "nothing to read" behavior without scripting every tick.
type FakeBus struct {
	mu        sync.Mutex
	Responses [][]byte
	Sent      [][]byte
	Err       error
}

// NewFakeBus creates a FakeBus with no scripted responses.
func NewFakeBus() *FakeBus {
	return &FakeBus{}
}

// QueueResponse appends one scripted response, returned on a future
// Exchange call in FIFO order.
func (b *FakeBus) QueueResponse(rx []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Responses = append(b.Responses, rx)
}

// Exchange implements interfaces.Bus.
func (b *FakeBus) Exchange(tx []byte) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sent := make([]byte, len(tx))
	copy(sent, tx)
	b.Sent = append(b.Sent, sent)

	if b.Err != nil {
		return nil, b.Err
	}

	if len(b.Responses) == 0 {
		empty := make([]byte, frame.Size)
		return empty, nil
	}

	rx := b.Responses[0]
	b.Responses = b.Responses[1:]
	return rx, nil
}

// ExchangeCount returns the number of times Exchange has been called.
func (b *FakeBus) ExchangeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Sent)
}

// FakeSelector records Assert calls and returns an error from Deassert
// when the slot is not the one currently asserted.
type FakeSelector struct {
	mu       sync.Mutex
	Asserted []int
	Err      error
	current  int
}

// NewFakeSelector creates a FakeSelector with no slot currently asserted.
func NewFakeSelector() *FakeSelector {
	return &FakeSelector{current: -1}
}

// Assert implements interfaces.Selector.
func (s *FakeSelector) Assert(slot int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.current = slot
	s.Asserted = append(s.Asserted, slot)
	return nil
}

// Deassert implements interfaces.Selector.
func (s *FakeSelector) Deassert(slot int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if s.current != slot {
		return fmt.Errorf("deassert slot %d while slot %d asserted", slot, s.current)
	}
	s.current = -1
	return nil
}

// FakeHost records calls made against interfaces.HostStack, mirroring the
// teacher's fake-backend pattern for exercising dispatcher glue without a
// real higher-level stack process.
type FakeHost struct {
	mu              sync.Mutex
	Name            string
	OnRequest       func([]byte)
	AddedUIDs       []uint32
	Dispatched      [][]byte
	AddedStacks     []any
	CreateErr       error
	HardwareAddErr  error
}

// NewFakeHost creates an empty FakeHost.
func NewFakeHost() *FakeHost {
	return &FakeHost{}
}

// StackCreate implements interfaces.HostStack.
func (h *FakeHost) StackCreate(name string, onRequest func([]byte)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.CreateErr != nil {
		return h.CreateErr
	}
	h.Name = name
	h.OnRequest = onRequest
	return nil
}

// StackAddUID implements interfaces.HostStack.
func (h *FakeHost) StackAddUID(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.AddedUIDs = append(h.AddedUIDs, uid)
}

// NetworkDispatchResponse implements interfaces.HostStack.
func (h *FakeHost) NetworkDispatchResponse(packet []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cp := make([]byte, len(packet))
	copy(cp, packet)
	h.Dispatched = append(h.Dispatched, cp)
}

// HardwareAddStack implements interfaces.HostStack.
func (h *FakeHost) HardwareAddStack(stack any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.HardwareAddErr != nil {
		return h.HardwareAddErr
	}
	h.AddedStacks = append(h.AddedStacks, stack)
	return nil
}

// DispatchedCount returns how many times NetworkDispatchResponse has been
// called.
func (h *FakeHost) DispatchedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Dispatched)
}
