package redstack

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinkerforge/red-stackd/internal/frame"
	"github.com/tinkerforge/red-stackd/internal/packet"
)

func TestInitRequiresCollaborators(t *testing.T) {
	_, err := Init(Config{})
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeStartupFailure))
}

func TestInitWithNoSlavesSkipsEngine(t *testing.T) {
	bus := NewFakeBus() // every Exchange returns an all-zero (Empty) frame
	sel := NewFakeSelector()
	host := NewFakeHost()

	stack, err := Init(Config{Name: "test-stack", Bus: bus, Selector: sel, Host: host})
	require.NoError(t, err)

	assert.Equal(t, 0, stack.SlaveNum())
	assert.Equal(t, -1, stack.NotificationFD())
	assert.Equal(t, "test-stack", host.Name)

	_, err = stack.DispatchFromSPI()
	assert.Error(t, err)

	err = stack.DispatchToSPI(packet.NewStackEnumerateRequest())
	assert.Error(t, err)

	require.NoError(t, stack.Exit())
}

func TestInitDiscoversOneSlaveAndRegistersUID(t *testing.T) {
	bus := NewFakeBus()
	enumResp := packet.Header{Function: packet.FunctionStackEnumerate}.Marshal()
	enumResp = append(enumResp, leUint32(777)...)
	respFrame := frame.Build(enumResp, 0)
	// discovery's send phase consumes one response before the receive
	// phase even starts (classifySend ignores response content), so the
	// real payload needs to be queued again for the receive phase to see it.
	bus.QueueResponse(respFrame[:])
	bus.QueueResponse(respFrame[:])

	sel := NewFakeSelector()
	host := NewFakeHost()

	stack, err := Init(Config{Name: "test-stack", Bus: bus, Selector: sel, Host: host})
	require.NoError(t, err)
	defer stack.Exit()

	assert.Equal(t, 1, stack.SlaveNum())
	assert.Contains(t, host.AddedUIDs, uint32(777))
	assert.GreaterOrEqual(t, stack.NotificationFD(), 0)
}

func TestDispatchToSPIRejectsUnknownUID(t *testing.T) {
	bus := NewFakeBus()
	enumResp := packet.Header{Function: packet.FunctionStackEnumerate}.Marshal()
	enumResp = append(enumResp, leUint32(42)...)
	respFrame := frame.Build(enumResp, 0)
	bus.QueueResponse(respFrame[:])
	bus.QueueResponse(respFrame[:])

	stack, err := Init(Config{Name: "test-stack", Bus: bus, Selector: NewFakeSelector(), Host: NewFakeHost()})
	require.NoError(t, err)
	defer stack.Exit()

	req := packet.Header{UID: 999, Length: packet.HeaderSize}.Marshal()
	err = stack.DispatchToSPI(req)
	assert.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeRouting))

	req = packet.Header{UID: 42, Length: packet.HeaderSize}.Marshal()
	assert.NoError(t, stack.DispatchToSPI(req))
}

func TestRunDeliversResponsesToHost(t *testing.T) {
	bus := NewFakeBus()
	enumResp := packet.Header{Function: packet.FunctionStackEnumerate}.Marshal()
	enumResp = append(enumResp, leUint32(42)...)
	respFrame := frame.Build(enumResp, 0)
	bus.QueueResponse(respFrame[:])
	bus.QueueResponse(respFrame[:])

	host := NewFakeHost()
	stack, err := Init(Config{Name: "test-stack", Bus: bus, Selector: NewFakeSelector(), Host: host})
	require.NoError(t, err)

	// Queued once discovery's two calls are drained, staged for the
	// polling engine's first tick once Run starts.
	dataResp := packet.Header{UID: 42, Length: packet.HeaderSize}.Marshal()
	dataFrame := frame.Build(dataResp, 0)
	bus.QueueResponse(dataFrame[:])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		stack.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return host.DispatchedCount() > 0
	}, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, stack.Exit())
	<-done
}

func leUint32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
