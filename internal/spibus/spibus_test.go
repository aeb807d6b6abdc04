package spibus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinkerforge/red-stackd/internal/frame"
	"github.com/tinkerforge/red-stackd/internal/slavetable"
)

type scriptedBus struct {
	rx  []byte
	err error
}

func (b *scriptedBus) Exchange(tx []byte) ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.rx, nil
}

type recordingSelector struct {
	asserted, deasserted []int
	err                  error
}

func (s *recordingSelector) Assert(slot int) error {
	s.asserted = append(s.asserted, slot)
	return s.err
}

func (s *recordingSelector) Deassert(slot int) error {
	s.deasserted = append(s.deasserted, slot)
	return nil
}

func okResponseBytes(payload []byte, info byte) []byte {
	raw := frame.Build(payload, info)
	return raw[:]
}

func TestTransceiveRejectsAbsentSlave(t *testing.T) {
	slave := &slavetable.Slave{Status: slavetable.Absent}
	_, err := Transceive(&scriptedBus{}, &recordingSelector{}, slave, nil)
	assert.ErrorIs(t, err, errAbsentSlave)
}

func TestTransceiveRejectsOversizeRequest(t *testing.T) {
	slave := &slavetable.Slave{Status: slavetable.Available}
	request := make([]byte, frame.MaxPayload+1)

	out, err := Transceive(&scriptedBus{}, &recordingSelector{}, slave, request)
	require.ErrorIs(t, err, errOversizeRequest)
	assert.Equal(t, SentError, out.Sent)
}

func TestTransceivePollOnlyWhenSlaveBusy(t *testing.T) {
	slave := &slavetable.Slave{Status: slavetable.AvailableBusy}
	bus := &scriptedBus{rx: okResponseBytes(nil, 0)}
	sel := &recordingSelector{}

	out, err := Transceive(bus, sel, slave, []byte("request"))
	require.NoError(t, err)
	assert.Equal(t, SentNone, out.Sent)
	assert.False(t, out.DataSent)
}

func TestTransceiveSendsWhenSlaveAvailable(t *testing.T) {
	slave := &slavetable.Slave{Status: slavetable.Available}
	bus := &scriptedBus{rx: okResponseBytes(nil, 0)}

	out, err := Transceive(bus, &recordingSelector{}, slave, []byte("request"))
	require.NoError(t, err)
	assert.True(t, out.DataSent)
	assert.Equal(t, SentOK, out.Sent)
}

func TestTransceiveReceivesPayload(t *testing.T) {
	slave := &slavetable.Slave{Status: slavetable.Available}
	bus := &scriptedBus{rx: okResponseBytes([]byte("hello!!!"), 0)}

	out, err := Transceive(bus, &recordingSelector{}, slave, nil)
	require.NoError(t, err)
	assert.True(t, out.DataReceived)
	assert.Equal(t, []byte("hello!!!"), out.Payload)
}

func TestTransceiveUpdatesSlaveBusyFromResponse(t *testing.T) {
	slave := &slavetable.Slave{Status: slavetable.Available}
	bus := &scriptedBus{rx: okResponseBytes(nil, 1)} // busy bit set

	_, err := Transceive(bus, &recordingSelector{}, slave, nil)
	require.NoError(t, err)
	assert.Equal(t, slavetable.AvailableBusy, slave.Status)
}

func TestTransceiveShortTransferIsError(t *testing.T) {
	slave := &slavetable.Slave{Status: slavetable.Available}
	bus := &scriptedBus{rx: make([]byte, frame.Size-1)}

	out, err := Transceive(bus, &recordingSelector{}, slave, nil)
	require.Error(t, err)
	assert.Equal(t, SentError, out.Sent)
	assert.Equal(t, ReadError, out.Read)
}

func TestTransceiveTransportErrorClearsSentOK(t *testing.T) {
	slave := &slavetable.Slave{Status: slavetable.Available}
	bus := &scriptedBus{err: errors.New("spi transfer failed")}

	out, err := Transceive(bus, &recordingSelector{}, slave, []byte("x"))
	require.Error(t, err)
	assert.Equal(t, SentError, out.Sent)
	assert.Equal(t, ReadError, out.Read)
}

func TestTransceiveChecksumErrorIsReadError(t *testing.T) {
	slave := &slavetable.Slave{Status: slavetable.Available}
	raw := frame.Build([]byte("payload!"), 0)
	raw[raw[1]-1] ^= 0xFF // checksum byte sits at index length-1
	bus := &scriptedBus{rx: raw[:]}

	out, err := Transceive(bus, &recordingSelector{}, slave, nil)
	require.NoError(t, err)
	assert.Equal(t, ReadError, out.Read)
	assert.False(t, out.DataReceived)
}

func TestTransceiveAssertsAndDeassertsSameSlot(t *testing.T) {
	slave := &slavetable.Slave{Status: slavetable.Available, StackAddress: 3}
	bus := &scriptedBus{rx: okResponseBytes(nil, 0)}
	sel := &recordingSelector{}

	_, err := Transceive(bus, sel, slave, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, sel.asserted)
	assert.Equal(t, []int{3}, sel.deasserted)
}
