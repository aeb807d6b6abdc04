// Package spibus performs the single full-duplex SPI exchange that the
// polling engine issues once per tick, and interprets the result against
// a slave's current state.
package spibus

import (
	"github.com/tinkerforge/red-stackd/internal/frame"
	"github.com/tinkerforge/red-stackd/internal/interfaces"
	"github.com/tinkerforge/red-stackd/internal/slavetable"
)

// SentStatus classifies what happened to the outgoing side of an exchange.
type SentStatus int

const (
	SentOK SentStatus = iota
	SentNone
	SentBusy
	SentError
)

// ReadStatus classifies what happened to the incoming side of an exchange.
type ReadStatus int

const (
	ReadOK ReadStatus = iota
	ReadNone
	ReadError
)

// Outcome is the combined result of one Transceive call.
type Outcome struct {
	Sent         SentStatus
	Read         ReadStatus
	DataSent     bool
	DataReceived bool
	Payload      []byte
	Busy         bool
}

// Transceive performs one exchange with slave: builds the TX frame (a
// poll-only frame if request is empty or slave is AvailableBusy), asserts
// the slave's chip-select, issues the fixed 84-byte full-duplex transfer,
// deasserts chip-select, and parses the response. On a frame that parses
// OK, slave.Status is updated from the response's busy bit.
//
// slave.Status must not be Absent; callers are responsible for never
// selecting an absent slot (see slavetable.Table.SlaveNum).
func Transceive(bus interfaces.Bus, sel interfaces.Selector, slave *slavetable.Slave, request []byte) (Outcome, error) {
	if slave.Status == slavetable.Absent {
		return Outcome{Sent: SentError, Read: ReadError}, errAbsentSlave
	}

	var tx [frame.Size]byte
	switch {
	case len(request) == 0 || slave.Status == slavetable.AvailableBusy:
		tx = frame.BuildPollOnly(0)
	default:
		if len(request) > frame.MaxPayload {
			return Outcome{Sent: SentError, Read: ReadError}, errOversizeRequest
		}
		tx = frame.Build(request, 0)
	}

	if err := sel.Assert(slave.StackAddress); err != nil {
		return Outcome{Sent: SentError, Read: ReadError}, err
	}
	rx, err := bus.Exchange(tx[:])
	deselectErr := sel.Deassert(slave.StackAddress)

	if err != nil || deselectErr != nil || len(rx) != frame.Size {
		return Outcome{Sent: SentError, Read: ReadError}, firstErr(err, deselectErr, errShortTransfer(len(rx)))
	}

	var rxFrame [frame.Size]byte
	copy(rxFrame[:], rx)
	result := frame.Parse(rxFrame)

	out := classifySend(request, slave.Status, tx)

	switch result.Outcome {
	case frame.Empty:
		out.Read = ReadNone
		return out, nil
	case frame.BadPreamble, frame.BadLength, frame.BadChecksum:
		out.Read = ReadError
		return out, nil
	}

	// frame.OK past this point.
	if result.Busy {
		slave.Status = slavetable.AvailableBusy
	} else {
		slave.Status = slavetable.Available
	}
	out.Busy = result.Busy

	if result.Payload == nil {
		out.Read = ReadNone
		return out, nil
	}

	out.Read = ReadOK
	out.DataReceived = true
	out.Payload = result.Payload
	return out, nil
}

// classifySend determines the SENT/DATA_SENT half of the outcome from
// what was actually placed in the TX frame, before the transfer result is
// known to have been read back.
func classifySend(request []byte, statusBefore slavetable.Status, tx [frame.Size]byte) Outcome {
	switch {
	case len(request) == 0:
		return Outcome{Sent: SentNone}
	case statusBefore == slavetable.AvailableBusy:
		return Outcome{Sent: SentNone}
	case len(request) > frame.MaxPayload:
		return Outcome{Sent: SentError}
	default:
		return Outcome{Sent: SentOK, DataSent: true}
	}
}

func firstErr(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}
