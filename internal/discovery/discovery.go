// Package discovery implements the bounded-retry enumeration that runs
// once, before the polling engine's periodic loop starts: for each slot
// in order, confirm presence and read back its UIDs, stopping at the
// first absent slot.
package discovery

import (
	"time"

	"github.com/tinkerforge/red-stackd/internal/interfaces"
	"github.com/tinkerforge/red-stackd/internal/packet"
	"github.com/tinkerforge/red-stackd/internal/slavetable"
	"github.com/tinkerforge/red-stackd/internal/spibus"
)

// MaxAttempts is the retry budget for each of the send and receive
// phases, per slot.
const MaxAttempts = 10

// RetryWait is the delay between attempts within a phase.
const RetryWait = 50 * time.Millisecond

// Registrar is called once per discovered UID, so the caller can wire it
// into the higher-level dispatcher's stack index (C8) without discovery
// depending on that package.
type Registrar func(uid uint32)

// sleep is overridable by tests to avoid real 50ms waits.
var sleep = time.Sleep

// Run enumerates slots 0..slavetable.MaxSlaves-1 in order. For each slot it
// optimistically marks the slave Available, then attempts up to
// MaxAttempts sends of a StackEnumerate request (stopping early once one
// is actually sent), then up to MaxAttempts poll-only receives (stopping
// early once one is actually received). Exhausting either phase's budget
// marks the slot Absent and terminates enumeration: no higher slot is
// considered. On success, non-zero UIDs from the response are copied into
// the slave's table and passed to register. observer may be nil.
func Run(bus interfaces.Bus, sel interfaces.Selector, table *slavetable.Table, register Registrar, logger interfaces.Logger, observer interfaces.Observer) {
	if logger != nil {
		logger.Debug("starting SPI stack slave discovery")
	}

	request := packet.NewStackEnumerateRequest()

	for addr := 0; addr < slavetable.MaxSlaves; addr++ {
		slave := &table.Slaves[addr]
		slave.Status = slavetable.Available

		sent := false
		for attempt := 0; attempt < MaxAttempts; attempt++ {
			outcome, err := spibus.Transceive(bus, sel, slave, request)
			if err != nil && logger != nil {
				logger.Error("discovery transceive error", "slot", addr, "err", err)
			}
			if outcome.DataSent {
				sent = true
				break
			}
			if observer != nil {
				observer.ObserveDiscoveryRetry()
			}
			sleep(RetryWait)
		}
		if !sent {
			slave.Status = slavetable.Absent
			if logger != nil {
				logger.Debug("slot not present, stopping discovery", "slot", addr)
			}
			return
		}

		var payload []byte
		received := false
		for attempt := 0; attempt < MaxAttempts; attempt++ {
			outcome, err := spibus.Transceive(bus, sel, slave, nil)
			if err != nil && logger != nil {
				logger.Error("discovery transceive error", "slot", addr, "err", err)
			}
			if outcome.DataReceived {
				payload = outcome.Payload
				received = true
				break
			}
			if observer != nil {
				observer.ObserveDiscoveryRetry()
			}
			sleep(RetryWait)
		}
		if !received {
			slave.Status = slavetable.Absent
			if logger != nil {
				logger.Debug("slot did not answer enumerate request, stopping discovery", "slot", addr)
			}
			return
		}

		resp := packet.ParseStackEnumerateResponse(payload)
		for _, uid := range resp.UIDs {
			if slave.AddUID(uid) && register != nil {
				register(uid)
			}
		}

		if logger != nil {
			logger.Debug("discovered slave", "slot", addr, "uids", slave.UIDCount)
		}
	}
}
