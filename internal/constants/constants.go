// Package constants collects the protocol-fixed numbers shared across
// red-stackd's internal packages, mirroring spec values taken directly
// from the original RED Brick SPI stack implementation.
package constants

import "time"

// SPI frame / protocol constants.
const (
	// FrameSize is the fixed length of every SPI frame in bytes.
	FrameSize = 84

	// FrameEmptySize is the length of a poll-only frame.
	FrameEmptySize = 4

	// MaxSlaves is the number of chip-select slots on the stack bus.
	MaxSlaves = 8

	// MaxUIDsPerSlave bounds how many UIDs a single slave may report.
	MaxUIDsPerSlave = 16
)

// Discovery timing constants.
const (
	// DiscoveryMaxAttempts is the retry budget for each of the send and
	// receive phases during enumeration of one slot.
	DiscoveryMaxAttempts = 10

	// DiscoveryRetryWait is the delay between attempts within a phase.
	DiscoveryRetryWait = 50 * time.Millisecond
)

// Polling engine timing.
const (
	// TickInterval is the nominal period between SPI exchanges.
	TickInterval = 500 * time.Microsecond
)

// SPI transport configuration, fixed by the RED Brick hardware.
const (
	// SPIMaxSpeedHz is the maximum SPI clock rate.
	SPIMaxSpeedHz = 8_000_000

	// SPIBitsPerWord is the SPI word size.
	SPIBitsPerWord = 8

	// DefaultSPIDevice is the spidev character device path used unless
	// overridden.
	DefaultSPIDevice = "/dev/spidev0.0"
)
