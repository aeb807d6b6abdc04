package redstack

import "github.com/tinkerforge/red-stackd/internal/constants"

// Re-exported for the public API, so callers constructing a Stack don't
// need to import internal/constants directly.
const (
	FrameSize            = constants.FrameSize
	FrameEmptySize       = constants.FrameEmptySize
	MaxSlaves            = constants.MaxSlaves
	MaxUIDsPerSlave      = constants.MaxUIDsPerSlave
	DiscoveryMaxAttempts = constants.DiscoveryMaxAttempts
	DiscoveryRetryWait   = constants.DiscoveryRetryWait
	TickInterval         = constants.TickInterval
	SPIMaxSpeedHz        = constants.SPIMaxSpeedHz
	SPIBitsPerWord       = constants.SPIBitsPerWord
	DefaultSPIDevice     = constants.DefaultSPIDevice
)
