//go:build linux

package spibus

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/tinkerforge/red-stackd/internal/frame"
)

// IoctlBus talks to a spidev character device directly via SPI_IOC_MESSAGE,
// bypassing periph's sysfs driver. Used when periph's driver is
// unavailable (e.g. a minimal rootfs) or for debugging the transport in
// isolation; functionally identical to PeriphBus.
type IoctlBus struct {
	fd int
}

// spiIOCTransfer mirrors struct spi_ioc_transfer (linux/spi/spidev.h).
type spiIOCTransfer struct {
	txBuf uint64
	rxBuf uint64

	length  uint32
	speedHz uint32

	delayUsecs   uint16
	bitsPerWord  uint8
	csChange     uint8
	txNbits      uint8
	rxNbits      uint8
	wordDelayUsecs uint8
	pad          uint8
}

const spiIOCMagic = 'k'

// OpenIoctlBus opens devPath (e.g. "/dev/spidev0.0") and configures mode,
// bits-per-word, and max speed per the stack protocol's fixed parameters
// (CPOL=1/CPHA=0, MSB-first, 8 bits/word, 8MHz).
func OpenIoctlBus(devPath string) (*IoctlBus, error) {
	fd, err := unix.Open(devPath, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("spibus: open %s: %w", devPath, err)
	}

	mode := uint8(unix.SPI_CPOL)
	if err := ioctlSetU8(fd, spiIOCWrMode(), mode); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("spibus: set mode: %w", err)
	}

	bits := uint8(8)
	if err := ioctlSetU8(fd, spiIOCWrBitsPerWord(), bits); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("spibus: set bits per word: %w", err)
	}

	speed := uint32(8_000_000)
	if err := ioctlSetU32(fd, spiIOCWrMaxSpeedHz(), speed); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("spibus: set max speed: %w", err)
	}

	return &IoctlBus{fd: fd}, nil
}

// Exchange issues one fixed-size full-duplex SPI_IOC_MESSAGE transfer.
func (b *IoctlBus) Exchange(tx []byte) ([]byte, error) {
	if len(tx) != frame.Size {
		return nil, fmt.Errorf("spibus: tx must be %d bytes, got %d", frame.Size, len(tx))
	}
	rx := make([]byte, frame.Size)

	xfer := spiIOCTransfer{
		txBuf:   uint64(uintptr(unsafe.Pointer(&tx[0]))),
		rxBuf:   uint64(uintptr(unsafe.Pointer(&rx[0]))),
		length:  uint32(len(tx)),
		speedHz: 8_000_000,
	}

	if err := ioctlMessage(b.fd, &xfer); err != nil {
		return nil, fmt.Errorf("spibus: SPI_IOC_MESSAGE: %w", err)
	}
	return rx, nil
}

// Close closes the underlying character device.
func (b *IoctlBus) Close() error {
	return unix.Close(b.fd)
}

func ioctlSetU8(fd int, req uintptr, v uint8) error {
	return ioctl(fd, req, uintptr(unsafe.Pointer(&v)))
}

func ioctlSetU32(fd int, req uintptr, v uint32) error {
	return ioctl(fd, req, uintptr(unsafe.Pointer(&v)))
}

func ioctlMessage(fd int, xfer *spiIOCTransfer) error {
	req := iowR(spiIOCMagic, 0, unsafe.Sizeof(*xfer))
	return ioctl(fd, req, uintptr(unsafe.Pointer(xfer)))
}

// ioctl issues a raw ioctl(2) syscall, mirroring Daedaluz-goserial's
// goioctl.Ioctl helper (which wraps the same unix.Syscall pattern).
func ioctl(fd int, req uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

// iowR, spiIOCWr* mirror the _IOW macro expansions used by
// linux/spi/spidev.h, matching Daedaluz-goserial's goioctl helper.
func iowR(magic byte, nr byte, size uintptr) uintptr {
	const iocWrite = 1
	return (uintptr(iocWrite) << 30) | (uintptr(magic) << 8) | uintptr(nr) | (size << 16)
}

func spiIOCWrMode() uintptr          { return iowR(spiIOCMagic, 1, 1) }
func spiIOCWrBitsPerWord() uintptr   { return iowR(spiIOCMagic, 3, 1) }
func spiIOCWrMaxSpeedHz() uintptr    { return iowR(spiIOCMagic, 4, 4) }
