package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	redstack "github.com/tinkerforge/red-stackd"
	"github.com/tinkerforge/red-stackd/internal/logging"
	"github.com/tinkerforge/red-stackd/internal/spibus"
)

func main() {
	var (
		spiDevice = flag.String("spi-device", "/dev/spidev0.0", "SPI character device for the stack bus")
		spiDriver = flag.String("spi-driver", "periph", "SPI driver to use: periph or ioctl")
		name      = flag.String("name", "red-brick-stack", "name this stack registers with the host dispatcher")
		verbose   = flag.Bool("v", false, "verbose output")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	bus, closeBus, err := openBus(*spiDriver, *spiDevice)
	if err != nil {
		logger.Error("failed to open SPI bus", "driver", *spiDriver, "device", *spiDevice, "error", err)
		os.Exit(1)
	}
	defer closeBus()

	sel, err := spibus.OpenGPIOSelector(spibus.DefaultSlotPinNames)
	if err != nil {
		logger.Error("failed to open GPIO chip-select lines", "error", err)
		os.Exit(1)
	}

	host := newConsoleHost(logger)

	stack, err := redstack.Init(redstack.Config{
		Name:     *name,
		Bus:      bus,
		Selector: sel,
		Host:     host,
		Logger:   logger,
		Observer: redstack.NewMetrics(),
	})
	if err != nil {
		logger.Error("failed to initialize SPI stack", "error", err)
		os.Exit(1)
	}

	logger.Info("stack ready", "name", *name, "slaves", stack.SlaveNum())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		stack.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")
	cancel()
	if err := stack.Exit(); err != nil {
		logger.Error("error during shutdown", "error", err)
	}

	select {
	case <-runDone:
	case <-time.After(1 * time.Second):
		logger.Info("shutdown timeout, forcing exit")
	}
}

func openBus(driver, device string) (interface {
	Exchange(tx []byte) ([]byte, error)
}, func(), error) {
	switch driver {
	case "periph":
		bus, err := spibus.OpenPeriphBus(device)
		if err != nil {
			return nil, nil, err
		}
		return bus, func() { bus.Close() }, nil
	case "ioctl":
		bus, err := spibus.OpenIoctlBus(device)
		if err != nil {
			return nil, nil, err
		}
		return bus, func() { bus.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown -spi-driver %q (want periph or ioctl)", driver)
	}
}

// consoleHost is a placeholder for the higher-level dispatcher, which is an
// out-of-scope external collaborator (see interfaces.HostStack). It lets the daemon
// run standalone by logging what it would otherwise forward to the network
// layer and stack index.
type consoleHost struct {
	logger interface {
		Info(msg string, args ...any)
	}
}

func newConsoleHost(logger interface {
	Info(msg string, args ...any)
}) *consoleHost {
	return &consoleHost{logger: logger}
}

func (h *consoleHost) StackCreate(name string, onRequest func([]byte)) error {
	h.logger.Info("stack registered with host dispatcher", "name", name)
	return nil
}

func (h *consoleHost) StackAddUID(uid uint32) {
	h.logger.Info("uid discovered", "uid", uid)
}

func (h *consoleHost) NetworkDispatchResponse(packet []byte) {
	h.logger.Info("response ready for network layer", "bytes", len(packet))
}

func (h *consoleHost) HardwareAddStack(stack any) error {
	h.logger.Info("stack added to hardware registry")
	return nil
}
