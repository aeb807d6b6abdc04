package spibus

import "fmt"

var (
	errAbsentSlave     = fmt.Errorf("spibus: slave is absent")
	errOversizeRequest = fmt.Errorf("spibus: request exceeds payload budget")
)

func errShortTransfer(got int) error {
	return fmt.Errorf("spibus: short transfer: got %d bytes, want %d", got, 84)
}
