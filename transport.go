package sht21

import (
	"context"
	"fmt"
)

// ErrBusBusy is returned by I2C transports whose engine is still busy with a
// previous command. Pin backends built on such a transport release the bus
// and retry.
var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// I2CBus carries GPIO expander traffic for pin backends that are not wired to
// the host directly.
type I2CBus interface {
	AddressableReader
	AddressableWriter
}
