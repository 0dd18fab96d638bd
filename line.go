// Package sht21 holds the pin and bus abstractions shared by the SHT21 driver
// and its line backends.
package sht21

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

var ErrNoAck = fmt.Errorf("device did not acknowledge")
var ErrTimeout = fmt.Errorf("device did not signal data ready")
var ErrChecksum = fmt.Errorf("checksum mismatch")

var ErrPinUnavailable = errors.New("pin unavailable")

// Pin is a single digital line as seen by the bit-banged bus.
type Pin interface {
	// In switches the pin to input. The data line relies on an external
	// pull-up, so a released pin reads high unless the device pulls it low.
	In() error
	// Out switches the pin to output and drives it to level.
	Out(level gpio.Level) error
	Read() (gpio.Level, error)
}

// Port is the pair of lines a sensor is wired to.
type Port struct {
	Name  string
	Data  Pin
	Clock Pin
}

func (p Port) String() string {
	if p.Name == "" {
		return "port"
	}
	return p.Name
}
