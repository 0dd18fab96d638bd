package gpio

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/mklimuk/sht21"
)

var _ sht21.Pin = &PeriphPin{}

// PeriphPin is a host GPIO driven through periph.
type PeriphPin struct {
	pin  gpio.PinIO
	pull gpio.Pull
}

// NewPeriphPin wraps pin. pull is applied whenever the pin is released; use
// gpio.Float when the board carries external pull-ups.
func NewPeriphPin(pin gpio.PinIO, pull gpio.Pull) *PeriphPin {
	return &PeriphPin{pin: pin, pull: pull}
}

func (p *PeriphPin) In() error {
	return p.pin.In(p.pull, gpio.NoEdge)
}

func (p *PeriphPin) Out(level gpio.Level) error {
	return p.pin.Out(level)
}

func (p *PeriphPin) Read() (gpio.Level, error) {
	return p.pin.Read(), nil
}

func (p *PeriphPin) String() string {
	return p.pin.Name()
}

// OpenPeriphPort initializes the host drivers and looks both lines up by name.
func OpenPeriphPort(data, clock string) (*Handle, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	return PeriphPort(data, clock)
}

// PeriphPort looks up lines in the periph registry without touching the host
// drivers. The data line gets the internal pull-up, the clock is push-pull.
func PeriphPort(data, clock string) (*Handle, error) {
	d := gpioreg.ByName(data)
	if d == nil {
		return nil, unavailable(data, nil)
	}
	c := gpioreg.ByName(clock)
	if c == nil {
		return nil, unavailable(clock, nil)
	}
	h := &Handle{Port: sht21.Port{
		Name:  fmt.Sprintf("periph:%s/%s", d.Name(), c.Name()),
		Data:  NewPeriphPin(d, gpio.PullUp),
		Clock: NewPeriphPin(c, gpio.PullNoChange),
	}}
	h.onClose(func() error {
		return d.Halt()
	})
	h.onClose(func() error {
		return c.Halt()
	})
	return h, nil
}
