package gpio

import (
	"fmt"

	"gobot.io/x/gobot/v2"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
	"periph.io/x/conn/v3/gpio"

	"github.com/mklimuk/sht21"
)

var _ sht21.Pin = &GobotPin{}

// GobotPin drives a board pin through a gobot digital pin adaptor.
type GobotPin struct {
	pin    gobot.DigitalPinner
	output bool
}

func NewGobotPin(pin gobot.DigitalPinner) *GobotPin {
	return &GobotPin{pin: pin}
}

func asInput(o gobot.DigitalPinOptioner) bool {
	return o.SetDirectionInput()
}

func asOutput(initial int) func(gobot.DigitalPinOptioner) bool {
	return func(o gobot.DigitalPinOptioner) bool {
		return o.SetDirectionOutput(initial)
	}
}

func (p *GobotPin) In() error {
	if err := p.pin.ApplyOptions(asInput); err != nil {
		return fmt.Errorf("could not switch pin to input: %w", err)
	}
	p.output = false
	return nil
}

func (p *GobotPin) Out(level gpio.Level) error {
	v := 0
	if level {
		v = 1
	}
	if p.output {
		return p.pin.Write(v)
	}
	if err := p.pin.ApplyOptions(asOutput(v)); err != nil {
		return fmt.Errorf("could not switch pin to output: %w", err)
	}
	p.output = true
	return nil
}

func (p *GobotPin) Read() (gpio.Level, error) {
	v, err := p.pin.Read()
	if err != nil {
		return gpio.Low, err
	}
	return v != 0, nil
}

// GobotPort binds two pins of a gobot adaptor. Pin ids follow the adaptor's
// header numbering.
func GobotPort(provider gobot.DigitalPinnerProvider, data, clock string) (*Handle, error) {
	h := &Handle{}
	pins := make([]*GobotPin, 0, 2)
	for _, id := range []string{data, clock} {
		pin, err := provider.DigitalPin(id)
		if err != nil {
			_ = h.Close()
			return nil, unavailable(id, err)
		}
		if err := pin.Export(); err != nil {
			_ = h.Close()
			return nil, unavailable(id, err)
		}
		h.onClose(pin.Unexport)
		pins = append(pins, NewGobotPin(pin))
	}
	h.Port = sht21.Port{
		Name:  fmt.Sprintf("gobot:%s/%s", data, clock),
		Data:  pins[0],
		Clock: pins[1],
	}
	return h, nil
}

// OpenNanoPiPort connects a NanoPi NEO adaptor and binds the pins on it.
func OpenNanoPiPort(data, clock string) (*Handle, error) {
	npi := nanopi.NewNeoAdaptor()
	if err := npi.Connect(); err != nil {
		return nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	h, err := GobotPort(npi, data, clock)
	if err != nil {
		_ = npi.Finalize()
		return nil, err
	}
	// adaptor goes last, after the pins were unexported
	h.closers = append([]func() error{npi.Finalize}, h.closers...)
	return h, nil
}
