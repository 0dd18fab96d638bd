package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/conn/v3/gpio"

	"github.com/mklimuk/sht21"
)

const cdevConsumer = "sht21"

// cdevLine is the part of *gpiocdev.Line a pin needs.
type cdevLine interface {
	Value() (int, error)
	SetValue(value int) error
	Reconfigure(options ...gpiocdev.LineConfigOption) error
	Close() error
}

var _ sht21.Pin = &CdevPin{}

// CdevPin is a line requested from the GPIO character device. Direction
// changes go through Reconfigure so the line stays requested the whole time.
type CdevPin struct {
	line   cdevLine
	output bool
}

func (p *CdevPin) In() error {
	if err := p.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
		return fmt.Errorf("could not switch line to input: %w", err)
	}
	p.output = false
	return nil
}

func (p *CdevPin) Out(level gpio.Level) error {
	v := 0
	if level {
		v = 1
	}
	if p.output {
		return p.line.SetValue(v)
	}
	if err := p.line.Reconfigure(gpiocdev.AsOutput(v)); err != nil {
		return fmt.Errorf("could not switch line to output: %w", err)
	}
	p.output = true
	return nil
}

func (p *CdevPin) Read() (gpio.Level, error) {
	v, err := p.line.Value()
	if err != nil {
		return gpio.Low, err
	}
	return v != 0, nil
}

// OpenCdevPort requests the data and clock offsets on chip (for example
// "gpiochip0"). The data line starts as a pulled-up input, the clock as a low
// output, which is the idle state of the bus.
func OpenCdevPort(chip string, data, clock int) (*Handle, error) {
	d, err := gpiocdev.RequestLine(chip, data, gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.WithConsumer(cdevConsumer))
	if err != nil {
		return nil, unavailable(fmt.Sprintf("%s:%d", chip, data), err)
	}
	c, err := gpiocdev.RequestLine(chip, clock, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(cdevConsumer))
	if err != nil {
		_ = d.Close()
		return nil, unavailable(fmt.Sprintf("%s:%d", chip, clock), err)
	}
	return cdevPort(fmt.Sprintf("cdev:%s/%d/%d", chip, data, clock), d, c), nil
}

func cdevPort(name string, data, clock cdevLine) *Handle {
	h := &Handle{Port: sht21.Port{
		Name:  name,
		Data:  &CdevPin{line: data},
		Clock: &CdevPin{line: clock, output: true},
	}}
	h.onClose(data.Close)
	h.onClose(clock.Close)
	return h
}
