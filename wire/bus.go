// Package wire drives the two-wire bus of Sensirion humidity sensors by
// toggling a clock and a data line directly.
//
// Idle line state is the data line released (input, pulled high) and the clock
// driven low. The data line is never driven high by the bus while the device
// may pull it low: releasing it is how the bus reads the device.
package wire

import (
	"fmt"

	"github.com/mklimuk/sht21"
	"periph.io/x/conn/v3/gpio"
)

// resetPulses is the number of clock cycles that flush any partial transfer.
const resetPulses = 9

type Option func(*Bus)

func WithTiming(t Timing) Option {
	return func(b *Bus) {
		b.timing = t
	}
}

func WithDelayer(d Delayer) Option {
	return func(b *Bus) {
		b.delay = d
	}
}

// Bus is a bit-banged bus bound to one port.
//
// Pin failures do not abort a transfer half-way through a bit. The first one
// is latched and every following line operation becomes a no-op until Err is
// called, so callers check Err once per transaction.
type Bus struct {
	data   sht21.Pin
	clock  sht21.Pin
	timing Timing
	delay  Delayer
	err    error
}

func New(port sht21.Port, opts ...Option) *Bus {
	b := &Bus{
		data:   port.Data,
		clock:  port.Clock,
		timing: DefaultTiming,
		delay:  Spin,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Err returns the first pin failure since the previous call and clears it.
func (b *Bus) Err() error {
	err := b.err
	b.err = nil
	return err
}

func (b *Bus) fail(err error, op string) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("%s: %w", op, err)
	}
}

// pulse moves the clock to level with setup and hold waits around the edge.
// The device samples data relative to these edges; do not merge or reorder.
func (b *Bus) pulse(level gpio.Level) {
	if b.err != nil {
		return
	}
	b.delay.Delay(b.timing.Setup)
	b.fail(b.clock.Out(level), "clock out")
	b.delay.Delay(b.timing.Hold)
}

// release lets the data line float high.
func (b *Bus) release() {
	if b.err != nil {
		return
	}
	b.fail(b.data.In(), "data in")
}

func (b *Bus) drive(level gpio.Level) {
	if b.err != nil {
		return
	}
	b.fail(b.data.Out(level), "data out")
}

// sample reads the data line. A failed read reports high, which the callers
// treat as no-ack or not ready.
func (b *Bus) sample() gpio.Level {
	if b.err != nil {
		return gpio.High
	}
	level, err := b.data.Read()
	if err != nil {
		b.fail(err, "data read")
		return gpio.High
	}
	return level
}

// WriteByte shifts value out MSB first and reports whether the receiver
// failed to acknowledge it.
func (b *Bus) WriteByte(value byte) (nack bool) {
	for mask := byte(0x80); mask != 0; mask >>= 1 {
		b.drive(value&mask != 0)
		b.pulse(gpio.High)
		b.pulse(gpio.Low)
	}
	b.release()
	b.pulse(gpio.High)
	nack = b.sample() == gpio.High
	b.pulse(gpio.Low)
	return nack
}

// ReadByte shifts a byte in MSB first, then answers with ack (data low) or
// no-ack (data high) and releases the line.
func (b *Bus) ReadByte(ack bool) byte {
	var value byte
	for mask := byte(0x80); mask != 0; mask >>= 1 {
		b.pulse(gpio.High)
		if b.sample() == gpio.High {
			value |= mask
		}
		b.pulse(gpio.Low)
	}
	b.drive(gpio.Level(!ack))
	b.pulse(gpio.High)
	b.pulse(gpio.Low)
	b.release()
	return value
}

// Start emits the transmission start: data falls while the clock is high,
// then rises again during the following high phase.
func (b *Bus) Start() {
	b.pulse(gpio.Low)
	b.drive(gpio.High)

	b.pulse(gpio.High)
	b.drive(gpio.Low)
	b.pulse(gpio.Low)
	b.pulse(gpio.High)
	b.drive(gpio.High)
	b.pulse(gpio.Low)
	b.release()
}

// Reset clocks nine cycles with data held high, which ends any transfer the
// device may still be in, and follows with a start.
func (b *Bus) Reset() {
	if b.err != nil {
		return
	}
	b.fail(b.clock.Out(gpio.Low), "clock out")
	b.drive(gpio.High)
	for range resetPulses {
		b.pulse(gpio.High)
		b.pulse(gpio.Low)
	}
	b.Start()
}

// Ready polls the data line outside of any clock cycle. The device pulls it
// low once a measurement is available.
func (b *Bus) Ready() bool {
	return b.sample() == gpio.Low
}
