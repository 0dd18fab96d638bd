package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/mklimuk/sht21"
	"github.com/mklimuk/sht21/adapter"
	"github.com/mklimuk/sht21/environment"
	"github.com/mklimuk/sht21/gpio"
	"github.com/mklimuk/sht21/i2c"
	"github.com/mklimuk/sht21/pkg/config"
	"github.com/mklimuk/sht21/simulator"
	"github.com/mklimuk/sht21/wire"
)

// session is a sensor bound to an opened port.
type session struct {
	*environment.SHT21
	port  string
	close func() error
}

func (s *session) Close() error {
	return s.close()
}

func openSensor(ctx context.Context, cfg config.Config) (*session, error) {
	port, closer, err := openPort(ctx, cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("could not open %s port: %w", cfg.Port.Backend, err)
	}
	opts, err := sensorOptions(cfg.Sensor)
	if err != nil {
		_ = closer()
		return nil, err
	}
	s, err := environment.NewSHT21(port, opts...)
	if err != nil {
		_ = closer()
		return nil, fmt.Errorf("could not reset bus on %s: %w", port, err)
	}
	return &session{SHT21: s, port: port.String(), close: closer}, nil
}

func sensorOptions(c config.Sensor) ([]environment.SHT21Opt, error) {
	mode, err := environment.ParseChecksumMode(c.Checksum)
	if err != nil {
		return nil, err
	}
	opts := []environment.SHT21Opt{
		environment.WithChecksum(mode),
		environment.WithPollBudget(c.PollBudget),
		environment.WithWait(environment.Sleep(c.PollInterval)),
	}
	timing := wire.DefaultTiming
	if c.Setup > 0 {
		timing.Setup = c.Setup
	}
	if c.Hold > 0 {
		timing.Hold = c.Hold
	}
	if timing != wire.DefaultTiming {
		opts = append(opts, environment.WithBusOptions(wire.WithTiming(timing)))
	}
	return opts, nil
}

func openPort(ctx context.Context, p config.Port) (sht21.Port, func() error, error) {
	switch p.Backend {
	case config.BackendSim:
		return simulator.New().Port(), func() error { return nil }, nil
	case config.BackendPeriph:
		return handle(gpio.OpenPeriphPort(p.Data, p.Clock))
	case config.BackendGobot:
		return handle(gpio.OpenNanoPiPort(p.Data, p.Clock))
	case config.BackendCdev:
		data, clock, err := p.Lines()
		if err != nil {
			return sht21.Port{}, nil, err
		}
		return handle(gpio.OpenCdevPort(p.Chip, data, clock))
	case config.BackendMCP23017:
		data, clock, err := p.Lines()
		if err != nil {
			return sht21.Port{}, nil, err
		}
		bus, closeBus, err := openI2C(p)
		if err != nil {
			return sht21.Port{}, nil, err
		}
		h, err := gpio.ExpanderPort(ctx, bus, p.Address, data, clock)
		if err != nil {
			_ = closeBus()
			return sht21.Port{}, nil, err
		}
		return h.Port, func() error { return errors.Join(h.Close(), closeBus()) }, nil
	case config.BackendMCP2221:
		data, clock, err := p.Lines()
		if err != nil {
			return sht21.Port{}, nil, err
		}
		return newMCP2221(p).GPIOPort(ctx, data, clock)
	default:
		return sht21.Port{}, nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalid, p.Backend)
	}
}

func handle(h *gpio.Handle, err error) (sht21.Port, func() error, error) {
	if err != nil {
		return sht21.Port{}, nil, err
	}
	return h.Port, h.Close, nil
}

// openI2C returns the bus the expander sits on: the USB bridge or a host
// controller by periph name (empty picks the first one).
func openI2C(p config.Port) (sht21.I2CBus, func() error, error) {
	if p.Bus == config.BusMCP2221 {
		d := newMCP2221(p)
		if err := d.Open(); err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	}
	bus, err := i2c.NewGenericBus(p.Bus)
	if err != nil {
		return nil, nil, err
	}
	return bus, bus.Close, nil
}

func newMCP2221(p config.Port) *adapter.MCP2221 {
	opts := []adapter.MCP2221Opt{adapter.WithDevice(p.Device)}
	if p.ResponseWait > 0 {
		opts = append(opts, adapter.WithResponseWait(p.ResponseWait))
	}
	return adapter.NewMCP2221(opts...)
}
