package adapter

import (
	"context"
	"fmt"

	"periph.io/x/conn/v3/gpio"

	"github.com/mklimuk/sht21"
)

var _ sht21.Pin = &GPPin{}

// GPPin is one of the four GP pins of the adapter used as a bus line. Every
// call is a USB round trip.
type GPPin struct {
	ctx context.Context
	dev *MCP2221
	n   int
}

// Pin binds GP pin n (0-3). Transfers use ctx, so it has to outlive the pin.
func (d *MCP2221) Pin(ctx context.Context, n int) (*GPPin, error) {
	if n < 0 || n > 3 {
		return nil, fmt.Errorf("GP%d: %w", n, sht21.ErrPinUnavailable)
	}
	return &GPPin{ctx: ctx, dev: d, n: n}, nil
}

func (p *GPPin) In() error {
	return p.dev.SetGPIO(p.ctx, GPIOSet{Pin: p.n, SetMode: true, Mode: GPIOModeIn})
}

func (p *GPPin) Out(level gpio.Level) error {
	return p.dev.SetGPIO(p.ctx, GPIOSet{Pin: p.n, SetValue: true, Value: level, SetMode: true, Mode: GPIOModeOut})
}

func (p *GPPin) Read() (gpio.Level, error) {
	v, err := p.dev.ReadGPIO(p.ctx)
	if err != nil {
		return gpio.Low, err
	}
	return v.Value(p.n) != 0, nil
}

// GPIOPort switches all GP pins to plain GPIO inputs and binds data and clock.
// The adapter is kept open until the returned closer runs.
func (d *MCP2221) GPIOPort(ctx context.Context, data, clock int) (sht21.Port, func() error, error) {
	dp, err := d.Pin(ctx, data)
	if err != nil {
		return sht21.Port{}, nil, err
	}
	cp, err := d.Pin(ctx, clock)
	if err != nil {
		return sht21.Port{}, nil, err
	}
	if err := d.Open(); err != nil {
		return sht21.Port{}, nil, err
	}
	err = d.ConfigureGPIO(ctx, MCP2221GPIOParameters{
		GPIO0Mode: GPIOModeIn,
		GPIO1Mode: GPIOModeIn,
		GPIO2Mode: GPIOModeIn,
		GPIO3Mode: GPIOModeIn,
	})
	if err != nil {
		_ = d.Close()
		return sht21.Port{}, nil, fmt.Errorf("could not designate GP pins as GPIO: %w", err)
	}
	port := sht21.Port{
		Name:  fmt.Sprintf("mcp2221:GP%d/GP%d", data, clock),
		Data:  dp,
		Clock: cp,
	}
	return port, d.Close, nil
}
