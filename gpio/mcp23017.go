package gpio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"

	"github.com/mklimuk/sht21"
)

type registry int

const DefaultMCP23017Address = 0x20

const (
	IODIRA registry = iota
	IODIRB
	GPPUA
	GPPUB
	GPIOA
	GPIOB
	OLATA
	OLATB
)

// BankAddr maps registers to addresses for IOCON.BANK = 0 and 1.
var BankAddr = []map[registry]byte{
	{
		IODIRA: 0x00,
		IODIRB: 0x01,
		GPPUA:  0x0C,
		GPPUB:  0x0D,
		GPIOA:  0x12,
		GPIOB:  0x13,
		OLATA:  0x14,
		OLATB:  0x15,
	},
	{
		IODIRA: 0x00,
		IODIRB: 0x10,
		GPPUA:  0x06,
		GPPUB:  0x16,
		GPIOA:  0x09,
		GPIOB:  0x19,
		OLATA:  0x0A,
		OLATB:  0x1A,
	},
}

// port registers per I/O set
var (
	iodir = [2]registry{IODIRA, IODIRB}
	gppu  = [2]registry{GPPUA, GPPUB}
	gpioR = [2]registry{GPIOA, GPIOB}
	olat  = [2]registry{OLATA, OLATB}
)

/*
MCP23017 pins used as bus lines:

1. Released line: IODIR bit set (input), GPPU bit set (100k pull-up)
2. Driven line: OLAT bit written first, then IODIR bit cleared
3. Line level: GPIO port register
*/
type MCP23017 struct {
	mx         sync.Mutex
	transport  sht21.I2CBus
	bank       int
	address    byte
	retryLimit int

	// shadow copies of IODIR/GPPU/OLAT for sets A and B
	dir   [2]byte
	pull  [2]byte
	latch [2]byte
}

func NewMCP23017(bus sht21.I2CBus, address byte) *MCP23017 {
	return &MCP23017{
		retryLimit: 3,
		transport:  bus,
		address:    address,
		dir:        [2]byte{0xFF, 0xFF},
	}
}

// Init writes the power-on state (all inputs, no pull-ups, latches low) so the
// shadow registers match the device.
func (m *MCP23017) Init(ctx context.Context) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	for set := range 2 {
		m.dir[set], m.pull[set], m.latch[set] = 0xFF, 0x00, 0x00
		for _, reg := range []registry{olat[set], gppu[set], iodir[set]} {
			if err := m.writeRegistry(ctx, reg, m.shadow(reg)); err != nil {
				return fmt.Errorf("could not initialize gpio set %c: %w", 'A'+set, err)
			}
		}
	}
	return nil
}

func (m *MCP23017) shadow(reg registry) byte {
	switch reg {
	case IODIRA, IODIRB:
		return m.dir[reg-IODIRA]
	case GPPUA, GPPUB:
		return m.pull[reg-GPPUA]
	case OLATA, OLATB:
		return m.latch[reg-OLATA]
	}
	return 0
}

func (m *MCP23017) writeRegistry(ctx context.Context, reg registry, value byte) error {
	var err error
	for i := m.retryLimit; i > 0; i-- {
		err = m.transport.WriteToAddr(ctx, m.address, []byte{BankAddr[m.bank][reg], value})
		if err == nil {
			return nil
		}
		if !errors.Is(err, sht21.ErrBusBusy) {
			return fmt.Errorf("could not write registry %#x: %w", BankAddr[m.bank][reg], err)
		}
		// try to release the bus
		_ = m.transport.Release(ctx)
	}
	return fmt.Errorf("could not write registry %#x (retry limit reached): %w", BankAddr[m.bank][reg], err)
}

func (m *MCP23017) readRegistry(ctx context.Context, reg registry) (byte, error) {
	var err error
	buf := make([]byte, 1)
	for i := m.retryLimit; i > 0; i-- {
		err = m.transport.WriteToAddr(ctx, m.address, []byte{BankAddr[m.bank][reg]})
		if err == nil {
			err = m.transport.ReadFromAddr(ctx, m.address, buf)
		}
		if err == nil {
			return buf[0], nil
		}
		if !errors.Is(err, sht21.ErrBusBusy) {
			return 0x00, fmt.Errorf("could not read registry %#x: %w", BankAddr[m.bank][reg], err)
		}
		_ = m.transport.Release(ctx)
	}
	return 0x00, fmt.Errorf("could not read registry %#x (retry limit reached): %w", BankAddr[m.bank][reg], err)
}

// update sets or clears mask in a shadowed register and writes it only when
// the value changes.
func (m *MCP23017) update(ctx context.Context, reg registry, mask byte, set bool) error {
	old := m.shadow(reg)
	value := old &^ mask
	if set {
		value |= mask
	}
	if value == old {
		return nil
	}
	if err := m.writeRegistry(ctx, reg, value); err != nil {
		return err
	}
	switch reg {
	case IODIRA, IODIRB:
		m.dir[reg-IODIRA] = value
	case GPPUA, GPPUB:
		m.pull[reg-GPPUA] = value
	case OLATA, OLATB:
		m.latch[reg-OLATA] = value
	}
	return nil
}

// Pin returns expander pin n: 0-7 are GPA0-7, 8-15 are GPB0-7. The pin issues
// its register transfers with ctx, so ctx must outlive the pin's use.
func (m *MCP23017) Pin(ctx context.Context, n int) (*ExpanderPin, error) {
	if n < 0 || n > 15 {
		return nil, unavailable(fmt.Sprintf("mcp23017 pin %d", n), nil)
	}
	return &ExpanderPin{ctx: ctx, exp: m, set: n / 8, mask: 1 << (n % 8)}, nil
}

var _ sht21.Pin = &ExpanderPin{}

type ExpanderPin struct {
	ctx  context.Context
	exp  *MCP23017
	set  int
	mask byte
}

func (p *ExpanderPin) In() error {
	m := p.exp
	m.mx.Lock()
	defer m.mx.Unlock()
	if err := m.update(p.ctx, gppu[p.set], p.mask, true); err != nil {
		return err
	}
	return m.update(p.ctx, iodir[p.set], p.mask, true)
}

func (p *ExpanderPin) Out(level gpio.Level) error {
	m := p.exp
	m.mx.Lock()
	defer m.mx.Unlock()
	if err := m.update(p.ctx, olat[p.set], p.mask, bool(level)); err != nil {
		return err
	}
	return m.update(p.ctx, iodir[p.set], p.mask, false)
}

func (p *ExpanderPin) Read() (gpio.Level, error) {
	m := p.exp
	m.mx.Lock()
	defer m.mx.Unlock()
	v, err := m.readRegistry(p.ctx, gpioR[p.set])
	if err != nil {
		return gpio.Low, err
	}
	return v&p.mask != 0, nil
}

// ExpanderPort initializes the expander and binds two of its pins.
func ExpanderPort(ctx context.Context, bus sht21.I2CBus, address byte, data, clock int) (*Handle, error) {
	exp := NewMCP23017(bus, address)
	if err := exp.Init(ctx); err != nil {
		return nil, err
	}
	d, err := exp.Pin(ctx, data)
	if err != nil {
		return nil, err
	}
	c, err := exp.Pin(ctx, clock)
	if err != nil {
		return nil, err
	}
	return &Handle{Port: sht21.Port{
		Name:  fmt.Sprintf("mcp23017@%#02x:%d/%d", address, data, clock),
		Data:  d,
		Clock: c,
	}}, nil
}
