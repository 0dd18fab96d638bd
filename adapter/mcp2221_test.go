package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"

	"github.com/mklimuk/sht21"
	"github.com/mklimuk/sht21/environment"
	"github.com/mklimuk/sht21/simulator"
	"github.com/mklimuk/sht21/wire"
)

// fakeChip answers commands the way the adapter firmware does for the parts
// under test. GP pins listed in lines are mirrored onto real pins.
type fakeChip struct {
	d        *MCP2221
	requests [][]byte
	lines    map[int]sht21.Pin
	values   [4]byte
	input    [4]bool
	status   byte
	err      error
}

func newFakeChip(lines map[int]sht21.Pin) (*MCP2221, *fakeChip) {
	d := NewMCP2221(WithResponseWait(0))
	f := &fakeChip{d: d, lines: lines, input: [4]bool{true, true, true, true}}
	d.exchange = f.exchange
	return d, f
}

func (f *fakeChip) exchange(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	req := f.d.request
	f.requests = append(f.requests, append([]byte(nil), req...))
	res := f.d.response
	res[0] = req[0]
	res[1] = f.status
	switch req[0] {
	case cmdSetGPIO:
		for n := range 4 {
			base := 2 + 4*n
			if req[base] != 0 {
				f.values[n] = req[base+1]
			}
			if req[base+2] != 0 {
				f.input[n] = req[base+3] != 0
			}
			if err := f.mirror(n); err != nil {
				return err
			}
		}
	case cmdGetGPIO:
		for n := range 4 {
			v := f.values[n]
			if pin, ok := f.lines[n]; ok {
				l, err := pin.Read()
				if err != nil {
					return err
				}
				v = 0
				if l {
					v = 1
				}
			}
			res[2+2*n] = v
			res[3+2*n] = 0
			if f.input[n] {
				res[3+2*n] = 1
			}
		}
	}
	return nil
}

func (f *fakeChip) mirror(n int) error {
	pin, ok := f.lines[n]
	if !ok {
		return nil
	}
	if f.input[n] {
		return pin.In()
	}
	return pin.Out(f.values[n] != 0)
}

func TestMCP2221_SetGPIORequest(t *testing.T) {
	d, f := newFakeChip(nil)
	ctx := context.Background()

	require.NoError(t, d.SetGPIO(ctx,
		GPIOSet{Pin: 1, SetValue: true, Value: gpio.High, SetMode: true, Mode: GPIOModeOut},
		GPIOSet{Pin: 3, SetMode: true, Mode: GPIOModeIn},
	))
	require.Len(t, f.requests, 1)
	req := f.requests[0]
	assert.Equal(t, cmdSetGPIO, req[0])
	assert.Equal(t, []byte{0, 0, 0, 0}, req[2:6], "GP0 untouched")
	assert.Equal(t, []byte{1, 1, 1, 0}, req[6:10])
	assert.Equal(t, []byte{0, 0, 0, 0}, req[10:14], "GP2 untouched")
	assert.Equal(t, []byte{0, 0, 1, 1}, req[14:18])

	err := d.SetGPIO(ctx, GPIOSet{Pin: 4})
	assert.ErrorIs(t, err, sht21.ErrPinUnavailable)

	f.status = 0x01
	assert.ErrorIs(t, d.SetGPIO(ctx, GPIOSet{Pin: 0, SetMode: true}), ErrCommandFailed)
}

func TestMCP2221_ReadGPIO(t *testing.T) {
	d, f := newFakeChip(nil)
	f.values = [4]byte{1, 0, 1, 0}
	f.input = [4]bool{true, false, true, false}

	v, err := d.ReadGPIO(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MCP2221GPIOValues{
		GPIO0Mode: GPIOModeIn, GPIO0Value: 1,
		GPIO1Mode: GPIOModeOut, GPIO1Value: 0,
		GPIO2Mode: GPIOModeIn, GPIO2Value: 1,
		GPIO3Mode: GPIOModeOut, GPIO3Value: 0,
	}, v)
	assert.Equal(t, byte(1), v.Value(2))
}

func TestMCP2221_GPIOParametersRequests(t *testing.T) {
	d, f := newFakeChip(nil)
	ctx := context.Background()
	params := MCP2221GPIOParameters{
		GPIO0Mode:        GPIOModeIn,
		GPIO1Designation: GPIO1ADC1,
		GPIO3Mode:        GPIOModeIn,
		GPIO3Designation: GPIO3LEDI2C,
	}

	require.NoError(t, d.ConfigureGPIO(ctx, params))
	require.NoError(t, d.SetGPIOParameters(ctx, params))
	require.Len(t, f.requests, 2)

	sram := f.requests[0]
	assert.Equal(t, cmdSetSRAM, sram[0])
	assert.Equal(t, byte(0x80), sram[7])
	assert.Equal(t, []byte{0x08, 0x02, 0x00, 0x09}, sram[8:12])

	flash := f.requests[1]
	assert.Equal(t, []byte{cmdWriteFlash, flashGPSettings, 0x08, 0x02, 0x00, 0x09}, flash[:6])
}

func TestMCP2221_ExchangeError(t *testing.T) {
	d, f := newFakeChip(nil)
	f.err = errors.New("usb unplugged")
	pin, err := d.Pin(context.Background(), 0)
	require.NoError(t, err)

	assert.ErrorIs(t, pin.In(), f.err)
	_, err = pin.Read()
	assert.ErrorIs(t, err, f.err)
}

func TestMCP2221_I2CBusy(t *testing.T) {
	d, f := newFakeChip(nil)
	f.status = 0x01
	err := d.WriteToAddr(context.Background(), 0x20, []byte{0x00, 0xFF})
	assert.ErrorIs(t, err, sht21.ErrBusBusy)
	req := f.requests[0]
	assert.Equal(t, []byte{cmdI2CWrite, 0x02, 0x00, 0x40, 0x00, 0xFF}, req[:6])
}

func TestGPPin_Range(t *testing.T) {
	d, _ := newFakeChip(nil)
	_, err := d.Pin(context.Background(), 4)
	assert.ErrorIs(t, err, sht21.ErrPinUnavailable)
}

func TestGPPin_MeasuresThroughAdapter(t *testing.T) {
	dev := simulator.New(simulator.WithRaw(0x1000, 0x0800), simulator.WithReadyAfter(1))
	sim := dev.Port()
	d, _ := newFakeChip(map[int]sht21.Pin{2: sim.Data, 3: sim.Clock})
	ctx := context.Background()

	data, err := d.Pin(ctx, 2)
	require.NoError(t, err)
	clock, err := d.Pin(ctx, 3)
	require.NoError(t, err)
	s, err := environment.NewSHT21(sht21.Port{Name: "mcp2221", Data: data, Clock: clock},
		environment.WithWait(func(context.Context) {}),
		environment.WithBusOptions(wire.WithDelayer(wire.DelayFunc(func(time.Duration) {}))),
	)
	require.NoError(t, err)

	temp, hum, err := s.GetTempAndHum(ctx)
	require.NoError(t, err)
	assert.InDelta(t, -2.92, temp, 0.001)
	assert.InDelta(t, 56.5, hum, 0.001)
	assert.True(t, dev.Idle())
}
