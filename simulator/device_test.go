package simulator_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"

	"github.com/mklimuk/sht21/simulator"
	"github.com/mklimuk/sht21/wire"
)

func newBus(d *simulator.Device) *wire.Bus {
	b := wire.New(d.Port(), wire.WithDelayer(wire.DelayFunc(func(time.Duration) {})))
	b.Reset()
	return b
}

func TestCRC8(t *testing.T) {
	assert.Equal(t, byte(0xA2), simulator.CRC8([]byte("123456789")))
	assert.Equal(t, byte(0x7C), simulator.CRC8([]byte{0x68, 0x3A}))
	assert.Equal(t, byte(0), simulator.Zero([]byte{0x68, 0x3A}))
}

func TestDevice_StartDetection(t *testing.T) {
	d := simulator.New()
	b := newBus(d)
	assert.Equal(t, 1, d.Starts())
	assert.True(t, d.Idle())

	b.Start()
	b.Start()
	assert.Equal(t, 3, d.Starts())
	assert.Empty(t, d.Received())
}

func TestDevice_IgnoresUnknownCommand(t *testing.T) {
	d := simulator.New()
	b := newBus(d)
	b.Start()
	assert.True(t, b.WriteByte(0x42))
	assert.Empty(t, d.Received())
}

func TestDevice_Measurement(t *testing.T) {
	d := simulator.New(simulator.WithRawFunc(func(cmd byte) uint16 {
		return uint16(cmd) << 4
	}), simulator.WithReadyAfter(2))
	b := newBus(d)

	b.Start()
	require.False(t, b.WriteByte(simulator.CmdMeasureHumi))
	assert.False(t, b.Ready())
	assert.False(t, b.Ready())
	require.True(t, b.Ready())
	assert.Equal(t, 3, d.Polls())

	msb := b.ReadByte(true)
	lsb := b.ReadByte(true)
	sum := b.ReadByte(false)
	assert.Equal(t, byte(0x0E), msb)
	assert.Equal(t, byte(0x50), lsb)
	assert.Equal(t, simulator.CRC8([]byte{msb, lsb}), sum)
	assert.NoError(t, b.Err())
	assert.True(t, d.Idle())
	assert.Equal(t, []byte{simulator.CmdMeasureHumi}, d.Received())
}

func TestDevice_NackStopsTransmission(t *testing.T) {
	d := simulator.New(simulator.WithRaw(0xFFFF, 0xFFFF))
	b := newBus(d)

	b.Start()
	require.False(t, b.WriteByte(simulator.CmdMeasureTemp))
	require.True(t, b.Ready())
	assert.Equal(t, byte(0xFF), b.ReadByte(false))
	// device stopped sending, the line floats high
	assert.Equal(t, byte(0xFF), b.ReadByte(false))

	// a new transaction works as usual
	b.Start()
	require.False(t, b.WriteByte(simulator.CmdReadStatus))
	assert.Equal(t, simulator.DefaultStatus, b.ReadByte(false))
}

func TestDevice_StatusRegister(t *testing.T) {
	d := simulator.New()
	b := newBus(d)

	b.Start()
	require.False(t, b.WriteByte(simulator.CmdWriteStatus))
	require.False(t, b.WriteByte(0x3B))
	assert.Equal(t, byte(0x3B), d.Status())

	b.Start()
	require.False(t, b.WriteByte(simulator.CmdSoftReset))
	assert.Equal(t, simulator.DefaultStatus, d.Status())
}

func TestDevice_ResetAbortsMeasurement(t *testing.T) {
	d := simulator.New(simulator.WithReadyAfter(simulator.NeverReady))
	b := newBus(d)

	b.Start()
	require.False(t, b.WriteByte(simulator.CmdMeasureTemp))
	for range 5 {
		assert.False(t, b.Ready())
	}
	b.Reset()
	assert.True(t, d.Idle())
	assert.False(t, b.Ready(), "no polls counted outside a measurement")
	assert.Equal(t, 5, d.Polls())
}

func TestDevice_WiredAnd(t *testing.T) {
	d := simulator.New()
	p := d.Port()

	require.NoError(t, p.Data.In())
	l, err := p.Data.Read()
	require.NoError(t, err)
	assert.Equal(t, gpio.High, l)

	require.NoError(t, p.Data.Out(gpio.Low))
	l, _ = p.Data.Read()
	assert.Equal(t, gpio.Low, l)

	require.NoError(t, p.Clock.Out(gpio.High))
	l, _ = p.Clock.Read()
	assert.Equal(t, gpio.High, l)
	assert.False(t, d.Idle())
}
