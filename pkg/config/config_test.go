package config

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	in := `
port:
  backend: mcp23017
  data: "0"
  clock: "1"
  bus: mcp2221
  address: 0x21
sensor:
  checksum: compat
  poll_budget: 100
  poll_interval: 2ms
  setup: 4us
  hold: 10us
mqtt:
  broker: tcp://localhost:1883
  retained: true
`
	cfg, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, BackendMCP23017, cfg.Port.Backend)
	assert.Equal(t, uint8(0x21), cfg.Port.Address)
	assert.Equal(t, BusMCP2221, cfg.Port.Bus)
	assert.Equal(t, "gpiochip0", cfg.Port.Chip, "defaults stay for keys not given")
	assert.Equal(t, "compat", cfg.Sensor.Checksum)
	assert.Equal(t, 100, cfg.Sensor.PollBudget)
	assert.Equal(t, 2*time.Millisecond, cfg.Sensor.PollInterval)
	assert.Equal(t, 4*time.Microsecond, cfg.Sensor.Setup)
	assert.Equal(t, 10*time.Microsecond, cfg.Sensor.Hold)
	require.NotNil(t, cfg.MQTT)
	assert.Equal(t, MQTT{
		Broker:   "tcp://localhost:1883",
		ClientID: "sht21",
		Topic:    "sensors/sht21",
		Retained: true,
		Timeout:  5 * time.Second,
	}, *cfg.MQTT)

	data, clock, err := cfg.Port.Lines()
	require.NoError(t, err)
	assert.Equal(t, 0, data)
	assert.Equal(t, 1, clock)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_NoPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendSim, cfg.Port.Backend)
	assert.Nil(t, cfg.MQTT)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/sht21.yaml")
	assert.ErrorContains(t, err, "failed to open config file")
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		msg  string
	}{
		{"unknown backend", "port: {backend: spi}", `unknown backend "spi"`},
		{"periph without pins", "port: {backend: periph, data: GPIO17}", "needs data and clock pins"},
		{"cdev line not a number", "port: {backend: gpiocdev, data: GPIO17, clock: \"27\"}", "data line \"GPIO17\" is not a number"},
		{"cdev without chip", "port: {backend: gpiocdev, data: \"17\", clock: \"27\", chip: \"\"}", "needs a chip"},
		{"checksum", "sensor: {checksum: md5}", `unknown checksum mode "md5"`},
		{"poll budget", "sensor: {poll_budget: -1}", "negative poll budget"},
		{"mqtt without broker", "mqtt: {topic: x}", "needs a broker"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(test.in))
			assert.ErrorIs(t, err, ErrInvalid)
			assert.ErrorContains(t, err, test.msg)
		})
	}
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse(strings.NewReader("port: {backend: sim, pin: 3}"))
	assert.ErrorContains(t, err, "could not decode config")
}

func TestEncode_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Port = Port{Backend: BackendPeriph, Data: "GPIO17", Clock: "GPIO27", Chip: "gpiochip0", Address: 0x20, Device: -1}
	cfg.Sensor.PollInterval = 3 * time.Millisecond

	var buf bytes.Buffer
	require.NoError(t, cfg.Encode(&buf))
	assert.Contains(t, buf.String(), "poll_interval: 3ms")

	back, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
