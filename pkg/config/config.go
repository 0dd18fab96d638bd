// Package config holds the CLI configuration file format and the build
// version injected by the dev tool.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/sht21/environment"
)

// Set at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Port backends
const (
	BackendPeriph   = "periph"
	BackendCdev     = "gpiocdev"
	BackendGobot    = "gobot"
	BackendMCP23017 = "mcp23017"
	BackendMCP2221  = "mcp2221"
	BackendSim      = "sim"
)

// BusMCP2221 routes MCP23017 traffic through the USB bridge instead of a host
// I2C controller.
const BusMCP2221 = "mcp2221"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Port   Port   `yaml:"port"`
	Sensor Sensor `yaml:"sensor"`
	MQTT   *MQTT  `yaml:"mqtt,omitempty"`
}

// Port selects the GPIO backend and the two lines. Data and Clock are pin
// names for periph and gobot and line numbers for the other backends.
type Port struct {
	Backend string `yaml:"backend"`
	Data    string `yaml:"data"`
	Clock   string `yaml:"clock"`
	// gpiocdev
	Chip string `yaml:"chip,omitempty"`
	// mcp23017
	Bus     string `yaml:"bus,omitempty"`
	Address uint8  `yaml:"address,omitempty"`
	// mcp2221 (also as mcp23017 bus)
	Device       int           `yaml:"device,omitempty"`
	ResponseWait time.Duration `yaml:"response_wait,omitempty"`
}

type Sensor struct {
	Checksum     string        `yaml:"checksum"`
	PollBudget   int           `yaml:"poll_budget"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Setup        time.Duration `yaml:"setup,omitempty"`
	Hold         time.Duration `yaml:"hold,omitempty"`
}

type MQTT struct {
	Broker   string        `yaml:"broker"`
	ClientID string        `yaml:"client_id"`
	Topic    string        `yaml:"topic"`
	QoS      byte          `yaml:"qos"`
	Retained bool          `yaml:"retained"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Default runs against the simulated sensor so the CLI works out of the box.
func Default() Config {
	return Config{
		Port: Port{
			Backend: BackendSim,
			Chip:    "gpiochip0",
			Address: 0x20,
			Device:  -1,
		},
		Sensor: Sensor{
			Checksum:     environment.ChecksumCRC8.String(),
			PollBudget:   environment.DefaultPollBudget,
			PollInterval: environment.DefaultPollInterval,
		},
	}
}

// Load reads the file at path. An empty path returns the default config.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return Parse(f)
}

// Parse decodes a config over the defaults and validates it.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("could not decode config: %w", err)
	}
	if cfg.MQTT != nil {
		cfg.MQTT.defaults()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (m *MQTT) defaults() {
	if m.ClientID == "" {
		m.ClientID = "sht21"
	}
	if m.Topic == "" {
		m.Topic = "sensors/sht21"
	}
	if m.Timeout == 0 {
		m.Timeout = 5 * time.Second
	}
}

func (c Config) Validate() error {
	switch c.Port.Backend {
	case BackendSim:
	case BackendPeriph, BackendGobot:
		if c.Port.Data == "" || c.Port.Clock == "" {
			return fmt.Errorf("%w: %s backend needs data and clock pins", ErrInvalid, c.Port.Backend)
		}
	case BackendCdev, BackendMCP23017, BackendMCP2221:
		if _, _, err := c.Port.Lines(); err != nil {
			return err
		}
		if c.Port.Backend == BackendCdev && c.Port.Chip == "" {
			return fmt.Errorf("%w: gpiocdev backend needs a chip", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalid, c.Port.Backend)
	}
	if _, err := environment.ParseChecksumMode(c.Sensor.Checksum); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Sensor.PollBudget < 0 {
		return fmt.Errorf("%w: negative poll budget", ErrInvalid)
	}
	if c.MQTT != nil && c.MQTT.Broker == "" {
		return fmt.Errorf("%w: mqtt section needs a broker", ErrInvalid)
	}
	return nil
}

// Lines returns data and clock as line numbers.
func (p Port) Lines() (data, clock int, err error) {
	data, err = strconv.Atoi(p.Data)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: data line %q is not a number", ErrInvalid, p.Data)
	}
	clock, err = strconv.Atoi(p.Clock)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: clock line %q is not a number", ErrInvalid, p.Clock)
	}
	return data, clock, nil
}

// Encode writes c as YAML.
func (c Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
