package environment

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mklimuk/sht21"
	"github.com/mklimuk/sht21/snsctx"
	"github.com/mklimuk/sht21/wire"
)

// Commands (sent right after the start condition, no address byte)
const (
	sht21CmdMeasureTemp byte = 0xE3
	sht21CmdMeasureHumi byte = 0xE5
	sht21CmdWriteStatus byte = 0xE6
	sht21CmdReadStatus  byte = 0xE7
	sht21CmdSoftReset   byte = 0xFE
)

// Soft reset takes less than 15ms according to the datasheet.
const sht21SoftResetTime = 15 * time.Millisecond

// Command selects the quantity a measurement asks for.
type Command int

const (
	Temperature Command = iota
	Humidity
)

func (c Command) code() byte {
	if c == Humidity {
		return sht21CmdMeasureHumi
	}
	return sht21CmdMeasureTemp
}

func (c Command) String() string {
	switch c {
	case Temperature:
		return "temperature"
	case Humidity:
		return "humidity"
	default:
		return fmt.Sprintf("Command(%d)", int(c))
	}
}

// SHT21 represents a Sensirion SHT21 humidity/temperature sensor wired to two
// plain digital lines.
// Typical usage:
//
//	s, err := NewSHT21(port)
//	t, h, err := s.GetTempAndHum(ctx)
//
// A handle is not safe for concurrent use: the lines are shared state and
// callers serialize access to one handle.
type SHT21 struct {
	bus    *wire.Bus
	port   string
	config SHT21Opts
	meas   [2]uint16
}

// NewSHT21 binds a sensor to port and resets the bus.
func NewSHT21(port sht21.Port, opts ...SHT21Opt) (*SHT21, error) {
	config := SHT21Opts{
		Checksum:   ChecksumCRC8,
		PollBudget: DefaultPollBudget,
		Wait:       Sleep(DefaultPollInterval),
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.PollBudget <= 0 {
		config.PollBudget = DefaultPollBudget
	}
	if config.Wait == nil {
		config.Wait = Sleep(DefaultPollInterval)
	}
	s := &SHT21{
		bus:    wire.New(port, config.Bus...),
		port:   port.String(),
		config: config,
	}
	if err := s.Reset(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset runs the bus recovery sequence. It does not touch the device's
// registers; see SoftReset for that.
func (s *SHT21) Reset(ctx context.Context) error {
	s.trace(ctx, "bus reset")
	s.bus.Reset()
	if err := s.bus.Err(); err != nil {
		return fmt.Errorf("sht21: bus reset failed: %w", err)
	}
	return nil
}

// Measure runs one measurement and stores its raw count. wait overrides the
// configured Waiter for this call. On timeout or checksum mismatch the bus is
// reset before returning and the stored count is left untouched.
func (s *SHT21) Measure(ctx context.Context, cmd Command, wait ...Waiter) error {
	w := s.config.Wait
	if len(wait) > 0 && wait[0] != nil {
		w = wait[0]
	}
	s.bus.Start()
	if nack := s.bus.WriteByte(cmd.code()); nack {
		// not fatal: a device that missed the command never signals ready
		s.logger(ctx).DebugContext(ctx, "measurement command not acknowledged", "port", s.port, "command", cmd)
	}
	if err := s.bus.Err(); err != nil {
		return s.fail(ctx, fmt.Errorf("sht21: %s command write failed: %w", cmd, err))
	}
	for i := 0; i < s.config.PollBudget; i++ {
		if s.bus.Ready() {
			s.trace(ctx, "data ready", "command", cmd, "polls", i)
			return s.retrieve(ctx, cmd)
		}
		if err := s.bus.Err(); err != nil {
			return s.fail(ctx, fmt.Errorf("sht21: %s poll failed: %w", cmd, err))
		}
		w(ctx)
		if err := ctx.Err(); err != nil {
			return s.fail(ctx, fmt.Errorf("sht21: %s measurement aborted: %w", cmd, err))
		}
	}
	return s.fail(ctx, fmt.Errorf("sht21: %s measurement after %d polls: %w", cmd, s.config.PollBudget, sht21.ErrTimeout))
}

func (s *SHT21) retrieve(ctx context.Context, cmd Command) error {
	var data [2]byte
	data[0] = s.bus.ReadByte(true)
	data[1] = s.bus.ReadByte(true)
	sum := s.bus.ReadByte(false)
	if err := s.bus.Err(); err != nil {
		return s.fail(ctx, fmt.Errorf("sht21: %s read failed: %w", cmd, err))
	}
	s.trace(ctx, "measurement read", "command", cmd, "data", hex.EncodeToString(data[:]), "checksum", fmt.Sprintf("%#02x", sum))
	if !s.config.Checksum.valid(data[:], sum) {
		return s.fail(ctx, fmt.Errorf("sht21: %s checksum %#x (mode %s): %w", cmd, sum, s.config.Checksum, sht21.ErrChecksum))
	}
	s.meas[cmd] = binary.BigEndian.Uint16(data[:])
	return nil
}

// fail resets the bus after a failed transaction so the next one starts from
// idle, and returns err.
func (s *SHT21) fail(ctx context.Context, err error) error {
	s.logger(ctx).DebugContext(ctx, "transaction failed, resetting bus", "port", s.port, "error", err)
	_ = s.bus.Err()
	s.bus.Reset()
	if rerr := s.bus.Err(); rerr != nil {
		return errors.Join(err, fmt.Errorf("sht21: bus reset failed: %w", rerr))
	}
	return err
}

// Raw returns the last raw count stored for cmd.
func (s *SHT21) Raw(cmd Command) uint16 {
	return s.meas[cmd]
}

// Calculate converts the last stored counts to %RH and degrees Celsius.
func (s *SHT21) Calculate() (humidity float32, temperature float32) {
	return ConvertHumidity(s.meas[Humidity]), ConvertTemperature(s.meas[Temperature])
}

// GetTemperature performs a temperature measurement and returns it in Celsius.
func (s *SHT21) GetTemperature(ctx context.Context) (float32, error) {
	if err := s.Measure(ctx, Temperature); err != nil {
		return 0, err
	}
	return ConvertTemperature(s.meas[Temperature]), nil
}

// GetHumidity performs a humidity measurement and returns it in %RH.
func (s *SHT21) GetHumidity(ctx context.Context) (float32, error) {
	if err := s.Measure(ctx, Humidity); err != nil {
		return 0, err
	}
	return ConvertHumidity(s.meas[Humidity]), nil
}

// GetTempAndHum measures both quantities, temperature first.
func (s *SHT21) GetTempAndHum(ctx context.Context) (float32, float32, error) {
	if err := s.Measure(ctx, Temperature); err != nil {
		return 0, 0, err
	}
	if err := s.Measure(ctx, Humidity); err != nil {
		return 0, 0, err
	}
	h, t := s.Calculate()
	return t, h, nil
}

// ReadStatus returns the device status (user register) byte.
func (s *SHT21) ReadStatus(ctx context.Context) (byte, error) {
	s.bus.Start()
	nack := s.bus.WriteByte(sht21CmdReadStatus)
	if err := s.check(nack, "read status command"); err != nil {
		return 0, s.fail(ctx, err)
	}
	status := s.bus.ReadByte(false)
	if err := s.bus.Err(); err != nil {
		return 0, s.fail(ctx, fmt.Errorf("sht21: status read failed: %w", err))
	}
	s.trace(ctx, "status read", "status", fmt.Sprintf("%#02x", status))
	return status, nil
}

// WriteStatus replaces the device status byte.
func (s *SHT21) WriteStatus(ctx context.Context, value byte) error {
	s.bus.Start()
	nack := s.bus.WriteByte(sht21CmdWriteStatus)
	if err := s.check(nack, "write status command"); err != nil {
		return s.fail(ctx, err)
	}
	nack = s.bus.WriteByte(value)
	if err := s.check(nack, "status value"); err != nil {
		return s.fail(ctx, err)
	}
	s.trace(ctx, "status written", "status", fmt.Sprintf("%#02x", value))
	return nil
}

// SoftReset reboots the device, restoring the default status byte, and waits
// until it is ready for the next command.
func (s *SHT21) SoftReset(ctx context.Context) error {
	s.bus.Start()
	nack := s.bus.WriteByte(sht21CmdSoftReset)
	if err := s.check(nack, "soft reset command"); err != nil {
		return s.fail(ctx, err)
	}
	timer := time.NewTimer(sht21SoftResetTime)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// check turns the outcome of a byte write into an error. Pin failures take
// precedence over the acknowledge bit since the bit was not really sampled.
func (s *SHT21) check(nack bool, what string) error {
	if err := s.bus.Err(); err != nil {
		return fmt.Errorf("sht21: %s failed: %w", what, err)
	}
	if nack {
		return fmt.Errorf("sht21: %s: %w", what, sht21.ErrNoAck)
	}
	return nil
}

func (s *SHT21) logger(ctx context.Context) *slog.Logger {
	if s.config.Logger != nil {
		return s.config.Logger
	}
	return snsctx.Logger(ctx)
}

func (s *SHT21) trace(ctx context.Context, msg string, args ...any) {
	args = append(args, "port", s.port)
	if snsctx.IsVerbose(ctx) {
		s.logger(ctx).InfoContext(ctx, msg, args...)
		return
	}
	s.logger(ctx).DebugContext(ctx, msg, args...)
}
