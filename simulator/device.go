// Package simulator models an SHT21 sitting on the other end of the bit-banged
// bus. It exposes the two lines as sht21.Pin values so drivers can run their
// real line sequences against it without any hardware.
package simulator

import (
	"sync"

	"github.com/sigurn/crc8"
	"periph.io/x/conn/v3/gpio"

	"github.com/mklimuk/sht21"
)

// Device command codes.
const (
	CmdMeasureTemp byte = 0xE3
	CmdMeasureHumi byte = 0xE5
	CmdWriteStatus byte = 0xE6
	CmdReadStatus  byte = 0xE7
	CmdSoftReset   byte = 0xFE
)

// DefaultStatus is the user register content after power-up or soft reset.
const DefaultStatus byte = 0x02

const NeverReady = -1

const (
	defaultRawTemp = 0x19A0 // ~23.5C
	defaultRawHumi = 0x07CC // ~54.9%RH
)

var table = crc8.MakeTable(crc8.Params{
	Poly:   0x31,
	Init:   0x00,
	RefIn:  false,
	RefOut: false,
	XorOut: 0x00,
	Check:  0xA2,
	Name:   "CRC-8/SHT21",
})

// RawFunc produces the raw count returned for a measurement command.
type RawFunc func(cmd byte) uint16

// ChecksumFunc produces the checksum byte sent after the two data bytes.
type ChecksumFunc func(data []byte) byte

// CRC8 is the checksum a real device sends.
func CRC8(data []byte) byte {
	return crc8.Checksum(data, table)
}

// Zero sends a zero checksum regardless of data.
func Zero([]byte) byte {
	return 0
}

type Opt func(*Device)

// WithRaw sets the raw counts answered for temperature and humidity.
func WithRaw(temp, humi uint16) Opt {
	return func(d *Device) {
		d.raw = func(cmd byte) uint16 {
			if cmd == CmdMeasureTemp {
				return temp
			}
			return humi
		}
	}
}

func WithRawFunc(f RawFunc) Opt {
	return func(d *Device) {
		d.raw = f
	}
}

// WithReadyAfter sets how many polls read busy before data is ready.
// NeverReady keeps the device busy forever.
func WithReadyAfter(polls int) Opt {
	return func(d *Device) {
		d.readyAfter = polls
	}
}

func WithChecksum(f ChecksumFunc) Opt {
	return func(d *Device) {
		d.checksum = f
	}
}

// WithNoAck makes the device ignore every byte it receives.
func WithNoAck() Opt {
	return func(d *Device) {
		d.noAck = true
	}
}

// WithEcho makes the device acknowledge any byte and send it straight back.
func WithEcho() Opt {
	return func(d *Device) {
		d.echo = true
	}
}

type state int

const (
	stateIdle state = iota
	stateCommand
	stateStatusData
	stateMeasuring
	stateSending
)

type startPhase int

const (
	startNone startPhase = iota
	startFell
	startClocked
)

// Device is a simulated sensor. The data line is wired-AND: it reads low when
// either side drives it low and high otherwise.
type Device struct {
	mx sync.Mutex

	raw        RawFunc
	checksum   ChecksumFunc
	readyAfter int
	noAck      bool
	echo       bool

	// host side of the lines
	clockOut  bool
	clock     gpio.Level
	dataOut   bool
	dataLevel gpio.Level

	// device side
	pullLow bool
	state   state
	start   startPhase
	bits    int
	shift   byte
	acking  bool
	acked   bool
	tx      []byte
	busy    int
	status  byte

	received []byte
	starts   int
	polls    int
}

func New(opts ...Opt) *Device {
	d := &Device{
		checksum:  CRC8,
		status:    DefaultStatus,
		dataLevel: gpio.High,
	}
	WithRaw(defaultRawTemp, defaultRawHumi)(d)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Port returns the lines of the device as a port.
func (d *Device) Port() sht21.Port {
	return sht21.Port{Name: "sim", Data: dataPin{d}, Clock: clockPin{d}}
}

// Idle reports whether the host left the lines in idle state: data released
// and clock driven low.
func (d *Device) Idle() bool {
	d.mx.Lock()
	defer d.mx.Unlock()
	return !d.dataOut && d.clockOut && d.clock == gpio.Low
}

// Received returns the bytes the device accepted, in order.
func (d *Device) Received() []byte {
	d.mx.Lock()
	defer d.mx.Unlock()
	return append([]byte(nil), d.received...)
}

// Starts returns the number of start conditions seen.
func (d *Device) Starts() int {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.starts
}

// Polls returns the number of data line reads taken while measuring.
func (d *Device) Polls() int {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.polls
}

func (d *Device) Status() byte {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.status
}

func (d *Device) hostLevel() gpio.Level {
	if !d.dataOut {
		return gpio.High
	}
	return d.dataLevel
}

func (d *Device) line() gpio.Level {
	if d.pullLow {
		return gpio.Low
	}
	return d.hostLevel()
}

// setData applies a host change of the data line and watches for the start
// sequence, which is the only place data moves while the clock is high.
func (d *Device) setData(out bool, level gpio.Level) {
	before := d.hostLevel()
	d.dataOut = out
	d.dataLevel = level
	after := d.hostLevel()
	if d.clock != gpio.High || before == after {
		return
	}
	switch {
	case after == gpio.Low:
		d.start = startFell
		d.pullLow = false
		d.state = stateIdle
	case d.start == startClocked:
		d.start = startNone
		d.starts++
		d.begin(stateCommand)
	}
}

func (d *Device) begin(s state) {
	d.state = s
	d.bits = 0
	d.shift = 0
	d.acking = false
}

func (d *Device) setClock(level gpio.Level) {
	d.clockOut = true
	if d.clock == level {
		return
	}
	d.clock = level
	if d.start != startNone {
		if level == gpio.High && d.start == startFell {
			d.start = startClocked
		}
		return
	}
	switch d.state {
	case stateCommand, stateStatusData:
		d.receiveEdge(level)
	case stateSending:
		d.sendEdge(level)
	}
}

func (d *Device) receiveEdge(level gpio.Level) {
	if level == gpio.High {
		switch {
		case d.bits < 8:
			d.shift <<= 1
			if d.line() == gpio.High {
				d.shift |= 1
			}
			d.bits++
		case d.bits == 8:
			d.bits++
		}
		return
	}
	switch d.bits {
	case 8:
		if d.accepts(d.shift) {
			d.pullLow = true
			d.acking = true
		}
	case 9:
		d.pullLow = false
		if d.acking {
			d.received = append(d.received, d.shift)
			d.process(d.shift)
			return
		}
		d.state = stateIdle
	}
}

func (d *Device) accepts(b byte) bool {
	if d.noAck {
		return false
	}
	if d.echo || d.state == stateStatusData {
		return true
	}
	switch b {
	case CmdMeasureTemp, CmdMeasureHumi, CmdWriteStatus, CmdReadStatus, CmdSoftReset:
		return true
	}
	return false
}

func (d *Device) process(b byte) {
	if d.state == stateStatusData {
		d.status = b
		d.state = stateIdle
		return
	}
	if d.echo {
		d.send(b)
		return
	}
	switch b {
	case CmdMeasureTemp, CmdMeasureHumi:
		raw := d.raw(b)
		data := []byte{byte(raw >> 8), byte(raw)}
		d.tx = append(data, d.checksum(data))
		d.busy = 0
		d.state = stateMeasuring
	case CmdReadStatus:
		d.send(d.status)
	case CmdWriteStatus:
		d.begin(stateStatusData)
	case CmdSoftReset:
		d.status = DefaultStatus
		d.state = stateIdle
	}
}

func (d *Device) send(data ...byte) {
	d.tx = data
	d.begin(stateSending)
}

func (d *Device) sendEdge(level gpio.Level) {
	if level == gpio.High {
		switch {
		case d.bits < 8:
			d.pullLow = d.tx[0]&(0x80>>d.bits) == 0
			d.bits++
		case d.bits == 8:
			d.acked = d.line() == gpio.Low
			d.bits++
		}
		return
	}
	switch d.bits {
	case 8:
		d.pullLow = false
	case 9:
		d.tx = d.tx[1:]
		d.bits = 0
		if !d.acked || len(d.tx) == 0 {
			d.tx = nil
			d.state = stateIdle
		}
	}
}

// poll answers a host read of the data line while a measurement is running.
func (d *Device) poll() {
	d.polls++
	if d.readyAfter < 0 || d.busy < d.readyAfter {
		d.busy++
		return
	}
	d.begin(stateSending)
	d.pullLow = true
}

type dataPin struct {
	d *Device
}

func (p dataPin) In() error {
	p.d.mx.Lock()
	defer p.d.mx.Unlock()
	p.d.setData(false, p.d.dataLevel)
	return nil
}

func (p dataPin) Out(level gpio.Level) error {
	p.d.mx.Lock()
	defer p.d.mx.Unlock()
	p.d.setData(true, level)
	return nil
}

func (p dataPin) Read() (gpio.Level, error) {
	p.d.mx.Lock()
	defer p.d.mx.Unlock()
	if p.d.state == stateMeasuring && p.d.clock == gpio.Low {
		p.d.poll()
	}
	return p.d.line(), nil
}

type clockPin struct {
	d *Device
}

func (p clockPin) In() error {
	p.d.mx.Lock()
	defer p.d.mx.Unlock()
	p.d.clockOut = false
	return nil
}

func (p clockPin) Out(level gpio.Level) error {
	p.d.mx.Lock()
	defer p.d.mx.Unlock()
	p.d.setClock(level)
	return nil
}

func (p clockPin) Read() (gpio.Level, error) {
	p.d.mx.Lock()
	defer p.d.mx.Unlock()
	return p.d.clock, nil
}
