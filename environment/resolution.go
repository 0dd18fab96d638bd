package environment

import "fmt"

// Status byte layout: bits 7 and 0 select the measurement resolution, bit 6
// flags supply voltage below 2.25V, bit 2 enables the on-chip heater and bit 1
// disables OTP reload. Bits 3-5 are reserved and must be written back as read.
const (
	statusResMask    byte = 0x81
	statusLowVoltage byte = 0x40
	statusHeater     byte = 0x04
	statusDisableOTP byte = 0x02
)

// Resolution is the pair of bit widths the device measures with.
type Resolution struct {
	Humidity    int `yaml:"humidity"`
	Temperature int `yaml:"temperature"`
}

var resolutions = map[byte]Resolution{
	0x00: {Humidity: 12, Temperature: 14},
	0x01: {Humidity: 8, Temperature: 12},
	0x80: {Humidity: 10, Temperature: 13},
	0x81: {Humidity: 11, Temperature: 11},
}

// StatusInfo is a decoded status byte.
type StatusInfo struct {
	Raw        byte       `yaml:"raw"`
	Resolution Resolution `yaml:"resolution"`
	LowVoltage bool       `yaml:"low_voltage"`
	Heater     bool       `yaml:"heater"`
	OTPReload  bool       `yaml:"otp_reload"`
}

func DecodeStatus(status byte) StatusInfo {
	return StatusInfo{
		Raw:        status,
		Resolution: resolutions[status&statusResMask],
		LowVoltage: status&statusLowVoltage != 0,
		Heater:     status&statusHeater != 0,
		OTPReload:  status&statusDisableOTP == 0,
	}
}

// WithResolution returns status with its resolution bits replaced by res.
func WithResolution(status byte, res Resolution) (byte, error) {
	for bits, r := range resolutions {
		if r == res {
			return status&^statusResMask | bits, nil
		}
	}
	return status, fmt.Errorf("unsupported resolution RH %d bit / T %d bit", res.Humidity, res.Temperature)
}

// WithHeater returns status with the heater bit set to on.
func WithHeater(status byte, on bool) byte {
	if on {
		return status | statusHeater
	}
	return status &^ statusHeater
}
