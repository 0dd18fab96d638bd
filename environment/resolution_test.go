package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStatus(t *testing.T) {
	tests := []struct {
		given    byte
		expected StatusInfo
	}{
		{0x02, StatusInfo{Raw: 0x02, Resolution: Resolution{12, 14}}},
		{0x3B, StatusInfo{Raw: 0x3B, Resolution: Resolution{8, 12}}},
		{0x80, StatusInfo{Raw: 0x80, Resolution: Resolution{10, 13}, OTPReload: true}},
		{0xC7, StatusInfo{Raw: 0xC7, Resolution: Resolution{11, 11}, LowVoltage: true, Heater: true}},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, DecodeStatus(test.given), "status %#x", test.given)
	}
}

func TestWithResolution(t *testing.T) {
	status, err := WithResolution(0x3A, Resolution{Humidity: 11, Temperature: 11})
	require.NoError(t, err)
	assert.Equal(t, byte(0xBB), status)

	status, err = WithResolution(status, Resolution{Humidity: 12, Temperature: 14})
	require.NoError(t, err)
	assert.Equal(t, byte(0x3A), status)

	_, err = WithResolution(0x02, Resolution{Humidity: 9, Temperature: 14})
	assert.Error(t, err)
}

func TestWithHeater(t *testing.T) {
	assert.Equal(t, byte(0x06), WithHeater(0x02, true))
	assert.Equal(t, byte(0x02), WithHeater(0x06, false))
}

func TestChecksumMode(t *testing.T) {
	// datasheet example: 0x683A carries CRC 0x7C
	assert.Equal(t, byte(0x7C), sht21CRC8([]byte{0x68, 0x3A}))
	assert.True(t, ChecksumCRC8.valid([]byte{0x68, 0x3A}, 0x7C))
	assert.False(t, ChecksumCRC8.valid([]byte{0x68, 0x3A}, 0x00))
	assert.True(t, ChecksumCompat.valid([]byte{0x68, 0x3A}, 0x00))
	assert.False(t, ChecksumCompat.valid([]byte{0x68, 0x3A}, 0x7C))
	assert.True(t, ChecksumOff.valid([]byte{0x68, 0x3A}, 0xAA))

	for _, m := range []ChecksumMode{ChecksumCRC8, ChecksumCompat, ChecksumOff} {
		parsed, err := ParseChecksumMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	_, err := ParseChecksumMode("crc16")
	assert.Error(t, err)
}
