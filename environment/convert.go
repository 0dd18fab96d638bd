package environment

import "math"

// Magnus coefficients over water (Sonntag 1990), valid -45C..60C.
const (
	magnusA = 17.62
	magnusB = 243.12
)

// ConvertTemperature maps a raw temperature count to degrees Celsius.
func ConvertTemperature(raw uint16) float32 {
	return (175.72/16384.0)*float32(raw) - 46.85
}

// ConvertHumidity maps a raw humidity count to %RH, clamped to [0.1, 100].
// Readings above 99 snap to 100.
func ConvertHumidity(raw uint16) float32 {
	rh := -6.0 + (125.0/4096.0)*float32(raw)
	if rh > 99 {
		return 100
	}
	if rh < 0.1 {
		return 0.1
	}
	return rh
}

// Dewpoint returns the dew point in degrees Celsius for relative humidity h
// (%RH) at temperature t (C).
func Dewpoint(h, t float32) float32 {
	gamma := math.Log(float64(h)/100) + magnusA*float64(t)/(magnusB+float64(t))
	return float32(magnusB * gamma / (magnusA - gamma))
}
