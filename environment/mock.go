package environment

import "context"

// Thermohygrometer is a sensor reporting temperature in Celsius and relative
// humidity in %RH.
type Thermohygrometer interface {
	GetTemperature(ctx context.Context) (float32, error)
	GetHumidity(ctx context.Context) (float32, error)
	GetTempAndHum(ctx context.Context) (float32, float32, error)
}

var (
	_ Thermohygrometer = &SHT21{}
	_ Thermohygrometer = &Mock{}
)

// ReadingFunc produces one value of a mocked quantity.
type ReadingFunc func(ctx context.Context) (float32, error)

// Fixed returns a ReadingFunc always yielding v.
func Fixed(v float32) ReadingFunc {
	return func(context.Context) (float32, error) {
		return v, nil
	}
}

// Mock is a Thermohygrometer driven by functions instead of hardware.
//
//	m := NewMock(Fixed(22.5), func(ctx context.Context) (float32, error) {
//		return hum, nil
//	})
type Mock struct {
	temp ReadingFunc
	hum  ReadingFunc
}

func NewMock(temp, hum ReadingFunc) *Mock {
	return &Mock{temp: temp, hum: hum}
}

func (m *Mock) GetTemperature(ctx context.Context) (float32, error) {
	return m.temp(ctx)
}

func (m *Mock) GetHumidity(ctx context.Context) (float32, error) {
	return m.hum(ctx)
}

// GetTempAndHum calls the temperature function first, like SHT21 does.
func (m *Mock) GetTempAndHum(ctx context.Context) (float32, float32, error) {
	temp, err := m.temp(ctx)
	if err != nil {
		return 0, 0, err
	}
	hum, err := m.hum(ctx)
	if err != nil {
		return 0, 0, err
	}
	return temp, hum, nil
}
