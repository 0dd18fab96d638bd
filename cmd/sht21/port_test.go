package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/sht21/cmd/sht21/console"
	"github.com/mklimuk/sht21/environment"
	"github.com/mklimuk/sht21/pkg/config"
	"github.com/mklimuk/sht21/report"
)

func TestOpenSensor_Sim(t *testing.T) {
	c := config.Default()
	c.Sensor.PollInterval = time.Microsecond
	ctx := context.Background()

	s, err := openSensor(ctx, c)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, s.Close())
	}()

	r, err := measure(ctx, s.port, s)
	require.NoError(t, err)
	assert.Equal(t, "sim", s.port)
	assert.InDelta(t, 23.51, r.Temperature, 0.01)
	assert.InDelta(t, 54.91, r.Humidity, 0.01)
	assert.Less(t, r.Dewpoint, r.Temperature)
}

func TestMeasure_Error(t *testing.T) {
	failed := errors.New("no ack")
	m := environment.NewMock(environment.Fixed(20), func(context.Context) (float32, error) {
		return 0, failed
	})
	_, err := measure(context.Background(), "mock", m)
	assert.ErrorIs(t, err, failed)

	r, err := measure(context.Background(), "mock", environment.NewMock(environment.Fixed(20), environment.Fixed(100)))
	require.NoError(t, err)
	assert.InDelta(t, 20, r.Dewpoint, 0.01, "saturated air dewpoint equals temperature")
}

func TestOpenSensor_Invalid(t *testing.T) {
	c := config.Default()
	c.Port.Backend = "spi"
	_, err := openSensor(context.Background(), c)
	assert.ErrorIs(t, err, config.ErrInvalid)

	c = config.Default()
	c.Sensor.Checksum = "md5"
	_, err = openSensor(context.Background(), c)
	assert.ErrorContains(t, err, "md5")
}

func TestSensorOptions(t *testing.T) {
	opts, err := sensorOptions(config.Sensor{Checksum: "off", PollBudget: 10, PollInterval: time.Millisecond})
	require.NoError(t, err)
	assert.Len(t, opts, 3, "default timing adds no bus option")

	opts, err = sensorOptions(config.Sensor{Checksum: "crc8", Hold: 10 * time.Microsecond})
	require.NoError(t, err)
	assert.Len(t, opts, 4)
}

func TestPrintReading(t *testing.T) {
	var out bytes.Buffer
	console.SetOutput(&out, &out)
	defer console.SetOutput(&bytes.Buffer{}, &bytes.Buffer{})

	r := report.Reading{
		Time:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Port:        "sim",
		Temperature: 23.5,
		Humidity:    55,
		Dewpoint:    13.97,
	}
	require.NoError(t, printReading(r, true))
	assert.Contains(t, out.String(), "temperature: 23.5\n")
	assert.Contains(t, out.String(), "port: sim\n")

	out.Reset()
	require.NoError(t, printReading(r, false))
	assert.Contains(t, out.String(), "23.50")
	assert.Contains(t, out.String(), "13.97")
}
