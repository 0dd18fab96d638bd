package environment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock_DynamicBehavior(t *testing.T) {
	current := float32(20)
	m := NewMock(func(context.Context) (float32, error) { return current, nil }, Fixed(50))
	ctx := context.Background()

	temp, hum, err := m.GetTempAndHum(ctx)
	require.NoError(t, err)
	assert.Equal(t, float32(20), temp)
	assert.Equal(t, float32(50), hum)

	current = 25.5
	temp, err = m.GetTemperature(ctx)
	require.NoError(t, err)
	assert.Equal(t, float32(25.5), temp)
}

func TestMock_Errors(t *testing.T) {
	failed := errors.New("sensor unplugged")
	calls := 0
	m := NewMock(
		func(context.Context) (float32, error) { return 0, failed },
		func(context.Context) (float32, error) { calls++; return 40, nil },
	)

	_, _, err := m.GetTempAndHum(context.Background())
	assert.ErrorIs(t, err, failed)
	assert.Zero(t, calls, "humidity is not read after a temperature failure")

	hum, err := m.GetHumidity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float32(40), hum)
}
