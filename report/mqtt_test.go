package report

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// token is a completed (or never completing) mqtt.Token.
type token struct {
	done chan struct{}
	err  error
}

func doneToken(err error) *token {
	t := &token{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func pendingToken() *token {
	return &token{done: make(chan struct{})}
}

func (t *token) Wait() bool {
	<-t.done
	return true
}

func (t *token) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *token) Done() <-chan struct{} {
	return t.done
}

func (t *token) Error() error {
	return t.err
}

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Connect() mqtt.Token {
	return m.Called().Get(0).(mqtt.Token)
}

func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	return m.Called(topic, qos, retained, payload).Get(0).(mqtt.Token)
}

func (m *mockClient) Disconnect(quiesce uint) {
	m.Called(quiesce)
}

var opts = Options{Broker: "tcp://broker:1883", ClientID: "test", Topic: "sensors/sht21", QoS: 1, Retained: true, Timeout: time.Second}

func TestPublisher_Publish(t *testing.T) {
	c := &mockClient{}
	c.On("Connect").Return(doneToken(nil))
	var payload []byte
	c.On("Publish", "sensors/sht21", byte(1), true, mock.Anything).
		Run(func(args mock.Arguments) {
			payload = args.Get(3).([]byte)
		}).
		Return(doneToken(nil))
	c.On("Disconnect", uint(250)).Return()
	ctx := context.Background()

	p, err := Connect(ctx, c, opts)
	require.NoError(t, err)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, p.Publish(ctx, Reading{Time: at, Port: "sim", Temperature: 21.5, Humidity: 40, Dewpoint: 7.5}))
	p.Close()

	var got map[string]any
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, map[string]any{
		"time":        "2024-05-01T12:00:00Z",
		"port":        "sim",
		"temp_c":      21.5,
		"humidity_rh": 40.0,
		"dewpoint_c":  7.5,
	}, got)
	c.AssertExpectations(t)
}

func TestConnect_Error(t *testing.T) {
	c := &mockClient{}
	refused := errors.New("connection refused")
	c.On("Connect").Return(doneToken(refused))

	_, err := Connect(context.Background(), c, opts)
	assert.ErrorIs(t, err, refused)
}

func TestPublish_Timeout(t *testing.T) {
	c := &mockClient{}
	c.On("Connect").Return(doneToken(nil))
	c.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(pendingToken())
	o := opts
	o.Timeout = 10 * time.Millisecond

	p, err := Connect(context.Background(), c, o)
	require.NoError(t, err)
	err = p.Publish(context.Background(), Reading{})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestPublish_Cancelled(t *testing.T) {
	c := &mockClient{}
	c.On("Connect").Return(doneToken(nil))
	c.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(pendingToken())
	o := opts
	o.Timeout = 0

	p, err := Connect(context.Background(), c, o)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, Reading{}), context.Canceled)
}
