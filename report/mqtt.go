// Package report publishes readings to an MQTT broker.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/mklimuk/sht21/snsctx"
)

var ErrTimeout = errors.New("mqtt operation timed out")

// Reading is the published payload.
type Reading struct {
	Time        time.Time `json:"time" yaml:"time"`
	Port        string    `json:"port" yaml:"port"`
	Temperature float32   `json:"temp_c" yaml:"temperature"`
	Humidity    float32   `json:"humidity_rh" yaml:"humidity"`
	Dewpoint    float32   `json:"dewpoint_c" yaml:"dewpoint"`
}

// Client is the part of mqtt.Client the publisher uses.
type Client interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type Options struct {
	Broker   string
	ClientID string
	Topic    string
	QoS      byte
	Retained bool
	Timeout  time.Duration
}

// Publisher sends readings to one topic over a connected client.
type Publisher struct {
	client Client
	opts   Options
}

// Dial connects to the broker.
func Dial(ctx context.Context, opts Options) (*Publisher, error) {
	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetConnectTimeout(opts.Timeout)
	return Connect(ctx, mqtt.NewClient(co), opts)
}

// Connect wraps an unconnected client.
func Connect(ctx context.Context, client Client, opts Options) (*Publisher, error) {
	if err := wait(ctx, client.Connect(), opts.Timeout); err != nil {
		return nil, fmt.Errorf("MQTT connect error: %w", err)
	}
	snsctx.Logger(ctx).DebugContext(ctx, "connected to MQTT", "broker", opts.Broker, "client", opts.ClientID)
	return &Publisher{client: client, opts: opts}, nil
}

func (p *Publisher) Publish(ctx context.Context, r Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("could not encode reading: %w", err)
	}
	token := p.client.Publish(p.opts.Topic, p.opts.QoS, p.opts.Retained, payload)
	if err := wait(ctx, token, p.opts.Timeout); err != nil {
		return fmt.Errorf("MQTT publish to %s failed: %w", p.opts.Topic, err)
	}
	snsctx.Logger(ctx).DebugContext(ctx, "reading published", "topic", p.opts.Topic, "payload", string(payload))
	return nil
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

func wait(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case <-token.Done():
		return token.Error()
	case <-timer:
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
