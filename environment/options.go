package environment

import (
	"context"
	"log/slog"
	"time"

	"github.com/mklimuk/sht21/wire"
)

// DefaultPollBudget is the number of data-ready polls before a measurement
// is abandoned.
const DefaultPollBudget = 250

// DefaultPollInterval is the wait between polls when no Waiter is given.
const DefaultPollInterval = time.Millisecond

// Waiter is called once for every poll that found the device busy. It is the
// place to yield to other work; blocking in it delays the next poll.
type Waiter func(ctx context.Context)

// Sleep returns a Waiter sleeping for d or until ctx is done.
func Sleep(d time.Duration) Waiter {
	return func(ctx context.Context) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	}
}

type SHT21Opts struct {
	Checksum   ChecksumMode
	PollBudget int
	Wait       Waiter
	Logger     *slog.Logger
	Bus        []wire.Option
}

type SHT21Opt func(*SHT21Opts)

func WithChecksum(mode ChecksumMode) SHT21Opt {
	return func(o *SHT21Opts) {
		o.Checksum = mode
	}
}

func WithPollBudget(polls int) SHT21Opt {
	return func(o *SHT21Opts) {
		o.PollBudget = polls
	}
}

// WithWait sets the Waiter used by measurements that do not pass their own.
func WithWait(w Waiter) SHT21Opt {
	return func(o *SHT21Opts) {
		o.Wait = w
	}
}

func WithLogger(l *slog.Logger) SHT21Opt {
	return func(o *SHT21Opts) {
		o.Logger = l
	}
}

// WithBusOptions passes options to the underlying wire.Bus.
func WithBusOptions(opts ...wire.Option) SHT21Opt {
	return func(o *SHT21Opts) {
		o.Bus = append(o.Bus, opts...)
	}
}
