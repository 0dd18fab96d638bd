package wire

import "time"

// Delayer provides the microsecond waits around clock edges.
type Delayer interface {
	Delay(d time.Duration)
}

type DelayFunc func(d time.Duration)

func (f DelayFunc) Delay(d time.Duration) {
	f(d)
}

// Spin busy-waits for the requested duration. The scheduler cannot sleep for
// a couple of microseconds, so the hold times are spun out on the caller.
var Spin Delayer = DelayFunc(func(d time.Duration) {
	start := time.Now()
	for time.Since(start) < d {
	}
})

// Timing holds the waits taken before and after every clock edge.
type Timing struct {
	Setup time.Duration
	Hold  time.Duration
}

var DefaultTiming = Timing{
	Setup: 2 * time.Microsecond,
	Hold:  5 * time.Microsecond,
}
