// Package gpio provides sht21.Pin implementations on top of the GPIO stacks a
// host may offer: periph drivers, the Linux character device, gobot board
// adaptors and MCP23017 I2C expanders.
package gpio

import (
	"errors"
	"fmt"

	"github.com/mklimuk/sht21"
)

// Handle is an opened port together with the resources held for its lines.
type Handle struct {
	sht21.Port
	closers []func() error
}

func (h *Handle) onClose(f func() error) {
	h.closers = append(h.closers, f)
}

// Close releases the lines in reverse opening order.
func (h *Handle) Close() error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	h.closers = nil
	return errors.Join(errs...)
}

func unavailable(name string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", name, sht21.ErrPinUnavailable)
	}
	return fmt.Errorf("%s: %w: %w", name, sht21.ErrPinUnavailable, err)
}
