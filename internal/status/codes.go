package status

import (
	"errors"

	"github.com/tamzrod/dust-sensor/internal/gpio"
)

// CodeFor maps an error onto a status error code without assuming concrete
// types. Errors that expose a Code() uint16 keep their own code.
func CodeFor(err error) uint16 {
	if err == nil {
		return CodeNone
	}

	type coder interface{ Code() uint16 }
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}

	switch {
	case errors.Is(err, gpio.ErrNotificationFailure):
		return CodeNotificationFailure
	case errors.Is(err, gpio.ErrResourceUnavailable):
		return CodeResourceUnavailable
	case errors.Is(err, gpio.ErrResourceExhausted):
		return CodeResourceExhausted
	default:
		return CodeGeneric
	}
}
