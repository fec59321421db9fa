//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

func attrWritable(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}

func classifyOpenErr(err error) error {
	switch {
	case errors.Is(err, unix.EMFILE), errors.Is(err, unix.ENFILE), errors.Is(err, unix.ENOMEM):
		return fmt.Errorf("%w: %w", ErrResourceExhausted, err)
	default:
		return fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
	}
}
