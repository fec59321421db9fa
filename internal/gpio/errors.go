package gpio

import "errors"

var (
	// ErrResourceUnavailable means the pin's value attribute does not exist or
	// cannot be opened (not exported, wrong permissions, edge not configured).
	ErrResourceUnavailable = errors.New("gpio: resource unavailable")

	// ErrNotificationFailure means the edge notification mechanism reported an
	// error. It aborts the current wait only; the handle stays usable.
	ErrNotificationFailure = errors.New("gpio: notification failure")

	// ErrResourceExhausted means a file descriptor or epoll instance could not
	// be allocated.
	ErrResourceExhausted = errors.New("gpio: resource exhausted")

	// ErrReleased is returned by operations on a handle after Release.
	ErrReleased = errors.New("gpio: handle released")

	// ErrInvalidLevel is returned when the value attribute holds something
	// other than 0 or 1.
	ErrInvalidLevel = errors.New("gpio: invalid level")
)
