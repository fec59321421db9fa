//go:build !linux

package gpio

import "fmt"

// Sysfs GPIO only exists on linux. Elsewhere the package builds so callers
// compile, but every pin is unavailable.

func newEdgeNotifier(uintptr) (Notifier, error) {
	return nil, fmt.Errorf("%w: edge notification requires linux", ErrResourceUnavailable)
}

func attrWritable(string) bool { return false }

func classifyOpenErr(err error) error {
	return fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
}
