package gpio

import "fmt"

// Level is the binary state of a pin.
type Level uint8

const (
	Low  Level = 0
	High Level = 1
)

// Complement returns the opposite level.
func (l Level) Complement() Level {
	if l == Low {
		return High
	}
	return Low
}

func (l Level) String() string {
	if l == Low {
		return "low"
	}
	return "high"
}

// parseLevel decodes the content of a sysfs value attribute ("0\n" or "1\n").
// Only the first byte is significant.
func parseLevel(b []byte) (Level, error) {
	if len(b) == 0 {
		return Low, fmt.Errorf("%w: empty read", ErrInvalidLevel)
	}
	switch b[0] {
	case '0':
		return Low, nil
	case '1':
		return High, nil
	default:
		return Low, fmt.Errorf("%w: %q", ErrInvalidLevel, b[0])
	}
}
