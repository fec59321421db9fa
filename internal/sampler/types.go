package sampler

import (
	"time"

	"github.com/tamzrod/dust-sensor/internal/air"
)

// Reading is emitted once per closed sample window, or once per failure.
type Reading struct {
	SensorID string
	At       time.Time

	// Measurement is valid only when Err is nil.
	Measurement air.Measurement

	// Restarts counts how often the pulse source was re-created.
	Restarts int

	Err error // non-nil means the reading carries a failure, not data
}
