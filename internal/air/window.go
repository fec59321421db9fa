package air

import "time"

// Measurement is the result of one closed sample window.
type Measurement struct {
	Start        time.Time
	Length       time.Duration
	LowOccupancy time.Duration
	Pulses       int
	OutOfBounds  int

	// Ratio is the low occupancy in percent of the window.
	Ratio float64
	Pcs   float64
	Ugm3  float64
	AQI   int
}

// Window accumulates low pulse durations over a fixed sampling period.
// It is owned by a single goroutine.
type Window struct {
	Length time.Duration

	// PulseMin and PulseMax bound plausible pulses. Pulses outside the bounds
	// are still accumulated but counted in OutOfBounds. Zero disables a bound.
	PulseMin time.Duration
	PulseMax time.Duration

	start       time.Time
	occupancy   time.Duration
	pulses      int
	outOfBounds int
}

// Reset starts a new window at now.
func (w *Window) Reset(now time.Time) {
	w.start = now
	w.occupancy = 0
	w.pulses = 0
	w.outOfBounds = 0
}

// Start returns when the current window began.
func (w *Window) Start() time.Time { return w.start }

// End returns when the current window is due.
func (w *Window) End() time.Time { return w.start.Add(w.Length) }

// Add records one low pulse and reports whether it was within bounds.
func (w *Window) Add(d time.Duration) bool {
	w.occupancy += d
	w.pulses++
	if (w.PulseMin > 0 && d < w.PulseMin) || (w.PulseMax > 0 && d > w.PulseMax) {
		w.outOfBounds++
		return false
	}
	return true
}

// Due reports whether the window has run its full length at now.
func (w *Window) Due(now time.Time) bool {
	return now.Sub(w.start) >= w.Length
}

// Close converts the accumulated occupancy into a Measurement and starts the
// next window at now.
func (w *Window) Close(now time.Time) Measurement {
	m := Measurement{
		Start:        w.start,
		Length:       w.Length,
		LowOccupancy: w.occupancy,
		Pulses:       w.pulses,
		OutOfBounds:  w.outOfBounds,
	}
	if w.Length > 0 {
		// occupancy in us over window in ms * 10 gives percent.
		m.Ratio = float64(w.occupancy.Microseconds()) / (float64(w.Length.Milliseconds()) * 10.0)
	}
	m.Pcs = RatioToPcs(m.Ratio)
	m.Ugm3 = PcsToUgm3(m.Pcs)
	m.AQI = Ugm3ToAQI(m.Ugm3)

	w.Reset(now)
	return m
}
