package status

import (
	"math"
	"time"

	"github.com/tamzrod/dust-sensor/internal/air"
)

// EncodeReading packs a closed sample window into a reading block.
func EncodeReading(m air.Measurement, at time.Time) []uint16 {
	regs := make([]uint16, ReadingRegisters)

	regs[RegAQI] = sat16(int64(m.AQI))
	put32(regs, RegUgm3x100, scaled(m.Ugm3, 100))
	put32(regs, RegPcsx100, scaled(m.Pcs, 100))
	regs[RegRatiox1000] = sat16(int64(math.Round(m.Ratio * 1000)))
	put32(regs, RegLowOccupancy, sat32(m.LowOccupancy.Microseconds()))
	regs[RegPulses] = sat16(int64(m.Pulses))
	regs[RegOutOfBounds] = sat16(int64(m.OutOfBounds))
	put32(regs, RegTimestamp, sat32(at.Unix()))

	return regs
}

// Word32 reads a 32-bit value stored high word first.
func Word32(regs []uint16, off int) uint32 {
	return uint32(regs[off])<<16 | uint32(regs[off+1])
}

func put32(regs []uint16, off int, v uint32) {
	regs[off] = uint16(v >> 16)
	regs[off+1] = uint16(v)
}

func scaled(v, factor float64) uint32 {
	return sat32(int64(math.Round(v * factor)))
}

func sat16(v int64) uint16 {
	switch {
	case v < 0:
		return 0
	case v > math.MaxUint16:
		return math.MaxUint16
	default:
		return uint16(v)
	}
}

func sat32(v int64) uint32 {
	switch {
	case v < 0:
		return 0
	case v > math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(v)
	}
}
