package writer

import "github.com/tamzrod/dust-sensor/internal/sampler"

// TargetEndpoint is one publish target: the reading block lives at Address on
// UnitID behind Endpoint.
type TargetEndpoint struct {
	TargetID uint32
	Endpoint string
	UnitID   uint8
	Address  uint16
}

// StatusTarget is one place the sensor status block is mirrored to.
type StatusTarget struct {
	Endpoint string
	UnitID   uint8
}

// StatusPlan places the sensor status block at BaseSlot*SlotsPerDevice on
// every status target.
type StatusPlan struct {
	BaseSlot   uint16
	DeviceName string
	Targets    []StatusTarget
}

// Plan is the fully-built write plan for one sensor.
type Plan struct {
	SensorID string
	Targets  []TargetEndpoint
	Status   *StatusPlan // nil = status disabled
}

// Writer delivers readings to targets.
type Writer interface {
	Write(r sampler.Reading) error
}

// EndpointClient is the exact contract the writers use.
// IMPORTANT: There must be NO other version of this interface anywhere.
type EndpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}
