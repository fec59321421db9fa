package status

// Encode converts a Snapshot into a full sensor status block, device name
// included. Layout is protocol-locked.
// No IO. No side effects.
func Encode(s Snapshot, deviceName string) []uint16 {
	regs := make([]uint16, SlotsPerDevice)

	regs[SlotHealthCode] = s.Health
	regs[SlotLastErrorCode] = s.LastErrorCode
	regs[SlotSecondsInError] = s.SecondsInError
	regs[SlotRestarts] = s.Restarts

	// Reserved slots stay zero.

	copy(regs[SlotDeviceNameStart:SlotDeviceNameEnd+1], EncodeDeviceName(deviceName))
	return regs
}

// SlotValue returns the register value of a live status slot.
func (s Snapshot) SlotValue(slot int) uint16 {
	switch slot {
	case SlotHealthCode:
		return s.Health
	case SlotLastErrorCode:
		return s.LastErrorCode
	case SlotSecondsInError:
		return s.SecondsInError
	case SlotRestarts:
		return s.Restarts
	default:
		return 0
	}
}

// LiveSlots lists the slots that change at runtime, in write order.
var LiveSlots = []int{SlotHealthCode, SlotLastErrorCode, SlotSecondsInError, SlotRestarts}

// EncodeDeviceName packs up to 16 ASCII characters into 8 registers.
// Each register stores two bytes, high byte first. Non-printable bytes
// become '?'.
func EncodeDeviceName(name string) []uint16 {
	out := make([]uint16, SlotDeviceNameSlots)

	b := []byte(name)
	if len(b) > DeviceNameMaxChars {
		b = b[:DeviceNameMaxChars]
	}
	for i := range b {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < DeviceNameMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}
	return out
}
