package status

// Register map constants for the sensor status block and the reading block.
// These values define the published layout and MUST NOT be configurable.

// ---- STATUS BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of registers per sensor status block.
const SlotsPerDevice = 20

// ---- STATUS SLOT INDICES ----

// SlotHealthCode holds the sensor health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the last error code (see Code* constants).
const SlotLastErrorCode = 1

// SlotSecondsInError holds the duration (in seconds) the sensor has been in error.
const SlotSecondsInError = 2

// SlotRestarts holds how often the pulse source was re-created after a fault.
const SlotRestarts = 3

// Slots 4–10 are reserved for future use.
const SlotReservedStart = 4
const SlotReservedEnd = 10

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the device name.
// Device name is always placed at the END of the status block.
const SlotDeviceNameStart = 11

// SlotDeviceNameSlots is the number of slots reserved for the device name.
const SlotDeviceNameSlots = 8

// SlotDeviceNameEnd is the last slot used for the device name (inclusive).
const SlotDeviceNameEnd = SlotDeviceNameStart + SlotDeviceNameSlots - 1

// DeviceNameMaxChars is the maximum number of ASCII characters stored for device name.
const DeviceNameMaxChars = 16

// ---- HEALTH CODES ----

const (
	HealthUnknown  uint16 = 0
	HealthOK       uint16 = 1
	HealthError    uint16 = 2
	HealthStale    uint16 = 3
	HealthDisabled uint16 = 4
)

// ---- ERROR CODES ----

const (
	CodeNone                uint16 = 0
	CodeGeneric             uint16 = 1
	CodeNotificationFailure uint16 = 2
	CodeResourceUnavailable uint16 = 3
	CodeResourceExhausted   uint16 = 4
	CodeSinkFailure         uint16 = 5
)

// ---- READING BLOCK ----

// ReadingRegisters is the size of one published reading block.
const ReadingRegisters = 12

// Reading block register offsets. 32-bit values are big-endian word order
// (high word first).
const (
	RegAQI          = 0
	RegUgm3x100     = 1  // uint32, 2 regs
	RegPcsx100      = 3  // uint32, 2 regs
	RegRatiox1000   = 5  // uint16, saturating
	RegLowOccupancy = 6  // uint32 microseconds, 2 regs
	RegPulses       = 8  // uint16, saturating
	RegOutOfBounds  = 9  // uint16, saturating
	RegTimestamp    = 10 // uint32 unix seconds, 2 regs
)
