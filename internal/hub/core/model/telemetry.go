package model

// TelemetrySample is one reported snapshot of a device's measurements.
// Every field except HardwareID is optional; a nil field means "no change"
// and leaves the stored value untouched.
type TelemetrySample struct {
	// HardwareID identifies the reporting device. Required.
	HardwareID string

	Position       *Position
	Speed          *float64
	FuelLevel      *float64
	Satellites     *int
	SignalStrength *int
	BatteryLevel   *float64

	// EngineStatus may be ON or OFF. Devices cannot report BLOCKED, and a
	// reported value is discarded while the vehicle is under an operator
	// override.
	EngineStatus *EngineStatus
}
