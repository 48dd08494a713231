package model

// EngineCommand is an operator instruction that sets a vehicle's engine
// status directly, taking precedence over whatever the device reports.
type EngineCommand struct {
	// VehicleID is the target vehicle's internal identifier.
	VehicleID string

	// Status is the desired engine status. Must be one of ON, OFF, BLOCKED.
	Status EngineStatus
}
