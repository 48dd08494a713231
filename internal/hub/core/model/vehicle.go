package model

import "time"

// EngineStatus is the engine state of a vehicle. BLOCKED is an
// operator-issued override and is never set from telemetry.
type EngineStatus string

const (
	EngineOn      EngineStatus = "ON"
	EngineOff     EngineStatus = "OFF"
	EngineBlocked EngineStatus = "BLOCKED"
)

// Valid reports whether s is one of the three recognized engine states.
func (s EngineStatus) Valid() bool {
	switch s {
	case EngineOn, EngineOff, EngineBlocked:
		return true
	}
	return false
}

// MovementStatus is derived from engine status and speed during
// reconciliation. IDLE and MAINTENANCE are administrative states set outside
// the mutation path and survive only until the next accepted mutation.
type MovementStatus string

const (
	MovementMoving      MovementStatus = "MOVING"
	MovementStopped     MovementStatus = "STOPPED"
	MovementIdle        MovementStatus = "IDLE"
	MovementMaintenance MovementStatus = "MAINTENANCE"
)

// Position is a geographic coordinate in floating point degrees.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DefaultPosition is the fallback location a vehicle reports from until its
// first ping arrives.
var DefaultPosition = Position{Latitude: 19.432608, Longitude: -99.133209}

// Vehicle is the authoritative state record of one fleet asset. It is mutated
// exclusively through reconciliation; the quality gauges carry
// last-known-value semantics and stay nil until first reported.
type Vehicle struct {
	// ID is the stable internal identifier, assigned at registration.
	ID string `json:"id"`

	// HardwareID is the external identifier of the paired tracking device.
	// Empty means not yet paired.
	HardwareID string `json:"hardwareId,omitempty"`

	Position Position `json:"position"`
	Speed    float64  `json:"speed"`

	FuelLevel      *float64 `json:"fuelLevel,omitempty"`
	Satellites     *int     `json:"satellites,omitempty"`
	SignalStrength *int     `json:"signalStrength,omitempty"`
	BatteryLevel   *float64 `json:"batteryLevel,omitempty"`

	EngineStatus   EngineStatus   `json:"engineStatus"`
	MovementStatus MovementStatus `json:"movementStatus"`

	// Version is the optimistic concurrency token, incremented by the store
	// on every successful update.
	Version int64 `json:"version"`

	LastUpdated time.Time `json:"lastUpdated"`
}

// New returns a Vehicle in its registration default state.
func New(id string) *Vehicle {
	return &Vehicle{
		ID:             id,
		Position:       DefaultPosition,
		EngineStatus:   EngineOff,
		MovementStatus: MovementStopped,
	}
}

// Clone returns a deep copy. The gauge pointers are duplicated so the copy
// can be mutated without aliasing the original.
func (v *Vehicle) Clone() *Vehicle {
	c := *v
	c.FuelLevel = clonePtr(v.FuelLevel)
	c.Satellites = clonePtr(v.Satellites)
	c.SignalStrength = clonePtr(v.SignalStrength)
	c.BatteryLevel = clonePtr(v.BatteryLevel)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
