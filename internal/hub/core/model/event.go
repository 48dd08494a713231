package model

import "time"

// EventVehicleUpdate is the single event type fanned out to subscribers.
const EventVehicleUpdate = "vehicle-update"

// VehicleUpdate carries the full post-reconciliation snapshot of a vehicle.
// Subscribers receive whole snapshots, not field-level diffs, so a missed
// event is self-correcting on the next one.
type VehicleUpdate struct {
	Event     string    `json:"event"`
	Vehicle   *Vehicle  `json:"vehicle"`
	Timestamp time.Time `json:"timestamp"`
}

// NewVehicleUpdate wraps a snapshot in the broadcast envelope.
func NewVehicleUpdate(v *Vehicle, at time.Time) *VehicleUpdate {
	return &VehicleUpdate{
		Event:     EventVehicleUpdate,
		Vehicle:   v,
		Timestamp: at,
	}
}
