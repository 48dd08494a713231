// Package reconcile computes the next authoritative vehicle state from the
// current record and exactly one mutation. The functions are pure: they never
// touch storage or the fanout layer, and the input record is not modified.
//
// The single correctness property of the subsystem is enforced here: a
// vehicle whose engine status is BLOCKED always carries speed 0 and movement
// status STOPPED, no matter what the latest telemetry sample claimed.
package reconcile

import (
	"time"

	"github.com/fleetgrid-io/fleetgrid/internal/hub/core/model"
)

// ApplyTelemetry merges one telemetry sample into current. Absent sample
// fields keep their stored values. A reported engine status is adopted only
// where the transition table allows it; while the vehicle is BLOCKED the
// report is discarded.
func ApplyTelemetry(current *model.Vehicle, sample *model.TelemetrySample, now time.Time) *model.Vehicle {
	next := current.Clone()

	if sample.Position != nil {
		next.Position = *sample.Position
	}
	if sample.FuelLevel != nil {
		v := *sample.FuelLevel
		next.FuelLevel = &v
	}
	if sample.Satellites != nil {
		v := *sample.Satellites
		next.Satellites = &v
	}
	if sample.SignalStrength != nil {
		v := *sample.SignalStrength
		next.SignalStrength = &v
	}
	if sample.BatteryLevel != nil {
		v := *sample.BatteryLevel
		next.BatteryLevel = &v
	}

	if sample.EngineStatus != nil {
		next.EngineStatus = fire(current.EngineStatus, reportEvent(*sample.EngineStatus))
	}

	if next.EngineStatus == model.EngineBlocked {
		next.Speed = 0
	} else if sample.Speed != nil {
		next.Speed = *sample.Speed
	}

	next.MovementStatus = deriveMovement(next.EngineStatus, next.Speed)
	next.LastUpdated = now

	return next
}

// ApplyCommand applies an operator engine command to current. The commanded
// status wins unconditionally, including over a standing BLOCKED override.
func ApplyCommand(current *model.Vehicle, cmd *model.EngineCommand, now time.Time) *model.Vehicle {
	next := current.Clone()

	next.EngineStatus = fire(current.EngineStatus, setEvent(cmd.Status))

	if next.EngineStatus == model.EngineBlocked {
		next.Speed = 0
	}

	next.MovementStatus = deriveMovement(next.EngineStatus, next.Speed)
	next.LastUpdated = now

	return next
}

// deriveMovement maps post-merge engine status and speed to a movement
// status. The mutation path only ever produces MOVING or STOPPED; the
// administrative states are assigned outside it.
func deriveMovement(engine model.EngineStatus, speed float64) model.MovementStatus {
	if engine == model.EngineBlocked {
		return model.MovementStopped
	}
	if speed > 0 {
		return model.MovementMoving
	}
	return model.MovementStopped
}
