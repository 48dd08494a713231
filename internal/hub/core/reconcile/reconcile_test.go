package reconcile

import (
	"testing"
	"time"

	"github.com/fleetgrid-io/fleetgrid/internal/hub/core/model"
)

func f64(v float64) *float64 { return &v }
func i(v int) *int           { return &v }
func es(v model.EngineStatus) *model.EngineStatus {
	return &v
}

var now = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func TestApplyTelemetryMergesReportedFields(t *testing.T) {
	cur := model.New("v1")
	sample := &model.TelemetrySample{
		HardwareID:     "TRK-001",
		Position:       &model.Position{Latitude: 55.75, Longitude: 37.61},
		Speed:          f64(45),
		FuelLevel:      f64(72.5),
		Satellites:     i(11),
		SignalStrength: i(4),
		BatteryLevel:   f64(97),
		EngineStatus:   es(model.EngineOn),
	}

	next := ApplyTelemetry(cur, sample, now)

	if next.Position != *sample.Position {
		t.Errorf("position = %+v", next.Position)
	}
	if next.Speed != 45 {
		t.Errorf("speed = %v", next.Speed)
	}
	if next.FuelLevel == nil || *next.FuelLevel != 72.5 {
		t.Errorf("fuel = %v", next.FuelLevel)
	}
	if next.Satellites == nil || *next.Satellites != 11 {
		t.Errorf("satellites = %v", next.Satellites)
	}
	if next.EngineStatus != model.EngineOn {
		t.Errorf("engine = %v", next.EngineStatus)
	}
	if next.MovementStatus != model.MovementMoving {
		t.Errorf("movement = %v", next.MovementStatus)
	}
	if !next.LastUpdated.Equal(now) {
		t.Errorf("lastUpdated = %v", next.LastUpdated)
	}
}

func TestApplyTelemetryLastKnownValue(t *testing.T) {
	cur := model.New("v1")
	cur.Position = model.Position{Latitude: 1, Longitude: 2}
	cur.Speed = 30
	cur.FuelLevel = f64(50)
	cur.EngineStatus = model.EngineOn
	cur.MovementStatus = model.MovementMoving

	// Identifier-only sample: nothing changes except the clock.
	next := ApplyTelemetry(cur, &model.TelemetrySample{HardwareID: "TRK-001"}, now)

	if next.Position != cur.Position || next.Speed != 30 {
		t.Errorf("position/speed changed: %+v speed=%v", next.Position, next.Speed)
	}
	if next.FuelLevel == nil || *next.FuelLevel != 50 {
		t.Errorf("fuel changed: %v", next.FuelLevel)
	}
	if next.EngineStatus != model.EngineOn || next.MovementStatus != model.MovementMoving {
		t.Errorf("engine/movement changed: %v/%v", next.EngineStatus, next.MovementStatus)
	}
}

func TestApplyTelemetryDoesNotMutateInput(t *testing.T) {
	cur := model.New("v1")
	cur.FuelLevel = f64(50)

	next := ApplyTelemetry(cur, &model.TelemetrySample{HardwareID: "x", FuelLevel: f64(60)}, now)

	if *cur.FuelLevel != 50 {
		t.Errorf("input fuel mutated: %v", *cur.FuelLevel)
	}
	*next.FuelLevel = 99
	if *cur.FuelLevel != 50 {
		t.Error("clone aliases input gauge pointer")
	}
}

func TestBlockedDiscardsTelemetry(t *testing.T) {
	cur := model.New("v1")
	cur.EngineStatus = model.EngineBlocked
	cur.MovementStatus = model.MovementStopped

	sample := &model.TelemetrySample{
		HardwareID:   "TRK-001",
		Speed:        f64(70),
		EngineStatus: es(model.EngineOn),
	}

	next := ApplyTelemetry(cur, sample, now)

	if next.EngineStatus != model.EngineBlocked {
		t.Errorf("engine = %v, want BLOCKED", next.EngineStatus)
	}
	if next.Speed != 0 {
		t.Errorf("speed = %v, want 0", next.Speed)
	}
	if next.MovementStatus != model.MovementStopped {
		t.Errorf("movement = %v, want STOPPED", next.MovementStatus)
	}
}

func TestBlockedStillAcceptsGauges(t *testing.T) {
	cur := model.New("v1")
	cur.EngineStatus = model.EngineBlocked

	next := ApplyTelemetry(cur, &model.TelemetrySample{
		HardwareID: "TRK-001",
		Position:   &model.Position{Latitude: 9, Longitude: 9},
		FuelLevel:  f64(12),
	}, now)

	// The override pins engine/speed/movement, not the measurement gauges.
	if next.Position.Latitude != 9 || next.FuelLevel == nil || *next.FuelLevel != 12 {
		t.Errorf("gauges not merged under override: %+v fuel=%v", next.Position, next.FuelLevel)
	}
	if next.EngineStatus != model.EngineBlocked || next.Speed != 0 {
		t.Errorf("override not held: %v speed=%v", next.EngineStatus, next.Speed)
	}
}

func TestApplyCommand(t *testing.T) {
	tests := []struct {
		name       string
		from       model.EngineStatus
		speed      float64
		cmd        model.EngineStatus
		wantEngine model.EngineStatus
		wantSpeed  float64
		wantMove   model.MovementStatus
	}{
		{"block a moving vehicle", model.EngineOn, 60, model.EngineBlocked, model.EngineBlocked, 0, model.MovementStopped},
		{"block an off vehicle", model.EngineOff, 0, model.EngineBlocked, model.EngineBlocked, 0, model.MovementStopped},
		{"unblock to on", model.EngineBlocked, 0, model.EngineOn, model.EngineOn, 0, model.MovementStopped},
		{"unblock to off", model.EngineBlocked, 0, model.EngineOff, model.EngineOff, 0, model.MovementStopped},
		{"repeat block is a no-op", model.EngineBlocked, 0, model.EngineBlocked, model.EngineBlocked, 0, model.MovementStopped},
		{"turn off while moving keeps speed", model.EngineOn, 40, model.EngineOff, model.EngineOff, 40, model.MovementMoving},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur := model.New("v1")
			cur.EngineStatus = tt.from
			cur.Speed = tt.speed

			next := ApplyCommand(cur, &model.EngineCommand{VehicleID: "v1", Status: tt.cmd}, now)

			if next.EngineStatus != tt.wantEngine || next.Speed != tt.wantSpeed || next.MovementStatus != tt.wantMove {
				t.Errorf("got %v/%v/%v, want %v/%v/%v",
					next.EngineStatus, next.Speed, next.MovementStatus,
					tt.wantEngine, tt.wantSpeed, tt.wantMove)
			}
		})
	}
}

// The override invariant must hold after every reconciliation, for any
// interleaving of samples and commands.
func TestOverrideInvariantAcrossSequences(t *testing.T) {
	cur := model.New("v1")

	type step struct {
		sample *model.TelemetrySample
		cmd    *model.EngineCommand
	}
	steps := []step{
		{sample: &model.TelemetrySample{HardwareID: "h", Speed: f64(45), EngineStatus: es(model.EngineOn)}},
		{cmd: &model.EngineCommand{VehicleID: "v1", Status: model.EngineBlocked}},
		{sample: &model.TelemetrySample{HardwareID: "h", Speed: f64(80), EngineStatus: es(model.EngineOn)}},
		{sample: &model.TelemetrySample{HardwareID: "h", Speed: f64(120)}},
		{cmd: &model.EngineCommand{VehicleID: "v1", Status: model.EngineBlocked}},
		{cmd: &model.EngineCommand{VehicleID: "v1", Status: model.EngineOn}},
		{sample: &model.TelemetrySample{HardwareID: "h", Speed: f64(70)}},
		{cmd: &model.EngineCommand{VehicleID: "v1", Status: model.EngineOff}},
	}

	for idx, s := range steps {
		if s.sample != nil {
			cur = ApplyTelemetry(cur, s.sample, now)
		} else {
			cur = ApplyCommand(cur, s.cmd, now)
		}
		if cur.EngineStatus == model.EngineBlocked {
			if cur.Speed != 0 || cur.MovementStatus != model.MovementStopped {
				t.Fatalf("step %d: invariant violated: speed=%v movement=%v", idx, cur.Speed, cur.MovementStatus)
			}
		}
	}

	if cur.EngineStatus != model.EngineOff || cur.Speed != 70 || cur.MovementStatus != model.MovementMoving {
		t.Errorf("final state %v/%v/%v", cur.EngineStatus, cur.Speed, cur.MovementStatus)
	}
}

// Scenarios A through D from the operator runbook, run as one sequence.
func TestBlockUnblockLifecycle(t *testing.T) {
	cur := model.New("v1")
	cur.HardwareID = "TRK-001"

	// Ping while off: engine on, moving at 45.
	cur = ApplyTelemetry(cur, &model.TelemetrySample{HardwareID: "TRK-001", Speed: f64(45), EngineStatus: es(model.EngineOn)}, now)
	if cur.EngineStatus != model.EngineOn || cur.Speed != 45 || cur.MovementStatus != model.MovementMoving {
		t.Fatalf("after ping: %v/%v/%v", cur.EngineStatus, cur.Speed, cur.MovementStatus)
	}

	// Operator blocks the engine.
	cur = ApplyCommand(cur, &model.EngineCommand{VehicleID: "v1", Status: model.EngineBlocked}, now)
	if cur.EngineStatus != model.EngineBlocked || cur.Speed != 0 || cur.MovementStatus != model.MovementStopped {
		t.Fatalf("after block: %v/%v/%v", cur.EngineStatus, cur.Speed, cur.MovementStatus)
	}

	// In-flight telemetry claiming motion is discarded.
	cur = ApplyTelemetry(cur, &model.TelemetrySample{HardwareID: "TRK-001", Speed: f64(70), EngineStatus: es(model.EngineOn)}, now)
	if cur.EngineStatus != model.EngineBlocked || cur.Speed != 0 || cur.MovementStatus != model.MovementStopped {
		t.Fatalf("after discarded ping: %v/%v/%v", cur.EngineStatus, cur.Speed, cur.MovementStatus)
	}

	// Operator lifts the override; telemetry takes effect again.
	cur = ApplyCommand(cur, &model.EngineCommand{VehicleID: "v1", Status: model.EngineOn}, now)
	if cur.EngineStatus != model.EngineOn {
		t.Fatalf("after unblock: %v", cur.EngineStatus)
	}
	cur = ApplyTelemetry(cur, &model.TelemetrySample{HardwareID: "TRK-001", Speed: f64(70)}, now)
	if cur.Speed != 70 || cur.MovementStatus != model.MovementMoving {
		t.Fatalf("after resumed ping: %v/%v", cur.Speed, cur.MovementStatus)
	}
}

func TestAdministrativeStatesResetOnNextMutation(t *testing.T) {
	cur := model.New("v1")
	cur.MovementStatus = model.MovementMaintenance

	next := ApplyTelemetry(cur, &model.TelemetrySample{HardwareID: "h", Speed: f64(10), EngineStatus: es(model.EngineOn)}, now)
	if next.MovementStatus != model.MovementMoving {
		t.Errorf("movement = %v, want MOVING", next.MovementStatus)
	}

	cur.MovementStatus = model.MovementIdle
	next = ApplyCommand(cur, &model.EngineCommand{VehicleID: "v1", Status: model.EngineOff}, now)
	if next.MovementStatus != model.MovementStopped {
		t.Errorf("movement = %v, want STOPPED", next.MovementStatus)
	}
}

func TestDeriveMovement(t *testing.T) {
	tests := []struct {
		engine model.EngineStatus
		speed  float64
		want   model.MovementStatus
	}{
		{model.EngineBlocked, 0, model.MovementStopped},
		{model.EngineOn, 0.1, model.MovementMoving},
		{model.EngineOn, 0, model.MovementStopped},
		{model.EngineOff, 20, model.MovementMoving},
		{model.EngineOff, 0, model.MovementStopped},
	}
	for _, tt := range tests {
		if got := deriveMovement(tt.engine, tt.speed); got != tt.want {
			t.Errorf("deriveMovement(%v, %v) = %v, want %v", tt.engine, tt.speed, got, tt.want)
		}
	}
}
