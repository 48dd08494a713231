package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fleetgrid-io/fleetgrid/internal/hub/bus"
	"github.com/fleetgrid-io/fleetgrid/internal/hub/core"
	"github.com/fleetgrid-io/fleetgrid/internal/hub/core/model"
	"github.com/fleetgrid-io/fleetgrid/internal/hub/store"
)

func f64(v float64) *float64 { return &v }
func es(v model.EngineStatus) *model.EngineStatus {
	return &v
}

// recorder collects every update published to the bus.
type recorder struct {
	mu      sync.Mutex
	updates []*model.VehicleUpdate
}

func (r *recorder) Publish(ctx context.Context, u *model.VehicleUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func (r *recorder) last() *model.VehicleUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return nil
	}
	return r.updates[len(r.updates)-1]
}

func newTestService(t *testing.T) (*Service, *store.Memory, *recorder) {
	t.Helper()

	repo := store.NewMemory()
	rec := &recorder{}
	svc := New(repo, rec)
	return svc, repo, rec
}

func register(t *testing.T, svc *Service, id, hw string) {
	t.Helper()
	if _, err := svc.RegisterVehicle(context.Background(), id, hw); err != nil {
		t.Fatalf("RegisterVehicle(%s): %v", id, err)
	}
}

func TestIngestTelemetryHappyPath(t *testing.T) {
	ctx := context.Background()
	svc, _, rec := newTestService(t)
	register(t, svc, "v1", "TRK-001")

	got, err := svc.IngestTelemetry(ctx, &model.TelemetrySample{
		HardwareID:   "TRK-001",
		Position:     &model.Position{Latitude: 48.85, Longitude: 2.35},
		Speed:        f64(45),
		EngineStatus: es(model.EngineOn),
	})
	if err != nil {
		t.Fatalf("IngestTelemetry: %v", err)
	}

	if got.EngineStatus != model.EngineOn || got.Speed != 45 || got.MovementStatus != model.MovementMoving {
		t.Errorf("state = %v/%v/%v", got.EngineStatus, got.Speed, got.MovementStatus)
	}

	// Exactly one broadcast, carrying the returned snapshot.
	if rec.count() != 1 {
		t.Fatalf("published %d events, want 1", rec.count())
	}
	u := rec.last()
	if u.Event != model.EventVehicleUpdate || u.Vehicle.ID != "v1" || u.Vehicle.Speed != 45 {
		t.Errorf("broadcast = %+v", u)
	}
}

func TestIngestTelemetryValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, rec := newTestService(t)
	register(t, svc, "v1", "TRK-001")

	tests := []struct {
		name   string
		sample *model.TelemetrySample
	}{
		{"nil sample", nil},
		{"missing hardware id", &model.TelemetrySample{}},
		{"device reports BLOCKED", &model.TelemetrySample{HardwareID: "TRK-001", EngineStatus: es(model.EngineBlocked)}},
		{"unknown engine status", &model.TelemetrySample{HardwareID: "TRK-001", EngineStatus: es(model.EngineStatus("REVVING"))}},
		{"negative speed", &model.TelemetrySample{HardwareID: "TRK-001", Speed: f64(-5)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.IngestTelemetry(ctx, tt.sample); !errors.Is(err, core.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}

	if rec.count() != 0 {
		t.Errorf("rejected samples published %d events", rec.count())
	}
}

// Scenario E: an unknown hardware id is rejected, publishes nothing, and
// leaves every other vehicle untouched.
func TestIngestTelemetryUnknownDevice(t *testing.T) {
	ctx := context.Background()
	svc, repo, rec := newTestService(t)
	register(t, svc, "v1", "TRK-001")

	_, err := svc.IngestTelemetry(ctx, &model.TelemetrySample{HardwareID: "GHOST-1", Speed: f64(99)})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if rec.count() != 0 {
		t.Errorf("published %d events for a rejected sample", rec.count())
	}
	v, _ := repo.Get(ctx, "v1")
	if v.Speed != 0 || v.Version != 0 {
		t.Errorf("unrelated vehicle mutated: %+v", v)
	}
}

func TestSetEngineStatusValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	register(t, svc, "v1", "TRK-001")

	if _, err := svc.SetEngineStatus(ctx, &model.EngineCommand{VehicleID: "", Status: model.EngineOn}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("missing id: %v", err)
	}
	if _, err := svc.SetEngineStatus(ctx, &model.EngineCommand{VehicleID: "v1", Status: "LAUNCH"}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("bad status: %v", err)
	}
	if _, err := svc.SetEngineStatus(ctx, &model.EngineCommand{VehicleID: "nope", Status: model.EngineOn}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown vehicle: %v", err)
	}
}

// Scenarios A through D through the full service path.
func TestBlockOverrideLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _, rec := newTestService(t)
	register(t, svc, "v1", "TRK-001")

	// A: ping brings the vehicle up to speed.
	v, err := svc.IngestTelemetry(ctx, &model.TelemetrySample{HardwareID: "TRK-001", Speed: f64(45), EngineStatus: es(model.EngineOn)})
	if err != nil {
		t.Fatal(err)
	}
	if v.EngineStatus != model.EngineOn || v.Speed != 45 || v.MovementStatus != model.MovementMoving {
		t.Fatalf("A: %v/%v/%v", v.EngineStatus, v.Speed, v.MovementStatus)
	}

	// B: operator blocks the engine.
	v, err = svc.SetEngineStatus(ctx, &model.EngineCommand{VehicleID: "v1", Status: model.EngineBlocked})
	if err != nil {
		t.Fatal(err)
	}
	if v.EngineStatus != model.EngineBlocked || v.Speed != 0 || v.MovementStatus != model.MovementStopped {
		t.Fatalf("B: %v/%v/%v", v.EngineStatus, v.Speed, v.MovementStatus)
	}

	// C: in-flight telemetry claiming motion is discarded.
	v, err = svc.IngestTelemetry(ctx, &model.TelemetrySample{HardwareID: "TRK-001", Speed: f64(70), EngineStatus: es(model.EngineOn)})
	if err != nil {
		t.Fatal(err)
	}
	if v.EngineStatus != model.EngineBlocked || v.Speed != 0 || v.MovementStatus != model.MovementStopped {
		t.Fatalf("C: %v/%v/%v", v.EngineStatus, v.Speed, v.MovementStatus)
	}

	// D: unblock, then telemetry takes effect again.
	if _, err = svc.SetEngineStatus(ctx, &model.EngineCommand{VehicleID: "v1", Status: model.EngineOn}); err != nil {
		t.Fatal(err)
	}
	v, err = svc.IngestTelemetry(ctx, &model.TelemetrySample{HardwareID: "TRK-001", Speed: f64(70)})
	if err != nil {
		t.Fatal(err)
	}
	if v.Speed != 70 || v.MovementStatus != model.MovementMoving {
		t.Fatalf("D: %v/%v", v.Speed, v.MovementStatus)
	}

	// One broadcast per accepted mutation, each carrying the full snapshot.
	if rec.count() != 5 {
		t.Errorf("published %d events, want 5", rec.count())
	}
}

func TestCommandIdempotence(t *testing.T) {
	ctx := context.Background()
	svc, _, rec := newTestService(t)
	register(t, svc, "v1", "TRK-001")

	first, err := svc.SetEngineStatus(ctx, &model.EngineCommand{VehicleID: "v1", Status: model.EngineBlocked})
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.SetEngineStatus(ctx, &model.EngineCommand{VehicleID: "v1", Status: model.EngineBlocked})
	if err != nil {
		t.Fatal(err)
	}

	if first.EngineStatus != second.EngineStatus || first.Speed != second.Speed || first.MovementStatus != second.MovementStatus {
		t.Errorf("repeat command diverged: %+v vs %+v", first, second)
	}
	// Two broadcasts of an unchanged snapshot, no other side effects.
	if rec.count() != 2 {
		t.Errorf("published %d events, want 2", rec.count())
	}
}

// A ping and a block command racing on the same vehicle must serialize: once
// both are applied, the override holds no matter which went first.
func TestConcurrentPingAndBlock(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)
	register(t, svc, "v1", "TRK-001")

	if _, err := svc.IngestTelemetry(ctx, &model.TelemetrySample{HardwareID: "TRK-001", Speed: f64(60), EngineStatus: es(model.EngineOn)}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = svc.IngestTelemetry(ctx, &model.TelemetrySample{HardwareID: "TRK-001", Speed: f64(80), EngineStatus: es(model.EngineOn)})
		}()
		go func() {
			defer wg.Done()
			_, _ = svc.SetEngineStatus(ctx, &model.EngineCommand{VehicleID: "v1", Status: model.EngineBlocked})
		}()
		wg.Wait()

		v, err := repo.Get(ctx, "v1")
		if err != nil {
			t.Fatal(err)
		}
		if v.EngineStatus == model.EngineBlocked && (v.Speed != 0 || v.MovementStatus != model.MovementStopped) {
			t.Fatalf("iteration %d: invariant violated: %+v", i, v)
		}

		// Reset for the next round.
		if _, err := svc.SetEngineStatus(ctx, &model.EngineCommand{VehicleID: "v1", Status: model.EngineOn}); err != nil {
			t.Fatal(err)
		}
	}
}

// Mutations to different vehicles must not serialize against each other.
func TestDifferentVehiclesProceedInParallel(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	register(t, svc, "v1", "TRK-001")
	register(t, svc, "v2", "TRK-002")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := svc.IngestTelemetry(ctx, &model.TelemetrySample{HardwareID: "TRK-001", Speed: f64(10)}); err != nil {
				t.Error(err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := svc.IngestTelemetry(ctx, &model.TelemetrySample{HardwareID: "TRK-002", Speed: f64(20)}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
}

// failingRepo turns every Update into a persistence failure.
type failingRepo struct {
	core.VehicleRepository
}

func (f *failingRepo) Update(ctx context.Context, v *model.Vehicle) error {
	return fmt.Errorf("disk on fire")
}

func TestNoPublishWithoutPersist(t *testing.T) {
	ctx := context.Background()

	repo := store.NewMemory()
	rec := &recorder{}
	svc := New(&failingRepo{repo}, rec)

	if err := repo.Create(ctx, func() *model.Vehicle {
		v := model.New("v1")
		v.HardwareID = "TRK-001"
		return v
	}()); err != nil {
		t.Fatal(err)
	}

	_, err := svc.IngestTelemetry(ctx, &model.TelemetrySample{HardwareID: "TRK-001", Speed: f64(45)})
	if !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	if rec.count() != 0 {
		t.Errorf("published %d events for a failed persist", rec.count())
	}
}

// failingBus rejects every publish; the mutation must still succeed.
type failingBus struct{}

func (failingBus) Publish(ctx context.Context, u *model.VehicleUpdate) error {
	return fmt.Errorf("bus unavailable")
}

func TestBroadcastFailureDoesNotFailRequest(t *testing.T) {
	ctx := context.Background()

	repo := store.NewMemory()
	svc := New(repo, failingBus{})
	register(t, svc, "v1", "TRK-001")

	v, err := svc.IngestTelemetry(ctx, &model.TelemetrySample{HardwareID: "TRK-001", Speed: f64(45)})
	if err != nil {
		t.Fatalf("IngestTelemetry: %v", err)
	}
	if v.Speed != 45 {
		t.Errorf("speed = %v", v.Speed)
	}

	// The persisted state stays authoritative.
	stored, _ := repo.Get(ctx, "v1")
	if stored.Speed != 45 {
		t.Errorf("stored speed = %v", stored.Speed)
	}
}

// The service works end to end against the real fanout bus.
func TestServiceWithRealBus(t *testing.T) {
	ctx := context.Background()

	repo := store.NewMemory()
	fanout := bus.New()
	defer fanout.Close()
	svc := New(repo, fanout)
	register(t, svc, "v1", "TRK-001")

	sess := fanout.Subscribe()
	defer fanout.Unsubscribe(sess)

	if _, err := svc.IngestTelemetry(ctx, &model.TelemetrySample{HardwareID: "TRK-001", Speed: f64(45)}); err != nil {
		t.Fatal(err)
	}

	select {
	case u := <-sess.Updates():
		if u.Vehicle.ID != "v1" || u.Vehicle.Speed != 45 {
			t.Errorf("update = %+v", u.Vehicle)
		}
	case <-time.After(time.Second):
		t.Fatal("no update received on the bus")
	}
}
