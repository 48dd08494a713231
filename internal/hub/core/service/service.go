// Package service implements the hub's use cases: telemetry ingest, operator
// engine commands, and snapshot reads. Both mutation paths share one
// read-reconcile-persist-publish sequence serialized per vehicle.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetgrid-io/fleetgrid/internal/hub/core"
	"github.com/fleetgrid-io/fleetgrid/internal/hub/core/model"
	"github.com/fleetgrid-io/fleetgrid/internal/pkg/keymutex"
	"github.com/fleetgrid-io/fleetgrid/internal/pkg/metrics"
	"github.com/fleetgrid-io/fleetgrid/pkg/log"
)

// Service implements the core business logic of the hub. It orchestrates the
// reconciliation engine between the record store and the fanout layer.
type Service struct {
	vehicles core.VehicleRepository
	fanout   core.Broadcaster

	// locks serializes the read-modify-write sequence per vehicle id.
	// Mutations to different vehicles proceed fully in parallel.
	locks *keymutex.KeyMutex

	// now is the acceptance clock, replaceable in tests.
	now func() time.Time
}

// New creates a Service. Dependency injection happens here.
func New(vehicles core.VehicleRepository, fanout core.Broadcaster) *Service {
	return &Service{
		vehicles: vehicles,
		fanout:   fanout,
		locks:    keymutex.New(),
		now:      time.Now,
	}
}

// GetVehicle returns the current snapshot of one vehicle.
func (s *Service) GetVehicle(ctx context.Context, id string) (*model.Vehicle, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: vehicle id is required", core.ErrValidation)
	}
	return s.vehicles.Get(ctx, id)
}

// ListVehicles returns a snapshot of the whole fleet. Newly joined
// subscribers use this to catch up before following the event stream.
func (s *Service) ListVehicles(ctx context.Context) ([]*model.Vehicle, error) {
	return s.vehicles.List(ctx)
}

// RegisterVehicle creates a new vehicle record in its default state. The
// registration flow sits outside the mutation path and never goes through
// reconciliation.
func (s *Service) RegisterVehicle(ctx context.Context, id, hardwareID string) (*model.Vehicle, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: vehicle id is required", core.ErrValidation)
	}

	v := model.New(id)
	v.HardwareID = hardwareID

	if err := s.vehicles.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// persistAndPublish writes the reconciled record and, only on success, fans
// the snapshot out. A broadcast failure is logged and absorbed: the persisted
// state is already authoritative and self-corrects on the next update or a
// full-snapshot refresh.
func (s *Service) persistAndPublish(ctx context.Context, next *model.Vehicle) error {
	if err := s.vehicles.Update(ctx, next); err != nil {
		return fmt.Errorf("%w: vehicle %s: %v", core.ErrPersistence, next.ID, err)
	}

	update := model.NewVehicleUpdate(next, next.LastUpdated)
	if err := s.fanout.Publish(ctx, update); err != nil {
		metrics.BroadcastErrors.Inc()
		log.Error(fmt.Errorf("%w: %v", core.ErrBroadcast, err), "Failed to broadcast vehicle update", "vehicle", next.ID)
	}

	return nil
}
