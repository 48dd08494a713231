package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fleetgrid-io/fleetgrid/internal/hub/core"
	"github.com/fleetgrid-io/fleetgrid/internal/hub/core/model"
	"github.com/fleetgrid-io/fleetgrid/internal/hub/core/reconcile"
	"github.com/fleetgrid-io/fleetgrid/internal/pkg/metrics"
)

// SetEngineStatus is the operator-facing intake. The commanded status takes
// precedence over anything the device reports until a later command changes
// it again. Repeating a command is harmless: the resulting state is the same
// both times.
func (s *Service) SetEngineStatus(ctx context.Context, cmd *model.EngineCommand) (*model.Vehicle, error) {
	start := time.Now()

	if cmd == nil || cmd.VehicleID == "" {
		metrics.CommandsProcessed.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: vehicle id is required", core.ErrValidation)
	}
	if !cmd.Status.Valid() {
		metrics.CommandsProcessed.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: unknown engineStatus %q", core.ErrValidation, cmd.Status)
	}

	s.locks.Lock(cmd.VehicleID)
	defer s.locks.Unlock(cmd.VehicleID)

	current, err := s.vehicles.Get(ctx, cmd.VehicleID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			metrics.CommandsProcessed.WithLabelValues("rejected").Inc()
			return nil, fmt.Errorf("%w: vehicle %q", core.ErrNotFound, cmd.VehicleID)
		}
		metrics.CommandsProcessed.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: loading vehicle %s: %v", core.ErrPersistence, cmd.VehicleID, err)
	}

	next := reconcile.ApplyCommand(current, cmd, s.now())

	if err := s.persistAndPublish(ctx, next); err != nil {
		metrics.CommandsProcessed.WithLabelValues("failed").Inc()
		return nil, err
	}

	metrics.CommandsProcessed.WithLabelValues("accepted").Inc()
	metrics.ReconcileLatency.Observe(time.Since(start).Seconds())
	return next, nil
}
