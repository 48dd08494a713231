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

// IngestTelemetry is the device-facing intake. It resolves the reporting
// device to a vehicle record, reconciles the sample into it, persists the
// result and broadcasts the new snapshot. The returned record is the
// post-reconciliation state.
//
// Failures are local to this one sample: nothing else is touched and no
// event is published unless the persist succeeded.
func (s *Service) IngestTelemetry(ctx context.Context, sample *model.TelemetrySample) (*model.Vehicle, error) {
	start := time.Now()

	if sample == nil || sample.HardwareID == "" {
		metrics.TelemetryRejected.WithLabelValues("validation").Inc()
		return nil, fmt.Errorf("%w: hardwareId is required", core.ErrValidation)
	}
	if sample.EngineStatus != nil && *sample.EngineStatus == model.EngineBlocked {
		metrics.TelemetryRejected.WithLabelValues("validation").Inc()
		return nil, fmt.Errorf("%w: engineStatus BLOCKED cannot be reported by a device", core.ErrValidation)
	}
	if sample.EngineStatus != nil && !sample.EngineStatus.Valid() {
		metrics.TelemetryRejected.WithLabelValues("validation").Inc()
		return nil, fmt.Errorf("%w: unknown engineStatus %q", core.ErrValidation, *sample.EngineStatus)
	}
	if sample.Speed != nil && *sample.Speed < 0 {
		metrics.TelemetryRejected.WithLabelValues("validation").Inc()
		return nil, fmt.Errorf("%w: speed must be non-negative", core.ErrValidation)
	}

	// Resolve outside the lock; the record is re-read under it.
	located, err := s.vehicles.GetByHardwareID(ctx, sample.HardwareID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			metrics.TelemetryRejected.WithLabelValues("not_found").Inc()
			return nil, fmt.Errorf("%w: no vehicle paired with hardware id %q", core.ErrNotFound, sample.HardwareID)
		}
		metrics.TelemetryRejected.WithLabelValues("store").Inc()
		return nil, fmt.Errorf("%w: resolving hardware id %q: %v", core.ErrPersistence, sample.HardwareID, err)
	}

	s.locks.Lock(located.ID)
	defer s.locks.Unlock(located.ID)

	current, err := s.vehicles.Get(ctx, located.ID)
	if err != nil {
		metrics.TelemetryRejected.WithLabelValues("store").Inc()
		return nil, fmt.Errorf("%w: reloading vehicle %s: %v", core.ErrPersistence, located.ID, err)
	}

	next := reconcile.ApplyTelemetry(current, sample, s.now())

	if err := s.persistAndPublish(ctx, next); err != nil {
		metrics.TelemetryRejected.WithLabelValues("store").Inc()
		return nil, err
	}

	metrics.TelemetryAccepted.Inc()
	metrics.ReconcileLatency.Observe(time.Since(start).Seconds())
	return next, nil
}
