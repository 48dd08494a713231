package core

import (
	"context"

	"github.com/fleetgrid-io/fleetgrid/internal/hub/core/model"
)

// VehicleRepository is the port for the vehicle record store. Implementations
// must resolve vehicles both by internal id and by hardware id, and must
// reject an Update whose Version no longer matches the stored record.
type VehicleRepository interface {
	// Get retrieves a vehicle by its internal id.
	Get(ctx context.Context, id string) (*model.Vehicle, error)

	// GetByHardwareID retrieves the vehicle paired with the given device.
	GetByHardwareID(ctx context.Context, hardwareID string) (*model.Vehicle, error)

	// Create registers a new vehicle record.
	Create(ctx context.Context, vehicle *model.Vehicle) error

	// Update persists vehicle if its Version matches the stored record,
	// incrementing the version on success. A mismatch returns ErrConflict.
	Update(ctx context.Context, vehicle *model.Vehicle) error

	// List returns a snapshot of every vehicle record.
	List(ctx context.Context) ([]*model.Vehicle, error)

	// Healthy reports whether the store is reachable.
	Healthy(ctx context.Context) error
}
