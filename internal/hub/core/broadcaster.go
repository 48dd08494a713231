package core

import (
	"context"

	"github.com/fleetgrid-io/fleetgrid/internal/hub/core/model"
)

// Broadcaster is the port for the fanout layer. Delivery is best-effort: a
// slow or disconnected session simply misses the update, and Publish must
// never block on an individual subscriber.
type Broadcaster interface {
	// Publish delivers the update to every currently registered session.
	Publish(ctx context.Context, update *model.VehicleUpdate) error
}
