// Package hub is the composition root: it assembles the record store, the
// reconciliation service, the fanout bus, and the protocol servers into one
// runnable application.
package hub

import (
	"context"

	"github.com/fleetgrid-io/fleetgrid/internal/hub/bus"
	"github.com/fleetgrid-io/fleetgrid/internal/hub/server"
	"github.com/fleetgrid-io/fleetgrid/pkg/log"
)

// HubServer is the main application struct for the FleetGrid hub.
type HubServer struct {
	serverManager *server.Manager
	fanout        *bus.Bus
	closeStore    func() error
}

// Run starts all servers and blocks until ctx is canceled or a server fails.
func (a *HubServer) Run(ctx context.Context) error {
	log.Info("Starting FleetGrid Hub...")

	err := a.serverManager.Start(ctx)

	// Servers are down; closing the bus releases every remaining subscriber
	// so bridges and stream sessions finish draining.
	a.fanout.Close()

	if a.closeStore != nil {
		if closeErr := a.closeStore(); closeErr != nil {
			log.Error(closeErr, "Failed to close record store")
		}
	}

	return err
}
