// Package mqtt implements the MQTT ingress layer: devices publish telemetry
// samples to the fleet namespace and the handlers feed them into the same
// ingest service the HTTP gateway uses.
package mqtt

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetgrid-io/fleetgrid/internal/hub/core/service"
	"github.com/fleetgrid-io/fleetgrid/pkg/log"
	pkgmqtt "github.com/fleetgrid-io/fleetgrid/pkg/mqtt"
	"github.com/fleetgrid-io/fleetgrid/pkg/mqtt/topic"
)

const telemetryQoS = 1

// Server implements the MQTT ingress layer.
type Server struct {
	client pkgmqtt.Client
	topics *topic.Builder
	svc    *service.Service
}

// NewServer creates a new MQTT server (client).
func NewServer(client pkgmqtt.Client, builder *topic.Builder, svc *service.Service) *Server {
	return &Server{
		client: client,
		topics: builder,
		svc:    svc,
	}
}

// Start connects to the broker, subscribes to the telemetry namespace, and
// blocks until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	// 1. Start the connection manager (non-blocking).
	if err := s.client.Start(ctx); err != nil {
		return err
	}

	// Ensure MQTT disconnects when Run exits (LIFO order).
	defer func() {
		log.Info("Disconnecting MQTT ingress client...")
		// Use a fresh context with timeout to ensure the disconnect packet sends.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.client.Disconnect(shutdownCtx)
		log.Info("MQTT ingress client disconnected")
	}()

	// 2. Wait for the initial connection so we don't report ready while the
	// data plane is still dark.
	log.Info("Waiting for MQTT connection...")
	if err := s.client.AwaitConnection(ctx); err != nil {
		return err
	}
	log.Info("MQTT Connected")

	filter := s.topics.TelemetryWildcard()
	if err := s.client.Subscribe(ctx, filter, telemetryQoS, s.handleTelemetry); err != nil {
		return fmt.Errorf("failed to subscribe to topic: %s, err: %w", filter, err)
	}
	log.Info("Subscribed to telemetry namespace", "filter", filter)

	<-ctx.Done()

	return nil
}
