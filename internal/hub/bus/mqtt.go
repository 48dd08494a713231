package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetgrid-io/fleetgrid/internal/hub/core/model"
	"github.com/fleetgrid-io/fleetgrid/pkg/log"
	pkgmqtt "github.com/fleetgrid-io/fleetgrid/pkg/mqtt"
	"github.com/fleetgrid-io/fleetgrid/pkg/mqtt/topic"
)

// MQTTBridge mirrors every fanout update onto the broker so MQTT dashboards
// can follow vehicle state without a websocket session. State topics are
// published retained: a freshly connected dashboard immediately sees the last
// known snapshot of each vehicle.
type MQTTBridge struct {
	client pkgmqtt.Client
	topics *topic.Builder
	fanout *Bus
}

// NewMQTTBridge creates the bridge. The client must be dedicated to egress;
// ingress traffic runs on its own connection.
func NewMQTTBridge(client pkgmqtt.Client, topics *topic.Builder, fanout *Bus) *MQTTBridge {
	return &MQTTBridge{
		client: client,
		topics: topics,
		fanout: fanout,
	}
}

// Start connects to the broker and pumps bus updates until ctx is canceled.
func (br *MQTTBridge) Start(ctx context.Context) error {
	if err := br.client.Start(ctx); err != nil {
		return fmt.Errorf("starting egress mqtt client: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		br.client.Disconnect(shutdownCtx)
	}()

	if err := br.client.AwaitConnection(ctx); err != nil {
		return fmt.Errorf("awaiting egress mqtt connection: %w", err)
	}
	log.Info("MQTT egress bridge connected")

	sess := br.fanout.Subscribe()
	defer br.fanout.Unsubscribe(sess)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-sess.Updates():
			if !ok {
				return nil
			}
			br.forward(ctx, update)
		}
	}
}

func (br *MQTTBridge) forward(ctx context.Context, update *model.VehicleUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		log.Error(err, "Failed to encode vehicle update", "vehicle", update.Vehicle.ID)
		return
	}

	t := br.topics.VehicleState(update.Vehicle.ID)
	if err := br.client.Publish(ctx, t, 1, true, payload); err != nil {
		// Best-effort, same as any other subscriber session.
		log.Error(err, "Failed to publish vehicle state", "topic", t)
	}
}
