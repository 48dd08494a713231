package hub

import (
	"context"
	"fmt"
	"os"

	"github.com/fleetgrid-io/fleetgrid/internal/hub/archive"
	"github.com/fleetgrid-io/fleetgrid/internal/hub/bus"
	"github.com/fleetgrid-io/fleetgrid/internal/hub/core"
	"github.com/fleetgrid-io/fleetgrid/internal/hub/core/service"
	"github.com/fleetgrid-io/fleetgrid/internal/hub/server"
	hubhttp "github.com/fleetgrid-io/fleetgrid/internal/hub/server/http"
	hubmqtt "github.com/fleetgrid-io/fleetgrid/internal/hub/server/mqtt"
	"github.com/fleetgrid-io/fleetgrid/internal/hub/store"
	"github.com/fleetgrid-io/fleetgrid/pkg/log"
	pkgmqtt "github.com/fleetgrid-io/fleetgrid/pkg/mqtt"
	"github.com/fleetgrid-io/fleetgrid/pkg/mqtt/topic"
	"github.com/fleetgrid-io/fleetgrid/pkg/options"
)

// Config is the fully resolved hub configuration, assembled from the
// command-line options.
type Config struct {
	HttpOptions  *options.HttpOptions
	MqttOptions  *options.MqttOptions
	RedisOptions *options.RedisOptions
	S3Options    *options.S3Options
}

// NewHubServer builds the hub from the configuration: record store, fanout
// bus, core service, and the protocol servers, wired together here and
// nowhere else.
func (cfg *Config) NewHubServer(ctx context.Context) (*HubServer, error) {
	// 1. Record store (secondary adapter).
	var vehicles core.VehicleRepository
	var closeStore func() error
	if cfg.RedisOptions.Enabled() {
		redisStore, err := store.NewRedis(ctx, cfg.RedisOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to init record store: %w", err)
		}
		vehicles = redisStore
		closeStore = redisStore.Close
	} else {
		log.Warn("No Redis configured; vehicle records are in-memory and lost on restart")
		vehicles = store.NewMemory()
	}

	// 2. Fanout bus: the in-process delivery layer every subscriber and
	// bridge hangs off.
	fanout := bus.New()

	// 3. Core domain service.
	svc := service.New(vehicles, fanout)

	// 4. Ingress servers and bus consumers (primary adapters).
	servers := []server.Server{
		hubhttp.NewServer(cfg.HttpOptions, svc, vehicles, fanout),
	}

	if cfg.MqttOptions.Enabled() {
		topics := topic.NewBuilder(cfg.MqttOptions.TopicRoot)

		ingressClient, err := newMQTTClient(cfg.MqttOptions, "ingress")
		if err != nil {
			return nil, fmt.Errorf("failed to init mqtt ingress client: %w", err)
		}
		servers = append(servers, hubmqtt.NewServer(ingressClient, topics, svc))

		// A separate session for egress so a slow publish path never backs
		// up telemetry delivery.
		egressClient, err := newMQTTClient(cfg.MqttOptions, "notifier")
		if err != nil {
			return nil, fmt.Errorf("failed to init mqtt egress client: %w", err)
		}
		servers = append(servers, bus.NewMQTTBridge(egressClient, topics, fanout))
	}

	if cfg.S3Options.Enabled() {
		archiver, err := archive.NewArchiver(cfg.S3Options, fanout)
		if err != nil {
			return nil, fmt.Errorf("failed to init event archive: %w", err)
		}
		servers = append(servers, archiver)
	}

	return &HubServer{
		serverManager: server.NewManager(servers...),
		fanout:        fanout,
		closeStore:    closeStore,
	}, nil
}

func newMQTTClient(opts *options.MqttOptions, role string) (pkgmqtt.Client, error) {
	clientCfg := opts.ToClientConfig()

	if clientCfg.ClientID == "" {
		hostname, _ := os.Hostname()
		clientCfg.ClientID = fmt.Sprintf("fgrid-hub-%s", hostname)
	}
	// Each concurrent session needs its own client id or the broker evicts
	// the other one.
	clientCfg.ClientID = fmt.Sprintf("%s-%s", clientCfg.ClientID, role)

	client, err := pkgmqtt.NewClient(clientCfg)
	if err != nil {
		log.Error(err, "failed to new mqtt client", "role", role)
		return nil, err
	}

	return client, nil
}
