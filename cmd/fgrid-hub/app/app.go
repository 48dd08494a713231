// Package app builds the fgrid-hub command: flag and config-file handling
// around the hub's composition root.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fleetgrid-io/fleetgrid/cmd/fgrid-hub/app/options"
	"github.com/fleetgrid-io/fleetgrid/pkg/log"
)

const (
	commandName = "fgrid-hub"
	commandDesc = `The FleetGrid Hub ingests device telemetry, reconciles it into
per-vehicle state under the engine-override rules, and fans every accepted
change out to live subscribers over websocket and MQTT.`
)

// NewHubCommand creates the root command with all flags bound.
func NewHubCommand(ctx context.Context) *cobra.Command {
	opts := options.NewHubOptions()
	var configFile string

	cmd := &cobra.Command{
		Use:          commandName,
		Short:        "Launch a FleetGrid hub server",
		Long:         commandDesc,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				if err := loadConfigFile(configFile, opts); err != nil {
					return fmt.Errorf("failed to load configuration: %w", err)
				}
			}

			if err := opts.Validate(); err != nil {
				return err
			}

			log.Init(opts.Log)
			defer log.Sync()

			cfg, err := opts.Config()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			server, err := cfg.NewHubServer(ctx)
			if err != nil {
				return fmt.Errorf("failed to create hub server: %w", err)
			}

			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a YAML configuration file. Flags override file values.")
	opts.AddFlags(cmd.Flags())

	return cmd
}

// loadConfigFile reads the YAML config into opts through viper. The file is
// watched afterwards so operators see a restart hint when they edit it; the
// running process keeps its startup configuration.
func loadConfigFile(path string, opts *options.HubOptions) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("FGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return err
	}
	if err := v.Unmarshal(opts); err != nil {
		return err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Configuration file changed; restart to apply", "file", e.Name, "op", e.Op.String())
	})
	v.WatchConfig()

	return nil
}
