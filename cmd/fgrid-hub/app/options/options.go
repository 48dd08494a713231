// Package options composes the hub's option groups into one command-line
// surface.
package options

import (
	"errors"

	"github.com/spf13/pflag"

	"github.com/fleetgrid-io/fleetgrid/internal/hub"
	"github.com/fleetgrid-io/fleetgrid/pkg/log"
	"github.com/fleetgrid-io/fleetgrid/pkg/options"
)

// HubOptions groups every configurable concern of the hub binary.
type HubOptions struct {
	HttpOptions  *options.HttpOptions  `json:"http" mapstructure:"http"`
	MqttOptions  *options.MqttOptions  `json:"mqtt" mapstructure:"mqtt"`
	RedisOptions *options.RedisOptions `json:"redis" mapstructure:"redis"`
	S3Options    *options.S3Options    `json:"s3" mapstructure:"s3"`
	Log          *log.Options          `json:"log" mapstructure:"log"`
}

// NewHubOptions creates a HubOptions with all defaults applied.
func NewHubOptions() *HubOptions {
	return &HubOptions{
		HttpOptions:  options.NewHttpOptions(),
		MqttOptions:  options.NewMqttOptions(),
		RedisOptions: options.NewRedisOptions(),
		S3Options:    options.NewS3Options(),
		Log:          log.NewOptions(),
	}
}

// AddFlags binds every option group to the command's flag set.
func (o *HubOptions) AddFlags(fs *pflag.FlagSet) {
	o.HttpOptions.AddFlags(fs)
	o.MqttOptions.AddFlags(fs)
	o.RedisOptions.AddFlags(fs)
	o.S3Options.AddFlags(fs)
	o.Log.AddFlags(fs)
}

// Validate runs every group's validation and aggregates the failures.
func (o *HubOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.RedisOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return errors.Join(errs...)
}

// Config converts the options into the hub's runtime configuration.
func (o *HubOptions) Config() (*hub.Config, error) {
	return &hub.Config{
		HttpOptions:  o.HttpOptions,
		MqttOptions:  o.MqttOptions,
		RedisOptions: o.RedisOptions,
		S3Options:    o.S3Options,
	}, nil
}
