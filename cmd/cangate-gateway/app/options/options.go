package options

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/cangate-io/cangate/internal/gateway"
	"github.com/cangate-io/cangate/pkg/app"
	"github.com/cangate-io/cangate/pkg/log"
	"github.com/cangate-io/cangate/pkg/options"
)

// GatewayOptions aggregates all configuration for the gateway daemon.
type GatewayOptions struct {
	CanOptions  *options.CanOptions  `json:"can" mapstructure:"can"`
	MqttOptions *options.MqttOptions `json:"mqtt" mapstructure:"mqtt"`
	HttpOptions *options.HttpOptions `json:"http" mapstructure:"http"`
	Log         *log.Options         `json:"log" mapstructure:"log"`
}

var _ app.Options = (*GatewayOptions)(nil)

func NewGatewayOptions() *GatewayOptions {
	return &GatewayOptions{
		CanOptions:  options.NewCanOptions(),
		MqttOptions: options.NewMqttOptions(),
		HttpOptions: options.NewHttpOptions(),
		Log:         log.NewOptions(),
	}
}

func (o *GatewayOptions) AddFlags(fs *pflag.FlagSet) {
	o.CanOptions.AddFlags(fs)
	o.MqttOptions.AddFlags(fs)
	o.HttpOptions.AddFlags(fs)
	o.Log.AddFlags(fs)
}

// Complete fills in defaults that depend on the environment.
func (o *GatewayOptions) Complete() error {
	if o.CanOptions.VehicleID == "" {
		host, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("derive vehicle id: %w", err)
		}
		o.CanOptions.VehicleID = host
	}
	return nil
}

func (o *GatewayOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.CanOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return errors.Join(errs...)
}

// Config produces the resolved gateway configuration. The notifier is
// wired separately by the app once the MQTT client exists.
func (o *GatewayOptions) Config() (*gateway.Config, error) {
	return &gateway.Config{
		Profile:       o.CanOptions.Profile,
		MainInterface: o.CanOptions.MainInterface,
		AdasInterface: o.CanOptions.AdasInterface,
		CamInterface:  o.CanOptions.CamInterface,
		CycleRateHz:   o.CanOptions.CycleRateHz,
		Enforce:       o.CanOptions.Enforce,
	}, nil
}
