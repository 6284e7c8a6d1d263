package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cangate-io/cangate/cmd/cangate-gateway/app/options"
	"github.com/cangate-io/cangate/internal/gateway/notifier"
	"github.com/cangate-io/cangate/internal/gateway/server"
	"github.com/cangate-io/cangate/pkg/app"
	"github.com/cangate-io/cangate/pkg/log"
	"github.com/cangate-io/cangate/pkg/mqtt"
	"github.com/cangate-io/cangate/pkg/mqtt/topic"
)

const (
	commandName = "cangate-gateway"
	commandDesc = `The Cangate gateway sits between a vehicle's CAN segments as a
man-in-the-middle relay. It forwards traffic according to the loaded
vehicle profile, supervises message liveness, tracks vehicle state and
validates every injected actuation command before it reaches the bus.`
)

func NewApp() *app.App {
	opts := options.NewGatewayOptions()
	return app.NewApp(
		commandName,
		"Launch the CAN safety gateway",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
		app.WithSubcommands(newProfilesCommand()),
	)
}

func run(opts *options.GatewayOptions) app.RunFunc {
	return func(ctx context.Context) error {
		log.Init(opts.Log)

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		var note *notifier.Notifier
		if opts.MqttOptions.Broker != "" {
			client, err := mqtt.NewClient(opts.MqttOptions.ToClientConfig())
			if err != nil {
				return fmt.Errorf("failed to create mqtt client: %w", err)
			}
			note = notifier.New(client, topic.NewBuilder(opts.MqttOptions.TopicRoot), opts.CanOptions.VehicleID)
			cfg.Notifier = note
		}

		gw, err := cfg.NewGateway()
		if err != nil {
			return fmt.Errorf("failed to create gateway: %w", err)
		}

		if note != nil {
			if err := note.Start(ctx); err != nil {
				return err
			}
			defer note.Stop(context.Background())
			if err := note.SubscribeCommands(ctx, gw.SubmitCommand); err != nil {
				return fmt.Errorf("failed to subscribe to commands: %w", err)
			}
		}

		srv := server.NewServer(opts.HttpOptions, gw.Snapshot)

		eg, ctx := errgroup.WithContext(ctx)
		eg.Go(func() error { return gw.Run(ctx) })
		eg.Go(func() error { return srv.Start(ctx) })
		return eg.Wait()
	}
}
