// Package notifier publishes gateway telemetry over MQTT and feeds
// remotely requested command frames into the relay.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cangate-io/cangate/internal/gateway"
	"github.com/cangate-io/cangate/internal/safety"
	"github.com/cangate-io/cangate/pkg/log"
	"github.com/cangate-io/cangate/pkg/mqtt"
	"github.com/cangate-io/cangate/pkg/mqtt/topic"
)

// CommandRequest is the wire form of an injected command frame. Data is
// base64 in JSON per encoding/json's []byte handling.
type CommandRequest struct {
	ID   uint32 `json:"id"`
	Bus  uint8  `json:"bus"`
	Data []byte `json:"data"`
}

// Notifier bridges the gateway to an MQTT broker. State snapshots are
// retained so a late subscriber sees the current picture; events are not.
type Notifier struct {
	client    mqtt.Client
	topics    *topic.Builder
	vehicleID string
	logger    log.Logger
}

var _ gateway.Notifier = (*Notifier)(nil)

// New wraps an already configured MQTT client.
func New(client mqtt.Client, topics *topic.Builder, vehicleID string) *Notifier {
	return &Notifier{
		client:    client,
		topics:    topics,
		vehicleID: vehicleID,
		logger:    log.WithName("notifier"),
	}
}

// Start connects the underlying client and waits for the first session.
func (n *Notifier) Start(ctx context.Context) error {
	if err := n.client.Start(ctx); err != nil {
		return fmt.Errorf("start mqtt client: %w", err)
	}
	if err := n.client.AwaitConnection(ctx); err != nil {
		return fmt.Errorf("await mqtt connection: %w", err)
	}
	n.logger.Info("Notifier connected", "vehicleID", n.vehicleID)
	return nil
}

// Stop disconnects from the broker.
func (n *Notifier) Stop(ctx context.Context) {
	n.client.Disconnect(ctx)
}

// PublishState pushes the current safety snapshot, retained at QoS 1.
func (n *Notifier) PublishState(ctx context.Context, snap safety.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return n.client.Publish(ctx, n.topics.State(n.vehicleID), 1, true, payload)
}

// PublishEvent pushes one discrete safety event at QoS 1, unretained.
func (n *Notifier) PublishEvent(ctx context.Context, ev gateway.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.client.Publish(ctx, n.topics.Event(n.vehicleID), 1, false, payload)
}

// SubscribeCommands routes frames published on the vehicle's command
// topic into submit. Malformed payloads are logged and dropped; the
// submitted frames still pass the full safety check in the relay.
func (n *Notifier) SubscribeCommands(ctx context.Context, submit func(safety.Frame) error) error {
	handler := func(ctx context.Context, t string, payload []byte) {
		var req CommandRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			n.logger.Warn("Malformed command payload", "topic", t, "err", err)
			return
		}
		if len(req.Data) == 0 || len(req.Data) > 8 {
			n.logger.Warn("Command payload length out of range", "id", req.ID, "length", len(req.Data))
			return
		}
		f := safety.Frame{Bus: req.Bus, ID: req.ID, Data: req.Data}
		if err := submit(f); err != nil {
			n.logger.Warn("Command not accepted by relay", "id", req.ID, "err", err)
		}
	}
	return n.client.Subscribe(ctx, n.topics.Command(n.vehicleID), 1, handler)
}
