package topic

import (
	"fmt"
)

// Topic segments for the cangate safety telemetry protocol.
// These constants define the routing contract between the gateway and any
// fleet-side consumer. Changing them breaks existing subscribers.
const (
	// SuffixState carries periodic vehicle-state snapshots.
	// Structure: {root}/state/{vehicleID}
	SuffixState = "state"

	// SuffixEvent carries discrete safety events (controls transitions,
	// watchdog faults, blocked commands).
	// Structure: {root}/event/{vehicleID}
	SuffixEvent = "event"

	// SuffixCommand is the downstream topic on which an injecting
	// controller may submit outgoing frames to the gateway.
	// Structure: {root}/command/{vehicleID}
	SuffixCommand = "command"
)

// Builder encapsulates the construction of MQTT topic strings so topic
// layout stays consistent across the project.
type Builder struct {
	// root is the base namespace for all topics (e.g. "cangate/v1").
	root string
}

// NewBuilder creates a Builder with the specified root namespace.
func NewBuilder(root string) *Builder {
	return &Builder{root: root}
}

// State returns the snapshot topic for a vehicle.
// Direction: gateway -> fleet.
func (b *Builder) State(vehicleID string) string {
	return b.build(SuffixState, vehicleID)
}

// Event returns the safety-event topic for a vehicle.
// Direction: gateway -> fleet.
func (b *Builder) Event(vehicleID string) string {
	return b.build(SuffixEvent, vehicleID)
}

// Command returns the command-injection topic for a vehicle.
// Direction: controller -> gateway.
func (b *Builder) Command(vehicleID string) string {
	return b.build(SuffixCommand, vehicleID)
}

// build is a private helper to construct the final topic string.
// Pattern: {root}/{suffix}/{identifier}
func (b *Builder) build(suffix, id string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, suffix, id)
}
