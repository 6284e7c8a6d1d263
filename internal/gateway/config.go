package gateway

import (
	"fmt"
	"time"

	"github.com/cangate-io/cangate/internal/safety"
	"github.com/cangate-io/cangate/internal/safety/profile"
)

// Config is the fully resolved gateway configuration, produced from
// command-line options after validation.
type Config struct {
	// Profile names the vehicle safety profile to enforce. Unknown
	// profiles fail construction; the gateway never starts permissive.
	Profile string

	// SocketCAN interface names, one per bus role.
	MainInterface string
	AdasInterface string
	CamInterface  string

	// CycleRateHz is the control-tick frequency.
	CycleRateHz int

	// Enforce blocks violating commands when true; when false violations
	// are counted and reported but the frames still pass.
	Enforce bool

	Notifier Notifier
}

// NewGateway builds the engine for the configured profile, dials the
// three CAN segments and assembles the relay.
func (c *Config) NewGateway() (*Gateway, error) {
	p, err := profile.Lookup(c.Profile)
	if err != nil {
		return nil, err
	}

	engine, err := safety.NewEngine(p, c.Enforce, time.Now())
	if err != nil {
		return nil, err
	}

	segments := make([]Segment, 0, 3)
	for _, ep := range []struct {
		ifname string
		bus    uint8
	}{
		{c.MainInterface, p.MainBus},
		{c.AdasInterface, p.AdasBus},
		{c.CamInterface, p.CamBus},
	} {
		seg, err := DialSegment(ep.ifname, ep.bus)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", ep.ifname, err)
		}
		segments = append(segments, seg)
	}

	tick := time.Second / time.Duration(c.CycleRateHz)
	return New(engine, segments, tick, c.Notifier)
}
