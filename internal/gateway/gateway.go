package gateway

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cangate-io/cangate/internal/pkg/metrics"
	"github.com/cangate-io/cangate/internal/safety"
	"github.com/cangate-io/cangate/pkg/log"
)

// Event is a discrete safety occurrence published to the notifier.
type Event struct {
	Type      string    `json:"type"` // controls, watchdog, command-blocked
	Reason    string    `json:"reason,omitempty"`
	Command   float64   `json:"command,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier publishes safety telemetry upward. Implementations must be
// safe for use from the relay loop; publish failures are logged, never
// propagated into frame handling.
type Notifier interface {
	PublishState(ctx context.Context, snap safety.Snapshot) error
	PublishEvent(ctx context.Context, ev Event) error
}

// Gateway splices the vehicle's CAN segments through the safety engine.
//
// All inbound frames, outgoing-command requests and the control tick are
// funneled into a single loop goroutine: the serialization point required
// by the engine's single-owner model. Segments may deliver frames from
// their own reader goroutines; delivery into the loop is a channel send.
type Gateway struct {
	engine   *safety.Engine
	segments map[uint8]Segment
	notifier Notifier

	tick          time.Duration
	snapshotEvery int

	frames chan safety.Frame
	txReq  chan safety.Frame

	stockIDs map[uint32]struct{}
	logger   log.Logger
}

// New assembles a gateway over the given engine and segments.
// The notifier may be nil.
func New(engine *safety.Engine, segments []Segment, tick time.Duration, notifier Notifier) (*Gateway, error) {
	if engine == nil {
		return nil, fmt.Errorf("gateway: engine is required")
	}
	if tick <= 0 {
		return nil, fmt.Errorf("gateway: non-positive tick %v", tick)
	}

	g := &Gateway{
		engine:   engine,
		segments: make(map[uint8]Segment, len(segments)),
		notifier: notifier,
		tick:     tick,
		// One state snapshot per second regardless of cycle rate.
		snapshotEvery: int(time.Second / tick),
		frames:        make(chan safety.Frame, 256),
		txReq:         make(chan safety.Frame, 16),
		stockIDs:      make(map[uint32]struct{}),
		logger:        log.WithName("gateway"),
	}
	if g.snapshotEvery < 1 {
		g.snapshotEvery = 1
	}

	for _, seg := range segments {
		if _, dup := g.segments[seg.Bus()]; dup {
			return nil, fmt.Errorf("gateway: duplicate segment for bus %d", seg.Bus())
		}
		g.segments[seg.Bus()] = seg
	}
	for _, id := range engine.Profile().StockIDs {
		g.stockIDs[id] = struct{}{}
	}

	return g, nil
}

// SubmitCommand hands an outgoing frame from the injecting controller to
// the relay loop. It never blocks; a full queue rejects the command,
// which the caller should treat as a dropped frame.
func (g *Gateway) SubmitCommand(f safety.Frame) error {
	select {
	case g.txReq <- f:
		return nil
	default:
		metrics.FramesDroppedTotal.WithLabelValues("overflow").Inc()
		return fmt.Errorf("gateway: command queue full")
	}
}

// Snapshot exposes the engine's read-only view.
func (g *Gateway) Snapshot() safety.Snapshot {
	return g.engine.Snapshot()
}

// Run subscribes all segments and drives the relay loop until the context
// is cancelled. It blocks.
func (g *Gateway) Run(ctx context.Context) error {
	for _, seg := range g.segments {
		seg.Subscribe(g.enqueue)
	}

	eg, ctx := errgroup.WithContext(ctx)

	for _, seg := range g.segments {
		eg.Go(seg.Run)
	}
	eg.Go(func() error {
		g.loop(ctx)
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		for _, seg := range g.segments {
			if err := seg.Close(); err != nil {
				g.logger.Error(err, "Failed to close segment", "bus", seg.Bus())
			}
		}
		return nil
	})

	g.logger.Info("Gateway running",
		"profile", g.engine.Profile().Name,
		"segments", len(g.segments),
		"cycle", g.tick)

	return eg.Wait()
}

// enqueue delivers one inbound frame into the relay loop without blocking
// the segment reader. Overflow drops the frame and counts it.
func (g *Gateway) enqueue(f safety.Frame) {
	select {
	case g.frames <- f:
	default:
		metrics.FramesDroppedTotal.WithLabelValues("overflow").Inc()
	}
}

// loop is the single owner of the safety engine. Frames and commands are
// handled to completion in arrival order; the staleness check runs once
// per tick, strictly after frame processing for that tick.
func (g *Gateway) loop(ctx context.Context) {
	ticker := time.NewTicker(g.tick)
	defer ticker.Stop()

	var (
		ticks int
		st    tickState
	)

	for {
		select {
		case <-ctx.Done():
			return
		case f := <-g.frames:
			g.handleFrame(ctx, f)
		case f := <-g.txReq:
			g.handleTx(ctx, f)
		case now := <-ticker.C:
			ticks++
			g.handleTick(ctx, now, ticks, &st)
		}
	}
}

// tickState tracks the previous tick's observations so the notifier only
// sees edges, not levels.
type tickState struct {
	lastAllowed bool
	lastFault   bool
}

func (g *Gateway) handleFrame(ctx context.Context, f safety.Frame) {
	start := time.Now()
	route := g.engine.OnFrame(ctx, f, start)
	metrics.FrameProcessingSeconds.Observe(time.Since(start).Seconds())

	if !route.Forward {
		reason := "policy"
		if _, stock := g.stockIDs[f.ID]; stock && f.Bus == g.engine.Profile().MainBus {
			reason = "stock-suppressed"
		}
		metrics.FramesDroppedTotal.WithLabelValues(reason).Inc()
		return
	}

	dst, ok := g.segments[route.Bus]
	if !ok {
		// A forwarding decision to a segment we are not attached to is a
		// wiring problem, not a safety one.
		g.logger.Warn("No segment for forwarding destination", "bus", route.Bus)
		metrics.FramesDroppedTotal.WithLabelValues("policy").Inc()
		return
	}

	if err := dst.Publish(safety.Frame{Bus: route.Bus, ID: f.ID, Data: f.Data}); err != nil {
		g.logger.Error(err, "Failed to forward frame", "id", f.ID, "destination", route.Bus)
		return
	}
	metrics.FramesForwardedTotal.WithLabelValues(busLabel(f.Bus), busLabel(route.Bus)).Inc()
}

func (g *Gateway) handleTx(ctx context.Context, f safety.Frame) {
	d := g.engine.CheckTx(f)

	if d.Violation {
		metrics.CommandViolationsTotal.WithLabelValues(string(d.Reason)).Inc()
		g.notifyEvent(ctx, Event{
			Type:      "command-blocked",
			Reason:    string(d.Reason),
			Command:   d.Command,
			Timestamp: time.Now(),
		})
	}

	if !d.Allow {
		metrics.CommandsBlockedTotal.WithLabelValues(string(d.Reason)).Inc()
		g.logger.Warn("Outgoing command rejected",
			"id", f.ID, "command", d.Command, "active", d.Active, "reason", string(d.Reason))
		return
	}

	dst, ok := g.segments[f.Bus]
	if !ok {
		g.logger.Warn("No segment for outgoing command", "bus", f.Bus)
		return
	}
	if err := dst.Publish(f); err != nil {
		g.logger.Error(err, "Failed to transmit command", "id", f.ID)
	}
}

func (g *Gateway) handleTick(ctx context.Context, now time.Time, ticks int, st *tickState) {
	fault := g.engine.Tick(ctx, now)
	snap := g.engine.Snapshot()

	metrics.WatchdogFault.Set(boolGauge(fault))
	metrics.ControlsAllowed.Set(boolGauge(snap.ControlsAllowed))

	if fault && !st.lastFault {
		g.logger.Warn("Watchdog fault, monitored message dropout")
		g.notifyEvent(ctx, Event{
			Type:      "watchdog",
			Reason:    "message-dropout",
			Timestamp: now,
		})
	}
	st.lastFault = fault

	if snap.ControlsAllowed != st.lastAllowed {
		g.notifyEvent(ctx, Event{
			Type:      "controls",
			Reason:    controlsReason(snap.ControlsAllowed),
			Timestamp: now,
		})
		st.lastAllowed = snap.ControlsAllowed
	}

	if ticks%g.snapshotEvery == 0 && g.notifier != nil {
		if err := g.notifier.PublishState(ctx, snap); err != nil {
			g.logger.Debug("Failed to publish state snapshot", "err", err)
		}
	}
}

func (g *Gateway) notifyEvent(ctx context.Context, ev Event) {
	if g.notifier == nil {
		return
	}
	if err := g.notifier.PublishEvent(ctx, ev); err != nil {
		g.logger.Debug("Failed to publish event", "type", ev.Type, "err", err)
	}
}

func controlsReason(allowed bool) string {
	if allowed {
		return "engaged"
	}
	return "disengaged"
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func busLabel(bus uint8) string {
	return fmt.Sprintf("bus%d", bus)
}
