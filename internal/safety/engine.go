package safety

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Engine binds one vehicle profile to the generic safety machinery: the
// frequency watchdog, the vehicle-state tracker, the command validator and
// the forwarding policy.
//
// The engine is designed for a single-owner control loop: every entry
// point runs to completion and all checks are bounded table lookups and
// arithmetic. A mutex serializes the entry points so the surrounding
// daemon may be concurrent, but no two frames are ever processed against
// the same state at once.
type Engine struct {
	mu sync.Mutex

	profile   *Profile
	watchdog  *Watchdog
	tracker   *Tracker
	validator *Validator
	router    *Router
	controls  *ControlsMachine

	txAllow   map[uint32]TxMessage
	stockSeen bool
}

// Snapshot is the read-only view exposed to the external arbitration and
// diagnostics.
type Snapshot struct {
	Profile         string          `json:"profile"`
	State           VehicleState    `json:"state"`
	ControlsAllowed bool            `json:"controlsAllowed"`
	WatchdogFault   bool            `json:"watchdogFault"`
	StockECUSeen    bool            `json:"stockEcuSeen"`
	Watchdog        []WatchdogEntry `json:"watchdog"`
	LastAccepted    float64         `json:"lastAccepted"`
}

// TxDecision is the engine's verdict on one outgoing frame, annotated with
// the decoded command for logging and telemetry.
type TxDecision struct {
	Verdict

	Checked bool    `json:"checked"`
	Command float64 `json:"command"`
	Active  bool    `json:"active"`
}

// NewEngine validates the profile and builds a fresh engine with zeroed
// watchdog and vehicle state. Configuration faults fail closed: no engine,
// no allow decisions. Calling NewEngine twice with the same profile yields
// configuration-equivalent engines with independent state.
func NewEngine(p *Profile, enforce bool, now time.Time) (*Engine, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil profile", ErrBadProfile)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	validator, err := NewValidator(p.Limits, p.Inactive, enforce)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadProfile, err)
	}

	e := &Engine{
		profile:   p,
		watchdog:  NewWatchdog(p.Monitored, p.StockIDs, p.WatchdogTolerance, now),
		tracker:   NewTracker(p.Signals),
		validator: validator,
		router:    NewRouter(p.MainBus, p.AdasBus, p.CamBus, p.StockIDs),
		controls:  NewControlsMachine(),
		txAllow:   make(map[uint32]TxMessage, len(p.TxAllowlist)),
	}
	for _, m := range p.TxAllowlist {
		e.txAllow[m.ID] = m
	}
	return e, nil
}

// OnFrame feeds one inbound frame through the watchdog and the state
// tracker, updates the controls-allowed arbitration and returns the
// forwarding decision for the frame.
func (e *Engine) OnFrame(ctx context.Context, f Frame, now time.Time) RouteDecision {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.watchdog.Observe(f.Bus, f.ID, len(f.Data), now)

	if e.watchdog.StockMessage(f.ID) && f.Bus == e.profile.CamBus {
		// The OEM controller is still transmitting its own command.
		e.stockSeen = true
		e.controls.Disengage(ctx, "stock-ecu-detected")
	}

	prev := e.tracker.State()
	if e.tracker.OnFrame(f) {
		e.arbitrate(ctx, prev, e.tracker.State())
	}

	return e.router.Route(f.Bus, f.ID)
}

// arbitrate translates vehicle-state transitions into controls events.
func (e *Engine) arbitrate(ctx context.Context, prev, cur VehicleState) {
	if cur.CruiseEngaged != prev.CruiseEngaged {
		e.controls.CruiseUpdate(ctx, cur.CruiseEngaged)
	}
	if cur.BrakePressed && !prev.BrakePressed && cur.Moving {
		e.controls.Disengage(ctx, "brake-pressed")
	}
	if cur.GasPressed && !prev.GasPressed {
		e.controls.Disengage(ctx, "gas-pressed")
	}
}

// CheckTx validates one outgoing frame from the injecting controller.
// Identifiers outside the profile's allowlist pass unchecked. Allowlisted
// identifiers must match the declared (bus, length) pair; a mismatch is a
// hard block, never advisory, since a command aimed at the wrong segment
// or truncated is malformed regardless of its value. The steering command
// itself is decoded and rate-checked only for the profile's command
// message.
func (e *Engine) CheckTx(f Frame) TxDecision {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.txAllow[f.ID]
	if !ok {
		return TxDecision{Verdict: Verdict{Allow: true}}
	}

	if f.Bus != m.Bus || len(f.Data) != m.Length {
		return TxDecision{
			Verdict: Verdict{Violation: true, Reason: ReasonAllowlist},
			Checked: true,
		}
	}

	if f.ID != e.profile.Command.ID {
		return TxDecision{Verdict: Verdict{Allow: true}, Checked: true}
	}

	cmd, active := e.decodeCommand(f)
	speed := e.tracker.State().Speed
	return TxDecision{
		Verdict: e.validator.Check(cmd, active, speed),
		Checked: true,
		Command: cmd,
		Active:  active,
	}
}

func (e *Engine) decodeCommand(f Frame) (float64, bool) {
	c := e.profile.Command

	var cmd float64
	if c.ValueSigned {
		cmd = float64(f.SignedBitField(c.ValueStart, c.ValueWidth))
	} else {
		cmd = float64(f.BitField(c.ValueStart, c.ValueWidth))
	}

	active := f.BitField(c.ActiveStart, c.ActiveWidth) == c.ActiveValue
	return cmd, active
}

// Tick runs the once-per-control-cycle staleness check, strictly after any
// frame processing for the cycle. A fault revokes controls but the engine
// keeps running: staleness is fail-safe, not fail-stop.
func (e *Engine) Tick(ctx context.Context, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	fault := e.watchdog.Check(now)
	if fault {
		e.controls.Disengage(ctx, "message-dropout")
	}
	return fault
}

// Snapshot returns a consistent read-only view of the engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot{
		Profile:         e.profile.Name,
		State:           e.tracker.State(),
		ControlsAllowed: e.controls.Allowed(),
		WatchdogFault:   e.watchdog.Fault(),
		StockECUSeen:    e.stockSeen,
		Watchdog:        e.watchdog.Entries(),
		LastAccepted:    e.validator.LastAccepted(),
	}
}

// Profile returns the bound profile.
func (e *Engine) Profile() *Profile {
	return e.profile
}
