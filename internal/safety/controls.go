package safety

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	fsmutil "github.com/cangate-io/cangate/internal/pkg/util/fsm"
	"github.com/cangate-io/cangate/pkg/log"
)

// Controls-allowed states and events. The machine arbitrates whether
// command injection is currently permitted; the command validator itself
// never reads it, keeping the per-frame check independent of arbitration.
const (
	StateDisengaged = "disengaged"
	StateEngaged    = "engaged"

	EventEngage    = "event_engage"
	EventDisengage = "event_disengage"
)

// ControlsMachine derives the controls-allowed flag from vehicle state
// transitions: a cruise-engage edge permits injection; cruise drop,
// driver override (brake while moving, gas press), a watchdog fault or a
// detected stock controller revokes it.
type ControlsMachine struct {
	*fsm.FSM

	lastCruise bool
}

// NewControlsMachine creates the machine in the disengaged state.
func NewControlsMachine() *ControlsMachine {
	m := &ControlsMachine{}

	events := fsm.Events{
		{Name: EventEngage, Src: []string{StateDisengaged}, Dst: StateEngaged},
		{Name: EventDisengage, Src: []string{StateEngaged}, Dst: StateDisengaged},
	}

	callbacks := fsm.Callbacks{
		"enter_" + StateEngaged:    fsmutil.WrapEvent(m.actionEnterEngaged),
		"enter_" + StateDisengaged: fsmutil.WrapEvent(m.actionEnterDisengaged),
	}

	m.FSM = fsm.NewFSM(StateDisengaged, events, callbacks)
	return m
}

func (m *ControlsMachine) actionEnterEngaged(ctx context.Context, e *fsm.Event) error {
	log.Info("Controls engaged")
	return nil
}

func (m *ControlsMachine) actionEnterDisengaged(ctx context.Context, e *fsm.Event) error {
	reason := "unknown"
	if len(e.Args) > 0 {
		if s, ok := e.Args[0].(string); ok {
			reason = s
		}
	}
	log.Info("Controls disengaged", "reason", reason)
	return nil
}

// CruiseUpdate feeds the tracked cruise flag in; edges drive transitions.
func (m *ControlsMachine) CruiseUpdate(ctx context.Context, engaged bool) {
	defer func() { m.lastCruise = engaged }()

	if engaged && !m.lastCruise {
		m.fire(ctx, EventEngage)
	}
	if !engaged && m.lastCruise {
		m.fire(ctx, EventDisengage, "cruise-disengaged")
	}
}

// Disengage revokes controls for the given reason. A no-op when already
// disengaged.
func (m *ControlsMachine) Disengage(ctx context.Context, reason string) {
	m.fire(ctx, EventDisengage, reason)
}

// Allowed reports whether command injection is currently permitted.
func (m *ControlsMachine) Allowed() bool {
	return m.Current() == StateEngaged
}

func (m *ControlsMachine) fire(ctx context.Context, event string, args ...any) {
	err := m.Event(ctx, event, args...)
	if err == nil {
		return
	}
	var invalid fsm.InvalidEventError
	var noTransition fsm.NoTransitionError
	if errors.As(err, &invalid) || errors.As(err, &noTransition) {
		// Already in the target state; nothing to do.
		return
	}
	log.Error(err, "Controls state transition failed", "event", event)
}
