package profile

import (
	"errors"
	"testing"
	"time"

	"github.com/cangate-io/cangate/internal/safety"
)

func TestLookupUnknownFailsClosed(t *testing.T) {
	_, err := Lookup("unknown-vehicle")
	if !errors.Is(err, safety.ErrBadProfile) {
		t.Errorf("Lookup(unknown) err = %v, want ErrBadProfile", err)
	}
}

func TestNamesContainsPSA(t *testing.T) {
	found := false
	for _, name := range Names() {
		if name == "psa" {
			found = true
		}
	}
	if !found {
		t.Errorf("Names() = %v, missing psa", Names())
	}
}

func TestPSAProfile(t *testing.T) {
	p, err := Lookup("psa")
	if err != nil {
		t.Fatalf("Lookup(psa): %v", err)
	}

	if err := p.Validate(); err != nil {
		t.Fatalf("psa profile invalid: %v", err)
	}

	if p.MainBus != 0 || p.AdasBus != 1 || p.CamBus != 2 {
		t.Errorf("unexpected bus roles: main=%d adas=%d cam=%d", p.MainBus, p.AdasBus, p.CamBus)
	}

	if len(p.TxAllowlist) != 1 || p.TxAllowlist[0].ID != 1010 {
		t.Errorf("tx allowlist = %+v, want single LKAS entry 1010", p.TxAllowlist)
	}

	// The rate curves only tighten with speed.
	for _, curve := range []safety.Curve{p.Limits.RateUp, p.Limits.RateDown} {
		prev := curve.Interpolate(0)
		for s := 0.5; s < 30; s += 0.5 {
			v := curve.Interpolate(s)
			if v > prev {
				t.Fatalf("rate limit grows with speed: %v at %v", v, s)
			}
			prev = v
		}
	}
}

func TestPSAEngineEndToEnd(t *testing.T) {
	p, err := Lookup("psa")
	if err != nil {
		t.Fatal(err)
	}

	t0 := time.Unix(1000, 0)
	e, err := safety.NewEngine(p, true, t0)
	if err != nil {
		t.Fatalf("NewEngine(psa): %v", err)
	}

	// Wheel-speed frame on the ADAS bus: raw 100 at 0.01 scale.
	speed := safety.Frame{Bus: 1, ID: 909, Data: []byte{0x00, 0x64, 0, 0, 0, 0, 0, 0}}
	if got := e.OnFrame(t.Context(), speed, t0); got != safety.Drop {
		t.Errorf("ADAS frame routed %+v, want Drop", got)
	}

	snap := e.Snapshot()
	if snap.State.Speed != 1.0 || !snap.State.Moving {
		t.Errorf("speed decode: %+v, want 1.0 moving", snap.State)
	}

	// Cruise engagement: byte 2 mask 0x80 of the MDD command frame.
	cruise := safety.Frame{Bus: 1, ID: 1106, Data: []byte{0, 0, 0x80, 0, 0, 0}}
	e.OnFrame(t.Context(), cruise, t0)
	if snap := e.Snapshot(); !snap.State.CruiseEngaged || !snap.ControlsAllowed {
		t.Errorf("cruise frame not decoded as engaged: %+v", snap.State)
	}

	// BSI brake frame on main, byte 0 mask 0x20: forwarded to camera,
	// decoded as pressed, and revokes controls while moving.
	brake := safety.Frame{Bus: 0, ID: 1042, Data: []byte{0x20, 0, 0, 0, 0, 0, 0, 0}}
	if got := e.OnFrame(t.Context(), brake, t0); got != safety.ForwardTo(2) {
		t.Errorf("BSI frame routed %+v, want forward to camera", got)
	}
	snap = e.Snapshot()
	if !snap.State.BrakePressed {
		t.Error("brake bit not decoded from BSI frame")
	}
	if snap.ControlsAllowed {
		t.Error("controls still allowed after brake press while moving")
	}

	// The stock LKAS command from the BSI side must never reach the EPS.
	if got := e.OnFrame(t.Context(), safety.Frame{Bus: 0, ID: 1010, Data: make([]byte, 8)}, t0); got != safety.Drop {
		t.Errorf("stock LKAS from main routed %+v, want Drop", got)
	}
}
