package safety

import (
	"context"
	"errors"
	"testing"
	"time"
)

// testProfile mirrors the shape of a real vehicle profile with small,
// test-friendly limits.
func testProfile() *Profile {
	return &Profile{
		Name:    "testcar",
		MainBus: 0,
		AdasBus: 1,
		CamBus:  2,
		Monitored: []MonitoredMessage{
			{ID: 1390, Bus: 0, Length: 6, FrequencyHz: 10},
			{ID: 909, Bus: 1, Length: 8, FrequencyHz: 25},
		},
		StockIDs: []uint32{1010},
		TxAllowlist: []TxMessage{
			{ID: 1010, Bus: 2, Length: 8},
		},
		Signals: testSignals,
		Limits: SteeringLimits{
			MaxCommand:    100,
			CommandToUnit: 10,
			RateUp: Curve{
				{Speed: 0, Value: 5.0},
				{Speed: 15, Value: 0.30},
			},
			RateDown: Curve{
				{Speed: 0, Value: 10},
				{Speed: 15, Value: 0.8},
			},
		},
		Command: CommandLayout{
			ID:          1010,
			ValueStart:  48,
			ValueWidth:  14,
			ValueSigned: true,
			ActiveStart: 35,
			ActiveWidth: 2,
			ActiveValue: 2,
		},
		Inactive:          InactiveZero,
		WatchdogTolerance: 10,
	}
}

// lkasFrame assembles an outgoing steering frame with the given raw angle
// and active flag at the test profile's declared offsets.
func lkasFrame(angle int, active bool) Frame {
	raw := uint32(angle) & 0x3FFF
	var b4 byte
	if active {
		b4 = 2 << 3
	}
	return Frame{
		Bus: 2,
		ID:  1010,
		Data: []byte{
			0, 0, 0, 0, b4, 0,
			byte(raw >> 6), byte(raw&0x3F) << 2,
		},
	}
}

func mustEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(testProfile(), true, time.Unix(1000, 0))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestNewEngineFailsClosed(t *testing.T) {
	if _, err := NewEngine(nil, true, time.Now()); !errors.Is(err, ErrBadProfile) {
		t.Errorf("nil profile: err = %v, want ErrBadProfile", err)
	}

	bad := testProfile()
	bad.Limits.RateUp = Curve{}
	if _, err := NewEngine(bad, true, time.Now()); !errors.Is(err, ErrBadProfile) {
		t.Errorf("malformed curve: err = %v, want ErrBadProfile", err)
	}

	unlisted := testProfile()
	unlisted.Command.ID = 999
	if _, err := NewEngine(unlisted, true, time.Now()); !errors.Is(err, ErrBadProfile) {
		t.Errorf("command outside allowlist: err = %v, want ErrBadProfile", err)
	}

	empty := testProfile()
	empty.Monitored = nil
	if _, err := NewEngine(empty, true, time.Now()); !errors.Is(err, ErrBadProfile) {
		t.Errorf("empty monitored set: err = %v, want ErrBadProfile", err)
	}
}

func TestNewEngineIndependentState(t *testing.T) {
	ctx := context.Background()
	t0 := time.Unix(1000, 0)

	a, err := NewEngine(testProfile(), true, t0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewEngine(testProfile(), true, t0)
	if err != nil {
		t.Fatal(err)
	}

	// Mutating one engine leaves the other zeroed.
	a.OnFrame(ctx, Frame{Bus: 1, ID: 909, Data: []byte{0x00, 0x64, 0, 0, 0, 0, 0, 0}}, t0)

	if got := a.Snapshot().State.Speed; got != 1.0 {
		t.Errorf("engine a speed = %v, want 1.0", got)
	}
	if got := b.Snapshot(); got.State != (VehicleState{}) || got.LastAccepted != 0 {
		t.Errorf("engine b state not independent: %+v", got)
	}
}

func TestEngineRouting(t *testing.T) {
	ctx := context.Background()
	e := mustEngine(t)
	now := time.Unix(1000, 0)

	// Stock command on main is suppressed; the same identifier arriving
	// on cam is the injected return path.
	if got := e.OnFrame(ctx, Frame{Bus: 0, ID: 1010, Data: make([]byte, 8)}, now); got != Drop {
		t.Errorf("stock id from main: %+v, want Drop", got)
	}
	if got := e.OnFrame(ctx, Frame{Bus: 2, ID: 1010, Data: make([]byte, 8)}, now); got != ForwardTo(0) {
		t.Errorf("stock id from cam: %+v, want forward to main", got)
	}
	if got := e.OnFrame(ctx, Frame{Bus: 0, ID: 909, Data: make([]byte, 8)}, now); got != ForwardTo(2) {
		t.Errorf("main traffic: %+v, want forward to cam", got)
	}
	if got := e.OnFrame(ctx, Frame{Bus: 5, ID: 909, Data: make([]byte, 8)}, now); got != Drop {
		t.Errorf("unexpected bus: %+v, want Drop", got)
	}
}

func TestEngineStockDetection(t *testing.T) {
	ctx := context.Background()
	e := mustEngine(t)
	now := time.Unix(1000, 0)

	// Engage via cruise, then see the OEM controller still talking on cam.
	e.OnFrame(ctx, Frame{Bus: 1, ID: 1106, Data: []byte{0, 0, 0x80, 0, 0, 0}}, now)
	if !e.Snapshot().ControlsAllowed {
		t.Fatal("cruise engage did not permit controls")
	}

	e.OnFrame(ctx, Frame{Bus: 2, ID: 1010, Data: make([]byte, 8)}, now)
	snap := e.Snapshot()
	if !snap.StockECUSeen {
		t.Error("stock ECU not flagged")
	}
	if snap.ControlsAllowed {
		t.Error("controls still allowed with stock controller present")
	}
}

func TestEngineCheckTxPassThrough(t *testing.T) {
	e := mustEngine(t)

	got := e.CheckTx(Frame{Bus: 2, ID: 0x123, Data: make([]byte, 8)})
	if !got.Allow || got.Checked {
		t.Errorf("non-allowlisted identifier: %+v, want unchecked allow", got)
	}
}

func TestEngineCheckTxAbsoluteBound(t *testing.T) {
	e := mustEngine(t)

	// Angle 200 over max 100 is rejected regardless of speed.
	got := e.CheckTx(lkasFrame(200, true))
	if got.Allow {
		t.Errorf("command 200 allowed: %+v", got)
	}
	if got.Command != 200 {
		t.Errorf("decoded command = %v, want 200", got.Command)
	}
	if got.Reason != ReasonAbsoluteLimit {
		t.Errorf("Reason = %q, want %q", got.Reason, ReasonAbsoluteLimit)
	}
}

func TestEngineCheckTxRateLimit(t *testing.T) {
	e := mustEngine(t)

	// Previous accepted 0, speed 0, rate-up limit 5.0: 5 passes, then a
	// fresh engine rejects 6.
	if got := e.CheckTx(lkasFrame(5, true)); !got.Allow {
		t.Errorf("delta 5 at limit 5.0 rejected: %+v", got)
	}

	e = mustEngine(t)
	if got := e.CheckTx(lkasFrame(6, true)); got.Allow {
		t.Errorf("delta 6 over limit 5.0 allowed: %+v", got)
	}
}

func TestEngineCheckTxAllowlistBusAndLength(t *testing.T) {
	e := mustEngine(t)

	// The allowlist binds 1010 to the camera bus with length 8; the same
	// identifier aimed elsewhere or truncated is blocked outright, even
	// with an in-limit command.
	wrongBus := lkasFrame(0, false)
	wrongBus.Bus = 0
	if got := e.CheckTx(wrongBus); got.Allow || got.Reason != ReasonAllowlist {
		t.Errorf("command on wrong bus: %+v, want allowlist block", got)
	}

	short := lkasFrame(0, false)
	short.Data = short.Data[:6]
	if got := e.CheckTx(short); got.Allow || got.Reason != ReasonAllowlist {
		t.Errorf("truncated command: %+v, want allowlist block", got)
	}

	// The mismatch is structural, never advisory.
	advisory, err := NewEngine(testProfile(), false, time.Unix(1000, 0))
	if err != nil {
		t.Fatal(err)
	}
	if got := advisory.CheckTx(wrongBus); got.Allow {
		t.Errorf("advisory mode passed an allowlist mismatch: %+v", got)
	}
}

func TestEngineCheckTxNonCommandAllowlisted(t *testing.T) {
	p := testProfile()
	p.TxAllowlist = append(p.TxAllowlist, TxMessage{ID: 666, Bus: 2, Length: 4})
	e, err := NewEngine(p, true, time.Unix(1000, 0))
	if err != nil {
		t.Fatal(err)
	}

	// An allowlisted message that is not the steering command gets the
	// structural check only, no rate limiting.
	got := e.CheckTx(Frame{Bus: 2, ID: 666, Data: []byte{0xFF, 0xFF, 0xFF, 0xFF}})
	if !got.Allow || !got.Checked || got.Violation {
		t.Errorf("non-command allowlisted frame: %+v, want checked allow", got)
	}
	if e.Snapshot().LastAccepted != 0 {
		t.Error("non-command frame advanced the rate reference")
	}
}

func TestEngineCheckTxInactive(t *testing.T) {
	e := mustEngine(t)

	if got := e.CheckTx(lkasFrame(0, false)); !got.Allow {
		t.Errorf("neutral inactive frame rejected: %+v", got)
	}
	if got := e.CheckTx(lkasFrame(3, false)); got.Allow {
		t.Errorf("non-neutral inactive frame allowed: %+v", got)
	}
}

func TestEngineCheckTxNegativeAngleDecode(t *testing.T) {
	e := mustEngine(t)

	got := e.CheckTx(lkasFrame(-4, true))
	if got.Command != -4 {
		t.Errorf("decoded command = %v, want -4", got.Command)
	}
	if !got.Allow {
		t.Errorf("small negative ramp rejected: %+v", got)
	}
}

func TestEngineTickRevokesControls(t *testing.T) {
	ctx := context.Background()
	t0 := time.Unix(1000, 0)
	e, err := NewEngine(testProfile(), true, t0)
	if err != nil {
		t.Fatal(err)
	}

	feed := func(now time.Time) {
		e.OnFrame(ctx, Frame{Bus: 0, ID: 1390, Data: make([]byte, 6)}, now)
		e.OnFrame(ctx, Frame{Bus: 1, ID: 909, Data: make([]byte, 8)}, now)
	}
	feed(t0)

	e.OnFrame(ctx, Frame{Bus: 1, ID: 1106, Data: []byte{0, 0, 0x80, 0, 0, 0}}, t0)
	if fault := e.Tick(ctx, t0.Add(100*time.Millisecond)); fault {
		t.Fatal("fault with fresh messages")
	}
	if !e.Snapshot().ControlsAllowed {
		t.Fatal("controls not allowed before dropout")
	}

	// Let the 25 Hz message (0.4s window) drop out.
	if fault := e.Tick(ctx, t0.Add(2*time.Second)); !fault {
		t.Fatal("no fault after dropout")
	}
	snap := e.Snapshot()
	if snap.ControlsAllowed {
		t.Error("controls still allowed after watchdog fault")
	}
	if !snap.WatchdogFault {
		t.Error("snapshot does not report watchdog fault")
	}
}
