package safety

import (
	"testing"
)

func testLimits() SteeringLimits {
	return SteeringLimits{
		MaxCommand: 100,
		RateUp: Curve{
			{Speed: 0, Value: 5.0},
			{Speed: 5, Value: 1.6},
			{Speed: 15, Value: 0.30},
		},
		RateDown: Curve{
			{Speed: 0, Value: 10},
			{Speed: 5, Value: 7.0},
			{Speed: 15, Value: 0.8},
		},
	}
}

func mustValidator(t *testing.T, policy InactivePolicy, enforce bool) *Validator {
	t.Helper()
	v, err := NewValidator(testLimits(), policy, enforce)
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func TestValidatorInactiveRequiresNeutral(t *testing.T) {
	v := mustValidator(t, InactiveZero, true)

	if got := v.Check(0, false, 0); !got.Allow {
		t.Error("neutral command rejected while inactive")
	}
	got := v.Check(3, false, 0)
	if got.Allow {
		t.Error("non-neutral command allowed while inactive")
	}
	if got.Reason != ReasonInactive {
		t.Errorf("Reason = %q, want %q", got.Reason, ReasonInactive)
	}
}

func TestValidatorInactiveHoldPolicy(t *testing.T) {
	v := mustValidator(t, InactiveHold, true)

	// Build up an accepted value, then go inactive.
	if got := v.Check(4, true, 0); !got.Allow {
		t.Fatal("ramp-in command rejected")
	}
	if got := v.Check(4, false, 0); !got.Allow {
		t.Error("held value rejected while inactive under hold policy")
	}
	if got := v.Check(0, false, 0); got.Allow {
		t.Error("dropping to zero allowed while inactive under hold policy")
	}
}

func TestValidatorAbsoluteBound(t *testing.T) {
	v := mustValidator(t, InactiveZero, true)

	// Over the absolute bound is rejected regardless of speed.
	for _, speed := range []float64{0, 5, 30} {
		got := v.Check(200, true, speed)
		if got.Allow {
			t.Errorf("command 200 over max 100 allowed at speed %v", speed)
		}
		if got.Reason != ReasonAbsoluteLimit {
			t.Errorf("Reason = %q, want %q", got.Reason, ReasonAbsoluteLimit)
		}
	}

	if got := v.Check(-200, true, 0); got.Allow {
		t.Error("negative command beyond bound allowed")
	}
}

func TestValidatorRateLimit(t *testing.T) {
	// Previous accepted 0; rate-up at speed 0 is 5.0.
	v := mustValidator(t, InactiveZero, true)

	if got := v.Check(5, true, 0); !got.Allow {
		t.Fatal("delta 5 at limit 5.0 rejected")
	}

	// From the same state a jump to 6 was allowed (delta 1); rebuild to
	// test the rejected step from zero.
	v = mustValidator(t, InactiveZero, true)
	got := v.Check(6, true, 0)
	if got.Allow {
		t.Error("delta 6 over limit 5.0 allowed")
	}
	if got.Reason != ReasonRateLimit {
		t.Errorf("Reason = %q, want %q", got.Reason, ReasonRateLimit)
	}
	// A rejected command never becomes the rate reference.
	if v.LastAccepted() != 0 {
		t.Errorf("LastAccepted = %v after rejection, want 0", v.LastAccepted())
	}
}

func TestValidatorRateCurveSelection(t *testing.T) {
	v := mustValidator(t, InactiveZero, true)

	// Ramp in to 4 at speed 0 (rate-up limit 5.0).
	if got := v.Check(4, true, 5); !got.Allow {
		t.Fatal("initial ramp rejected")
	}

	// Magnitude decreasing uses the looser rate-down curve: at speed 5
	// the down limit is 7.0 while the up limit is only 1.6.
	if got := v.Check(-3, true, 5); !got.Allow {
		t.Error("relaxation within rate-down limit rejected")
	}

	// Magnitude increasing again: delta 5 exceeds the 1.6 up limit.
	if got := v.Check(-8, true, 5); got.Allow {
		t.Error("ramp-in over rate-up limit allowed")
	}
}

func TestValidatorRateLimitObeysCurveAtSpeed(t *testing.T) {
	// For accepted pairs the delta never exceeds the interpolated limit.
	v := mustValidator(t, InactiveZero, true)
	speed := 10.0 // up limit interpolates to 0.95
	limit := testLimits().RateUp.Interpolate(speed)

	prev := v.LastAccepted()
	for _, cmd := range []float64{0.5, 1.0, 1.9, 2.3, 3.4} {
		got := v.Check(cmd, true, speed)
		if got.Allow {
			delta := cmd - prev
			if delta < 0 {
				delta = -delta
			}
			if delta > limit {
				t.Fatalf("accepted delta %v exceeds limit %v", delta, limit)
			}
			prev = cmd
		}
	}
}

func TestValidatorAdvisoryMode(t *testing.T) {
	v := mustValidator(t, InactiveZero, false)

	got := v.Check(200, true, 0)
	if !got.Allow {
		t.Error("advisory validator suppressed transmission")
	}
	if !got.Violation || got.Reason != ReasonAbsoluteLimit {
		t.Errorf("advisory violation not reported: %+v", got)
	}
	// The violating command still must not advance the reference.
	if v.LastAccepted() != 0 {
		t.Errorf("LastAccepted = %v after advisory violation, want 0", v.LastAccepted())
	}
}
