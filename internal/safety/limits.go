package safety

import (
	"errors"
	"fmt"
)

// Breakpoint is one (speed, value) point of a piecewise-linear lookup.
type Breakpoint struct {
	Speed float64
	Value float64
}

// Curve is an ordered sequence of breakpoints with strictly increasing
// speeds. The same interpolation routine serves both the rate-up and
// rate-down limits so edge clamping stays consistent.
type Curve []Breakpoint

var errEmptyCurve = errors.New("safety: limit curve has no breakpoints")

// Validate checks the curve's shape.
func (c Curve) Validate() error {
	if len(c) == 0 {
		return errEmptyCurve
	}
	for i := 1; i < len(c); i++ {
		if c[i].Speed <= c[i-1].Speed {
			return fmt.Errorf("safety: limit curve breakpoints not strictly increasing at index %d", i)
		}
	}
	return nil
}

// Interpolate evaluates the curve at the given speed. Speeds outside the
// curve's domain clamp to the endpoint values.
func (c Curve) Interpolate(speed float64) float64 {
	if len(c) == 0 {
		return 0
	}
	if speed <= c[0].Speed {
		return c[0].Value
	}
	last := c[len(c)-1]
	if speed >= last.Speed {
		return last.Value
	}
	for i := 1; i < len(c); i++ {
		if speed > c[i].Speed {
			continue
		}
		lo, hi := c[i-1], c[i]
		frac := (speed - lo.Speed) / (hi.Speed - lo.Speed)
		return lo.Value + frac*(hi.Value-lo.Value)
	}
	return last.Value
}

// SteeringLimits bounds an outgoing steering command: an absolute ceiling
// plus speed-indexed per-cycle rate limits. The up/down asymmetry allows
// fast relaxation of an applied command but slow ramp-in.
type SteeringLimits struct {
	// MaxCommand is the absolute bound in command units.
	MaxCommand float64

	// RateUp bounds the per-cycle delta while command magnitude increases.
	RateUp Curve

	// RateDown bounds the per-cycle delta while command magnitude decreases.
	RateDown Curve

	// CommandToUnit is the number of command units per physical unit
	// (e.g. CAN counts per degree), for reporting only.
	CommandToUnit float64
}

// Validate checks the limits for configuration faults.
func (l SteeringLimits) Validate() error {
	if l.MaxCommand <= 0 {
		return fmt.Errorf("safety: max command must be positive, got %v", l.MaxCommand)
	}
	if err := l.RateUp.Validate(); err != nil {
		return fmt.Errorf("rate-up: %w", err)
	}
	if err := l.RateDown.Validate(); err != nil {
		return fmt.Errorf("rate-down: %w", err)
	}
	return nil
}
