package safety

import (
	"math"
)

// InactivePolicy defines what counts as the neutral command while the
// actuation flag is inactive.
type InactivePolicy int

const (
	// InactiveZero requires the command to be exactly zero while inactive.
	InactiveZero InactivePolicy = iota
	// InactiveHold requires the command to hold the last accepted value.
	InactiveHold
)

// BlockReason classifies why a command was rejected.
type BlockReason string

const (
	ReasonNone          BlockReason = ""
	ReasonInactive      BlockReason = "inactive-command"
	ReasonAbsoluteLimit BlockReason = "absolute-limit"
	ReasonRateLimit     BlockReason = "rate-limit"
	ReasonAllowlist     BlockReason = "allowlist-mismatch"
)

// Verdict is the outcome of a command check. Violation is always computed;
// Allow additionally reflects the enforce policy, so an advisory-only
// validator reports Allow=true with Violation=true.
type Verdict struct {
	Allow     bool
	Violation bool
	Reason    BlockReason
}

// Validator enforces absolute and speed-dependent rate-of-change bounds on
// outgoing steering commands. It retains only the previous accepted value;
// no further history is required.
//
// A rejected command is never clamped: the caller must drop the entire
// frame, since an altered safety-relevant frame is worse than no frame.
type Validator struct {
	limits  SteeringLimits
	policy  InactivePolicy
	enforce bool

	last float64
}

// NewValidator builds a validator over validated limits.
func NewValidator(limits SteeringLimits, policy InactivePolicy, enforce bool) (*Validator, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &Validator{
		limits:  limits,
		policy:  policy,
		enforce: enforce,
	}, nil
}

// Check validates one requested command against the current vehicle speed.
// On acceptance the command becomes the new reference for the next rate
// check; violations never advance the reference.
func (v *Validator) Check(command float64, active bool, speed float64) Verdict {
	if !active {
		neutral := 0.0
		if v.policy == InactiveHold {
			neutral = v.last
		}
		if command != neutral {
			return v.verdict(ReasonInactive)
		}
		v.last = command
		return Verdict{Allow: true}
	}

	if math.Abs(command) > v.limits.MaxCommand {
		return v.verdict(ReasonAbsoluteLimit)
	}

	delta := command - v.last

	// Magnitude increasing selects the (tighter) ramp-in curve.
	curve := v.limits.RateDown
	if math.Abs(command) > math.Abs(v.last) {
		curve = v.limits.RateUp
	}

	if math.Abs(delta) > curve.Interpolate(speed) {
		return v.verdict(ReasonRateLimit)
	}

	v.last = command
	return Verdict{Allow: true}
}

// verdict folds the enforce policy into a violation outcome.
func (v *Validator) verdict(reason BlockReason) Verdict {
	return Verdict{
		Allow:     !v.enforce,
		Violation: true,
		Reason:    reason,
	}
}

// LastAccepted returns the current reference command value.
func (v *Validator) LastAccepted() float64 {
	return v.last
}
