package safety

import (
	"errors"
	"fmt"
)

// TxMessage is one entry of the outgoing-message allowlist.
type TxMessage struct {
	ID     uint32
	Bus    uint8
	Length int
}

// CommandLayout declares where the steering command and its active flag
// live inside the allowlisted TX frame, as big-endian bit fields.
type CommandLayout struct {
	ID uint32

	ValueStart  int
	ValueWidth  int
	ValueSigned bool

	ActiveStart int
	ActiveWidth int
	// ActiveValue is the field value that means "actively steering".
	ActiveValue uint32
}

// Profile is the static per-vehicle configuration the generic engine is
// parameterized by. A profile is data, not behavior: it selects what the
// watchdog monitors, how state is decoded, which commands are validated
// and how frames are spliced, without changing any engine logic.
type Profile struct {
	Name string

	// Bus roles.
	MainBus uint8
	AdasBus uint8
	CamBus  uint8

	// Monitored is the watchdog's fixed monitored set.
	Monitored []MonitoredMessage

	// StockIDs are the reserved stock-actuator identifiers, suppressed on
	// the main bus and used for stock-controller detection.
	StockIDs []uint32

	// TxAllowlist enumerates the outgoing identifiers subject to safety
	// checks. All other outgoing identifiers pass unchecked.
	TxAllowlist []TxMessage

	// Signals is the decode table feeding VehicleState.
	Signals []SignalRule

	// Limits bound the steering command carried by Command.
	Limits  SteeringLimits
	Command CommandLayout

	// Inactive selects the neutral-command rule while not actively steering.
	Inactive InactivePolicy

	// WatchdogTolerance is the number of expected periods a monitored
	// message may miss before it is considered stale.
	WatchdogTolerance float64
}

// ErrBadProfile marks configuration faults that must fail closed at init.
var ErrBadProfile = errors.New("safety: invalid vehicle profile")

// Validate checks the profile for configuration faults. The engine
// refuses to start on any error here.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: missing name", ErrBadProfile)
	}
	if len(p.Monitored) == 0 {
		return fmt.Errorf("%w: empty monitored set", ErrBadProfile)
	}
	for _, m := range p.Monitored {
		if m.FrequencyHz <= 0 {
			return fmt.Errorf("%w: monitored message %d has non-positive frequency", ErrBadProfile, m.ID)
		}
	}
	if len(p.TxAllowlist) == 0 {
		return fmt.Errorf("%w: empty tx allowlist", ErrBadProfile)
	}
	if err := p.Limits.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrBadProfile, err)
	}
	if p.Command.ValueWidth <= 0 || p.Command.ValueWidth > 32 {
		return fmt.Errorf("%w: command value width %d out of range", ErrBadProfile, p.Command.ValueWidth)
	}
	allowed := false
	for _, m := range p.TxAllowlist {
		if m.ID == p.Command.ID {
			allowed = true
		}
	}
	if !allowed {
		return fmt.Errorf("%w: command message %d not in tx allowlist", ErrBadProfile, p.Command.ID)
	}
	if p.WatchdogTolerance <= 0 {
		return fmt.Errorf("%w: watchdog tolerance must be positive", ErrBadProfile)
	}
	return nil
}
