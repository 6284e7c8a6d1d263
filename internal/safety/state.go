package safety

// VehicleState is the small set of derived signals the safety checks and
// the external arbitration consume. Single writer (the Tracker), read by
// snapshot.
type VehicleState struct {
	BrakePressed  bool    `json:"brakePressed"`
	GasPressed    bool    `json:"gasPressed"`
	Moving        bool    `json:"moving"`
	Speed         float64 `json:"speed"`
	CruiseEngaged bool    `json:"cruiseEngaged"`
}

// StateField names the VehicleState field a signal rule writes to.
type StateField int

const (
	FieldBrake StateField = iota
	FieldGas
	FieldSpeed
	FieldCruise
)

// ExtractKind selects how a signal is pulled out of the payload. Rules are
// declared as data in the vehicle profile, never hand-rolled per call site.
type ExtractKind int

const (
	// ExtractBit reads a single payload bit (big-endian numbering).
	ExtractBit ExtractKind = iota
	// ExtractByteAbove reads one byte and compares it against a threshold;
	// the signal is true when the byte is strictly greater.
	ExtractByteAbove
	// ExtractBEUint16 reads a big-endian 16-bit value and applies a linear
	// scale. Only meaningful for FieldSpeed.
	ExtractBEUint16
)

// SignalRule maps one (bus, identifier) pair to a VehicleState field.
type SignalRule struct {
	Bus uint8
	ID  uint32

	Field StateField
	Kind  ExtractKind

	Bit       int     // ExtractBit: bit position
	Byte      int     // ExtractByteAbove / ExtractBEUint16: first byte
	Threshold byte    // ExtractByteAbove
	Scale     float64 // ExtractBEUint16: raw units -> physical units
}

// Tracker applies the profile's decode table to inbound frames and owns
// the resulting VehicleState.
type Tracker struct {
	rules []SignalRule
	state VehicleState
}

// NewTracker creates a tracker with zeroed state over the given decode table.
func NewTracker(rules []SignalRule) *Tracker {
	return &Tracker{rules: rules}
}

// OnFrame dispatches the frame against the decode table and updates the
// state. It reports whether any field changed. Frames with no matching
// rule are ignored; the frame itself is never mutated.
func (t *Tracker) OnFrame(f Frame) bool {
	prev := t.state
	for _, r := range t.rules {
		if r.Bus != f.Bus || r.ID != f.ID {
			continue
		}
		t.apply(r, f)
	}
	return t.state != prev
}

func (t *Tracker) apply(r SignalRule, f Frame) {
	switch r.Field {
	case FieldBrake:
		t.state.BrakePressed = t.boolSignal(r, f)
	case FieldGas:
		t.state.GasPressed = t.boolSignal(r, f)
	case FieldCruise:
		t.state.CruiseEngaged = t.boolSignal(r, f)
	case FieldSpeed:
		if r.Kind != ExtractBEUint16 {
			return
		}
		speed := float64(f.BEUint16(r.Byte)) * r.Scale
		t.state.Speed = speed
		// Moving is derived at the moment of decode, not filtered.
		t.state.Moving = speed > 0
	}
}

func (t *Tracker) boolSignal(r SignalRule, f Frame) bool {
	switch r.Kind {
	case ExtractBit:
		return f.Bit(r.Bit)
	case ExtractByteAbove:
		return f.Byte(r.Byte) > r.Threshold
	default:
		return false
	}
}

// State returns the current VehicleState snapshot.
func (t *Tracker) State() VehicleState {
	return t.state
}
