package safety

import (
	"testing"
)

var testSignals = []SignalRule{
	{Bus: 2, ID: 1042, Field: FieldBrake, Kind: ExtractBit, Bit: 2},
	{Bus: 2, ID: 1390, Field: FieldGas, Kind: ExtractByteAbove, Byte: 3, Threshold: 0},
	{Bus: 1, ID: 909, Field: FieldSpeed, Kind: ExtractBEUint16, Byte: 0, Scale: 0.01},
	{Bus: 1, ID: 1106, Field: FieldCruise, Kind: ExtractBit, Bit: 16},
}

func TestTrackerSpeedDecode(t *testing.T) {
	tr := NewTracker(testSignals)

	// Raw big-endian 100 at scale 0.01 yields 1.0 and a moving vehicle.
	changed := tr.OnFrame(Frame{Bus: 1, ID: 909, Data: []byte{0x00, 0x64, 0, 0, 0, 0, 0, 0}})
	if !changed {
		t.Fatal("speed frame reported no change")
	}

	st := tr.State()
	if st.Speed != 1.0 {
		t.Errorf("Speed = %v, want 1.0", st.Speed)
	}
	if !st.Moving {
		t.Error("Moving = false, want true at speed 1.0")
	}

	// Zero speed clears Moving at the moment of decode.
	tr.OnFrame(Frame{Bus: 1, ID: 909, Data: []byte{0x00, 0x00, 0, 0, 0, 0, 0, 0}})
	if st = tr.State(); st.Moving {
		t.Error("Moving = true after zero-speed frame")
	}
}

func TestTrackerBooleanSignals(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		check func(VehicleState) bool
	}{
		{
			name:  "brake bit set",
			frame: Frame{Bus: 2, ID: 1042, Data: []byte{0x20, 0, 0, 0, 0, 0, 0, 0}},
			check: func(s VehicleState) bool { return s.BrakePressed },
		},
		{
			name:  "gas pedal byte above threshold",
			frame: Frame{Bus: 2, ID: 1390, Data: []byte{0, 0, 0, 0x20, 0, 0}},
			check: func(s VehicleState) bool { return s.GasPressed },
		},
		{
			name:  "cruise bit set",
			frame: Frame{Bus: 1, ID: 1106, Data: []byte{0, 0, 0x80, 0, 0, 0}},
			check: func(s VehicleState) bool { return s.CruiseEngaged },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(testSignals)
			tr.OnFrame(tt.frame)
			if !tt.check(tr.State()) {
				t.Errorf("signal not set by frame %+v", tt.frame)
			}
		})
	}
}

func TestTrackerIgnoresUnmatchedFrames(t *testing.T) {
	tr := NewTracker(testSignals)

	// Right identifier, wrong bus: the decode table keys on both.
	if changed := tr.OnFrame(Frame{Bus: 0, ID: 909, Data: []byte{0x00, 0x64}}); changed {
		t.Error("frame on wrong bus updated state")
	}
	if changed := tr.OnFrame(Frame{Bus: 1, ID: 4095, Data: []byte{0xFF}}); changed {
		t.Error("unknown identifier updated state")
	}
	if st := tr.State(); st != (VehicleState{}) {
		t.Errorf("state mutated by unmatched frames: %+v", st)
	}
}
