package profile

import (
	"github.com/cangate-io/cangate/internal/safety"
)

// Safety-relevant CAN messages for PSA vehicles.
const (
	psaDriver         = 1390 // RX from BSI, gas pedal
	psaDatBSI         = 1042 // RX from BSI, doors and brake
	psaLaneKeepAssist = 1010 // TX, LKAS EPS command

	// Messages on the ADAS bus.
	psaDynABR    = 909  // wheel speed
	psaDatMDDCmd = 1106 // cruise state
)

// PSA bus numbers.
const (
	psaMainBus = 0
	psaAdasBus = 1
	psaCamBus  = 2
)

func init() {
	Register(&safety.Profile{
		Name: "psa",

		MainBus: psaMainBus,
		AdasBus: psaAdasBus,
		CamBus:  psaCamBus,

		Monitored: []safety.MonitoredMessage{
			// TODO: counters and checksums
			{ID: psaDriver, Bus: psaMainBus, Length: 6, FrequencyHz: 10},
			{ID: psaDatBSI, Bus: psaMainBus, Length: 8, FrequencyHz: 20},
			{ID: psaDynABR, Bus: psaAdasBus, Length: 8, FrequencyHz: 25},
			{ID: psaDatMDDCmd, Bus: psaAdasBus, Length: 6, FrequencyHz: 20},
		},

		StockIDs: []uint32{psaLaneKeepAssist},

		TxAllowlist: []safety.TxMessage{
			{ID: psaLaneKeepAssist, Bus: psaCamBus, Length: 8},
		},

		Signals: []safety.SignalRule{
			// Signal: P013_MainBrake, byte 0 mask 0x20.
			{Bus: psaMainBus, ID: psaDatBSI, Field: safety.FieldBrake, Kind: safety.ExtractBit, Bit: 2},
			// Signal: GAS_PEDAL
			{Bus: psaMainBus, ID: psaDriver, Field: safety.FieldGas, Kind: safety.ExtractByteAbove, Byte: 3, Threshold: 0},
			// Signal: VITESSE_VEHICULE_ROUES
			{Bus: psaAdasBus, ID: psaDynABR, Field: safety.FieldSpeed, Kind: safety.ExtractBEUint16, Byte: 0, Scale: 0.01},
			// Signal: DDE_ACTIVATION_RVV_ACC, byte 2 mask 0x80.
			{Bus: psaAdasBus, ID: psaDatMDDCmd, Field: safety.FieldCruise, Kind: safety.ExtractBit, Bit: 16},
		},

		Limits: safety.SteeringLimits{
			MaxCommand:    3900, // 390 degrees at 10 counts/degree
			CommandToUnit: 10,
			RateUp: safety.Curve{
				{Speed: 0, Value: 10},
				{Speed: 5, Value: 1.6},
				{Speed: 15, Value: 0.30},
			},
			RateDown: safety.Curve{
				{Speed: 0, Value: 10},
				{Speed: 5, Value: 7.0},
				{Speed: 15, Value: 0.8},
			},
		},

		Command: safety.CommandLayout{
			ID: psaLaneKeepAssist,
			// Signal: ANGLE, 14-bit signed spanning bytes 6-7.
			ValueStart:  48,
			ValueWidth:  14,
			ValueSigned: true,
			// Signal: STATUS, active when the 2-bit field equals 2.
			ActiveStart: 35,
			ActiveWidth: 2,
			ActiveValue: 2,
		},

		Inactive: safety.InactiveZero,

		WatchdogTolerance: 10,
	})
}
