package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

var _ IOptions = (*CanOptions)(nil)

// CanOptions contains configuration for the vehicle's CAN segments and the
// safety engine bound to them.
type CanOptions struct {
	// Profile selects the vehicle safety profile. Unknown names fail closed.
	Profile string `json:"profile" mapstructure:"profile"`

	// MainInterface, AdasInterface and CamInterface name the SocketCAN
	// interfaces wired to the respective physical segments.
	MainInterface string `json:"main-interface" mapstructure:"main-interface"`
	AdasInterface string `json:"adas-interface" mapstructure:"adas-interface"`
	CamInterface  string `json:"cam-interface" mapstructure:"cam-interface"`

	// CycleRateHz is the control-cycle rate driving the watchdog check.
	CycleRateHz int `json:"cycle-rate-hz" mapstructure:"cycle-rate-hz"`

	// Enforce controls whether a failed outgoing-command check actually
	// suppresses transmission. When false the check is advisory: the
	// violation is logged and counted but the frame is still sent.
	Enforce bool `json:"enforce" mapstructure:"enforce"`

	// VehicleID identifies this vehicle in published topics and diagnostics.
	VehicleID string `json:"vehicle-id" mapstructure:"vehicle-id"`
}

// NewCanOptions creates a CanOptions object with default parameters.
func NewCanOptions() *CanOptions {
	return &CanOptions{
		Profile:       "psa",
		MainInterface: "can0",
		AdasInterface: "can1",
		CamInterface:  "can2",
		CycleRateHz:   100,
		Enforce:       true,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *CanOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if o.Profile == "" {
		errors = append(errors, fmt.Errorf("can.profile is required"))
	}
	if o.CycleRateHz <= 0 {
		errors = append(errors, fmt.Errorf("can.cycle-rate-hz must be positive, got %d", o.CycleRateHz))
	}

	return errors
}

// AddFlags adds flags for CanOptions to the specified FlagSet.
func (o *CanOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Profile, "can.profile", o.Profile, "The vehicle safety profile to load.")
	fs.StringVar(&o.MainInterface, "can.main-interface", o.MainInterface, "SocketCAN interface wired to the main bus.")
	fs.StringVar(&o.AdasInterface, "can.adas-interface", o.AdasInterface, "SocketCAN interface wired to the ADAS bus.")
	fs.StringVar(&o.CamInterface, "can.cam-interface", o.CamInterface, "SocketCAN interface wired to the camera bus.")
	fs.IntVar(&o.CycleRateHz, "can.cycle-rate-hz", o.CycleRateHz, "Control cycle rate in Hz for the watchdog check.")
	fs.BoolVar(&o.Enforce, "can.enforce", o.Enforce, "If false, outgoing-command checks are advisory only.")
	fs.StringVar(&o.VehicleID, "can.vehicle-id", o.VehicleID, "Vehicle identifier used in topics and diagnostics.")
}
