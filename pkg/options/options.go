package options

import (
	"fmt"
	"net"

	"github.com/spf13/pflag"
)

// IOptions defines methods to implement a generic options group.
type IOptions interface {
	// Validate validates all the required options and returns the
	// aggregated errors, if any.
	Validate() []error

	// AddFlags adds flags related to the given options group to the
	// specified FlagSet.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// ValidateAddress takes an address as a string and validates it as a
// "host:port" endpoint.
func ValidateAddress(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%q is not a valid address: %w", addr, err)
	}

	if host != "" {
		if ip := net.ParseIP(host); ip == nil {
			// Allow hostnames, but reject obviously empty segments.
			if host == "" {
				return fmt.Errorf("%q contains an invalid host", addr)
			}
		}
	}
	if port == "" {
		return fmt.Errorf("%q is missing a port", addr)
	}

	return nil
}
