package app

import (
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/cangate-io/cangate/internal/safety/profile"
)

// newProfilesCommand lists the compiled-in vehicle safety profiles.
func newProfilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the available vehicle safety profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			table := uitable.New()
			table.AddRow("NAME", "MONITORED", "TX IDS", "MAX CMD", "RATE UP", "RATE DOWN", "TOLERANCE")

			for _, name := range profile.Names() {
				p, err := profile.Lookup(name)
				if err != nil {
					return err
				}
				table.AddRow(
					p.Name,
					len(p.Monitored),
					len(p.TxAllowlist),
					fmt.Sprintf("%.1f", p.Limits.MaxCommand),
					len(p.Limits.RateUp),
					len(p.Limits.RateDown),
					fmt.Sprintf("%.0f periods", p.WatchdogTolerance),
				)
			}

			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}
