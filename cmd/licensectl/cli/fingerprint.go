package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"licensegate/internal/security"
)

func newFingerprintCmd() *cobra.Command {
	var details bool

	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print this machine's device fingerprint",
		Long: `Print the device fingerprint a license must be bound to. Send it to the
issuer when requesting a license. --details also shows the identifiers it
was derived from and whether a fallback was used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fm := security.NewFingerprintManager()
			if details {
				return writeJSON(cmd.OutOrStdout(), fm.Details())
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), fm.Fingerprint())
			return err
		},
	}
	cmd.Flags().BoolVar(&details, "details", false, "Show the fingerprint components")
	return cmd
}
