package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"licensegate/internal/app"
	"licensegate/internal/config"
	"licensegate/pkg/contracts/domain"
)

type statusOutput struct {
	License domain.LicenseStatus `json:"license"`
	Clock   domain.ClockStatus   `json:"clock"`
}

func newStatusCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the installed license against the trusted clock",
		Long: `Bootstrap the trusted clock, check the installed license and print both
states. This performs the same check as the server at startup, including
network time and persisted time evidence. Exits non-zero unless the license
is valid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.Telemetry.MetricsEnabled = false
			cfg.Telemetry.TracingEnabled = false

			application, err := app.New(cfg, slog.Default())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			out := statusOutput{License: application.LicenseManager.Status(ctx)}
			out.Clock = application.Clock.Status()
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if !out.License.Valid {
				cmd.SilenceErrors = true
				return fmt.Errorf("%w: %s", errInvalid, out.License.State)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "Overall time limit for the check")
	return cmd
}
