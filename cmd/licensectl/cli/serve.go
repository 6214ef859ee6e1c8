package cli

import (
	"github.com/spf13/cobra"

	"licensegate/internal/app"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the license status API",
		Long: `Run the HTTP status API and websocket feed. Configuration comes from
licensegate.yaml and LICENSEGATE_* environment variables. The server stops
on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := app.NewApplication()
			if err != nil {
				return err
			}
			return application.Run()
		},
	}
}
