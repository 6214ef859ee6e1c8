// Package cli implements the licensectl command-line interface using Cobra.
// It covers the issuer side (key generation and signing) and the host side
// (fingerprint, verification, status and the status API server).
package cli

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"licensegate/pkg/contracts"
)

// NewRootCmd builds the licensectl command tree
func NewRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "licensectl",
		Short: "Issue, verify and enforce licensegate licenses",
		Long: `licensectl manages licenses bound to a product and a device.

Issuers generate an Ed25519 key pair once and sign license documents with
the private key. Hosts embed the public key, report their device
fingerprint, and verify or serve the installed license against a clock
that resists rollback.`,
		Version:      contracts.GetFullVersionString(),
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newKeygenCmd(),
		newSignCmd(),
		newVerifyCmd(),
		newFingerprintCmd(),
		newStatusCmd(),
		newServeCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readKeyArg returns the key text from a file path or, if no such file
// exists, the argument itself.
func readKeyArg(arg string) (string, error) {
	if data, err := os.ReadFile(arg); err == nil {
		return strings.TrimSpace(string(data)), nil
	} else if !os.IsNotExist(err) {
		return "", err
	}
	return arg, nil
}
