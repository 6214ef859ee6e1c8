package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"licensegate/internal/license"
)

type keygenOutput struct {
	PublicKey      string `json:"public_key"`
	PrivateKey     string `json:"private_key,omitempty"`
	PublicKeyFile  string `json:"public_key_file,omitempty"`
	PrivateKeyFile string `json:"private_key_file,omitempty"`
}

func newKeygenCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an issuer key pair",
		Long: `Generate a new Ed25519 issuer key pair.

With --out-dir the keys are written to issuer.key (mode 0600) and
issuer.pub; otherwise both are printed. The public key goes into the host
configuration as license.public_key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := license.GenerateKeyPair(nil)
			if err != nil {
				return err
			}

			out := keygenOutput{PublicKey: license.EncodePublicKey(pub)}
			if outDir == "" {
				out.PrivateKey = license.EncodePrivateKey(priv)
				return writeJSON(cmd.OutOrStdout(), out)
			}

			if err := os.MkdirAll(outDir, 0700); err != nil {
				return fmt.Errorf("creating %s: %w", outDir, err)
			}
			out.PrivateKeyFile = filepath.Join(outDir, "issuer.key")
			out.PublicKeyFile = filepath.Join(outDir, "issuer.pub")

			if _, err := os.Stat(out.PrivateKeyFile); err == nil {
				return fmt.Errorf("%s already exists", out.PrivateKeyFile)
			}
			if err := os.WriteFile(out.PrivateKeyFile, []byte(license.EncodePrivateKey(priv)+"\n"), 0600); err != nil {
				return fmt.Errorf("writing private key: %w", err)
			}
			if err := os.WriteFile(out.PublicKeyFile, []byte(out.PublicKey+"\n"), 0644); err != nil {
				return fmt.Errorf("writing public key: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Directory to write issuer.key and issuer.pub to")
	return cmd
}
