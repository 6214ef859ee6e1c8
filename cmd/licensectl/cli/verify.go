package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"licensegate/internal/config"
	"licensegate/internal/license"
	"licensegate/internal/security"
)

type staticFingerprint string

func (s staticFingerprint) Fingerprint() string { return string(s) }

// errInvalid is returned after the status has been printed, so the
// process exits non-zero without a second message.
var errInvalid = errors.New("license is not valid")

func newVerifyCmd() *cobra.Command {
	var (
		productID string
		keyArg    string
		device    string
	)

	cmd := &cobra.Command{
		Use:   "verify <license-file>",
		Short: "Verify a license file without installing it",
		Long: `Verify a license document against a product, an issuer public key and
a device. Product and key default to the host configuration; the device
defaults to this machine's fingerprint. Expiry is judged by the system
clock; use "licensectl status" for the trusted clock.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				cfg = config.Default()
			}
			if productID == "" {
				productID = cfg.License.ProductID
			}
			if keyArg == "" {
				keyArg = cfg.License.PublicKey
			}
			if keyArg == "" {
				return fmt.Errorf("no issuer public key: pass --public-key or set %s_LICENSE_PUBLIC_KEY", config.EnvPrefix)
			}

			keyText, err := readKeyArg(keyArg)
			if err != nil {
				return fmt.Errorf("reading public key: %w", err)
			}
			pub, err := license.ParsePublicKey(keyText)
			if err != nil {
				return err
			}

			var fp license.FingerprintSource = staticFingerprint(device)
			if device == "" {
				fp = security.NewFingerprintManager()
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading license: %w", err)
			}

			doc, verr := license.ParseDocument(data)
			var result *license.Info
			if verr == nil {
				result, verr = license.NewValidator(productID, pub, fp, nil).Validate(doc)
			}

			if err := writeJSON(cmd.OutOrStdout(), license.StatusFrom(result, verr, time.Now())); err != nil {
				return err
			}
			if verr != nil {
				cmd.SilenceErrors = true
				return errInvalid
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&productID, "product", "", "Expected product identifier")
	f.StringVar(&keyArg, "public-key", "", "Issuer public key file or base64 key")
	f.StringVar(&device, "device", "", "Device fingerprint to check against instead of this machine")
	return cmd
}
