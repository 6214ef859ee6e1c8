package cli

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"licensegate/internal/license"
)

func newSignCmd() *cobra.Command {
	var (
		keyArg string
		output string
		claims license.Claims
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Issue a signed license",
		Long: `Issue a license for one product and device, signed with the issuer
private key. --key accepts a key file written by keygen or the base64 key
itself. The device is the fingerprint reported by "licensectl fingerprint"
on the target machine.`,
		Example: `  licensectl sign --key issuer.key --product acme-desktop \
    --id L-2026-0042 --customer "Example Ltd" \
    --device 9f86d0...0a08 --expiry 2027-01-31 \
    --feature export --feature reports -o license.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validator.New().Struct(claims); err != nil {
				return fmt.Errorf("invalid license claims: %w", err)
			}

			keyText, err := readKeyArg(keyArg)
			if err != nil {
				return fmt.Errorf("reading issuer key: %w", err)
			}
			priv, err := license.ParsePrivateKey(keyText)
			if err != nil {
				return err
			}

			doc, err := license.Sign(claims.Document(), priv)
			if err != nil {
				return err
			}
			data, err := doc.Marshal()
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("writing license: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "License %s written to %s\n", claims.LicenseID, output)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&keyArg, "key", "", "Issuer private key file or base64 seed")
	f.StringVarP(&output, "output", "o", "", "Write the license to this file instead of stdout")
	f.StringVar(&claims.Product, "product", "", "Product identifier")
	f.StringVar(&claims.LicenseID, "id", "", "License identifier")
	f.StringVar(&claims.Customer, "customer", "", "Customer name")
	f.StringVar(&claims.Device, "device", "", "Device fingerprint (hex)")
	f.StringVar(&claims.Expiry, "expiry", "", "Last valid day, YYYY-MM-DD")
	f.StringArrayVar(&claims.Features, "feature", nil, "Licensed feature (repeatable)")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}
