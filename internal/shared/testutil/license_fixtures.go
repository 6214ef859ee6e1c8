package testutil

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"licensegate/internal/license"
)

// Default fixture identity
const (
	Product = "acme-desktop"
	Device  = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
)

// StaticFingerprint is a fixed device fingerprint
type StaticFingerprint string

func (s StaticFingerprint) Fingerprint() string { return string(s) }

// LicenseFixtures issues licenses with a throwaway issuer key
type LicenseFixtures struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// NewLicenseFixtures generates a fresh issuer key pair
func NewLicenseFixtures(t *testing.T) *LicenseFixtures {
	t.Helper()
	pub, priv, err := license.GenerateKeyPair(nil)
	require.NoError(t, err)
	return &LicenseFixtures{Public: pub, Private: priv}
}

// PublicKey returns the issuer key in configuration form
func (f *LicenseFixtures) PublicKey() string { return license.EncodePublicKey(f.Public) }

// Claims returns claims for Product and Device
func (f *LicenseFixtures) Claims(expiry string, features ...string) license.Claims {
	return license.Claims{
		Product:   Product,
		LicenseID: "L-2026-0042",
		Customer:  "Example Ltd",
		Device:    Device,
		Expiry:    expiry,
		Features:  features,
	}
}

// Sign returns the signed document as written to disk
func (f *LicenseFixtures) Sign(t *testing.T, claims license.Claims) []byte {
	t.Helper()
	doc, err := license.Sign(claims.Document(), f.Private)
	require.NoError(t, err)
	data, err := doc.Marshal()
	require.NoError(t, err)
	return data
}

// Info validates claims against Product and Device using the system clock
func (f *LicenseFixtures) Info(t *testing.T, claims license.Claims) *license.Info {
	t.Helper()
	doc, err := license.ParseDocument(f.Sign(t, claims))
	require.NoError(t, err)
	info, err := license.NewValidator(Product, f.Public, StaticFingerprint(Device), nil).Validate(doc)
	require.NoError(t, err)
	return info
}

// WriteLicense signs claims and writes them to path
func (f *LicenseFixtures) WriteLicense(t *testing.T, path string, claims license.Claims) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, f.Sign(t, claims), 0600))
}
