package license

import (
	"context"
	"crypto/ed25519"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "licensegate/internal/errors"
	"licensegate/pkg/contracts/domain"
)

const (
	testProduct = "acme-desktop"
	testDevice  = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
)

var testNow = time.Date(2026, 6, 15, 13, 45, 0, 0, time.UTC)

type fixedDevice string

func (f fixedDevice) Fingerprint() string { return string(f) }

// fakeClock implements ClockGuard.
type fakeClock struct {
	now          time.Time
	tampered     string
	bootstrapErr error
	bootstraps   int
	required     bool
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) TamperError() error {
	if c.tampered == "" {
		return nil
	}
	return apperrors.NewLicenseError("clock", apperrors.ErrClockTampered, c.tampered)
}

func (c *fakeClock) Bootstrap(_ context.Context, requireNetwork bool) error {
	c.bootstraps++
	c.required = requireNetwork
	if c.bootstrapErr != nil {
		return c.bootstrapErr
	}
	return c.TamperError()
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.GuardEvent
}

func (r *recordingNotifier) Notify(_ context.Context, e domain.GuardEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func testKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := GenerateKeyPair(nil)
	require.NoError(t, err)
	return pub, priv
}

func testClaims() Claims {
	return Claims{
		Product:   testProduct,
		LicenseID: "L-2026-0042",
		Customer:  "Société Générale d'Exemple",
		Device:    testDevice,
		Expiry:    "2027-01-31",
		Features:  []string{"export", "reports"},
	}
}

func signDoc(t *testing.T, doc Document, priv ed25519.PrivateKey) Document {
	t.Helper()
	signed, err := Sign(doc, priv)
	require.NoError(t, err)
	return signed
}
