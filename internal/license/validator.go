package license

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"slices"
	"time"

	apperrors "licensegate/internal/errors"
	"licensegate/internal/security"
)

// TrustedClock supplies the current date and the tamper state.
type TrustedClock interface {
	Now() time.Time
	TamperError() error
}

// FingerprintSource supplies the current device fingerprint.
type FingerprintSource interface {
	Fingerprint() string
}

type systemClock struct{}

func (systemClock) Now() time.Time     { return time.Now() }
func (systemClock) TamperError() error { return nil }

// Info is a validated license. It can only be obtained from Validate.
type Info struct {
	product   string
	licenseID string
	customer  string
	device    string
	expiry    time.Time
	features  []string
}

func (i *Info) Product() string   { return i.product }
func (i *Info) LicenseID() string { return i.licenseID }
func (i *Info) Customer() string  { return i.customer }
func (i *Info) Device() string    { return i.device }

// Expiry returns the last valid day, at 00:00 UTC.
func (i *Info) Expiry() time.Time { return i.expiry }

// ExpiryString returns the expiry in YYYY-MM-DD form
func (i *Info) ExpiryString() string { return i.expiry.Format(ExpiryLayout) }

// Features returns a copy of the licensed feature names
func (i *Info) Features() []string { return slices.Clone(i.features) }

// HasFeature reports whether name is licensed
func (i *Info) HasFeature(name string) bool { return slices.Contains(i.features, name) }

// DaysRemaining counts whole days from now until the end of the expiry day.
// The expiry day itself counts as 0.
func (i *Info) DaysRemaining(now time.Time) int {
	return int(i.expiry.Sub(utcDate(now)).Hours() / 24)
}

// Validator checks license documents for one product and issuer key.
type Validator struct {
	productID string
	publicKey ed25519.PublicKey
	device    FingerprintSource
	clock     TrustedClock
}

// NewValidator creates a Validator. A nil clock uses the system clock and
// never reports tampering.
func NewValidator(productID string, publicKey ed25519.PublicKey, device FingerprintSource, clock TrustedClock) *Validator {
	if clock == nil {
		clock = systemClock{}
	}
	return &Validator{productID: productID, publicKey: publicKey, device: device, clock: clock}
}

// ProductID returns the product this validator accepts
func (v *Validator) ProductID() string { return v.productID }

// Validate checks doc and returns its validated content. Failures are
// *errors.LicenseError values, reported in this order: malformed document,
// product mismatch, bad signature, device mismatch, bad expiry format,
// clock tampering, expiry. No field other than product is interpreted
// before the signature verifies.
func (v *Validator) Validate(doc Document) (*Info, error) {
	const op = "license.validate"

	if doc == nil {
		return nil, apperrors.NewLicenseError(op, apperrors.ErrMalformedLicense, "document is empty")
	}
	rawSig, present := doc[FieldSignature]
	if !present {
		return nil, apperrors.NewLicenseError(op, apperrors.ErrMalformedLicense, "signature field missing")
	}
	sigText, ok := rawSig.(string)
	if !ok {
		return nil, apperrors.NewLicenseError(op, apperrors.ErrMalformedLicense, "signature is not a string")
	}
	sig, err := base64.StdEncoding.DecodeString(sigText)
	if err != nil {
		return nil, apperrors.NewLicenseError(op, apperrors.ErrMalformedLicense, "signature is not base64")
	}

	if product := doc.String(FieldProduct); product != v.productID {
		return nil, apperrors.NewLicenseError(op, apperrors.ErrProductMismatch,
			fmt.Sprintf("license is for %q", product))
	}

	payload, err := Canonicalize(doc)
	if err != nil {
		return nil, apperrors.Wrap(op, apperrors.ErrMalformedLicense, err)
	}
	if !Verify(payload, sig, v.publicKey) {
		return nil, apperrors.NewLicenseError(op, apperrors.ErrSignatureInvalid, "")
	}

	device := doc.String(FieldDevice)
	if v.device == nil || !security.MatchFingerprint(device, v.device.Fingerprint()) {
		return nil, apperrors.NewLicenseError(op, apperrors.ErrDeviceMismatch, "")
	}

	features, err := stringList(doc[FieldFeatures])
	if err != nil {
		return nil, apperrors.Wrap(op, apperrors.ErrMalformedLicense, err)
	}

	expText := doc.String(FieldExpiry)
	expiry, err := time.Parse(ExpiryLayout, expText)
	if err != nil {
		return nil, apperrors.NewLicenseError(op, apperrors.ErrExpiryFormatInvalid,
			fmt.Sprintf("%q is not a YYYY-MM-DD date", expText))
	}

	if err := v.clock.TamperError(); err != nil {
		return nil, err
	}

	today := utcDate(v.clock.Now())
	if today.After(expiry) {
		return nil, apperrors.NewLicenseError(op, apperrors.ErrLicenseExpired,
			fmt.Sprintf("expired on %s", expText))
	}

	return &Info{
		product:   v.productID,
		licenseID: doc.String(FieldLicenseID),
		customer:  doc.String(FieldCustomer),
		device:    device,
		expiry:    expiry,
		features:  features,
	}, nil
}

func utcDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func stringList(v interface{}) ([]string, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return slices.Clone(x), nil
	case []interface{}:
		out := make([]string, 0, len(x))
		for i, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("feature %d is not a string", i)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("features is not a list")
	}
}
