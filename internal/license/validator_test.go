package license

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "licensegate/internal/errors"
)

func TestValidate(t *testing.T) {
	pub, priv := testKeys(t)
	otherPub, _ := testKeys(t)

	signedWith := func(mutate func(Document)) Document {
		doc := testClaims().Document()
		if mutate != nil {
			mutate(doc)
		}
		return signDoc(t, doc, priv)
	}
	alteredAfterSigning := func(mutate func(Document)) Document {
		doc := signDoc(t, testClaims().Document(), priv)
		mutate(doc)
		return doc
	}
	today := testNow.Format(ExpiryLayout)

	tests := []struct {
		name    string
		doc     Document
		key     []byte
		tamper  string
		wantErr error
	}{
		{name: "valid", doc: signedWith(nil)},
		{name: "expires today", doc: signedWith(func(d Document) { d[FieldExpiry] = today })},
		{name: "expires tomorrow", doc: signedWith(func(d Document) { d[FieldExpiry] = testNow.AddDate(0, 0, 1).Format(ExpiryLayout) })},
		{
			name:    "expired yesterday",
			doc:     signedWith(func(d Document) { d[FieldExpiry] = testNow.AddDate(0, 0, -1).Format(ExpiryLayout) }),
			wantErr: apperrors.ErrLicenseExpired,
		},
		{name: "nil document", doc: nil, wantErr: apperrors.ErrMalformedLicense},
		{
			name:    "signature missing",
			doc:     testClaims().Document(),
			wantErr: apperrors.ErrMalformedLicense,
		},
		{
			name:    "signature not a string",
			doc:     alteredAfterSigning(func(d Document) { d[FieldSignature] = 42 }),
			wantErr: apperrors.ErrMalformedLicense,
		},
		{
			name:    "signature not base64",
			doc:     alteredAfterSigning(func(d Document) { d[FieldSignature] = "%%%not-base64%%%" }),
			wantErr: apperrors.ErrMalformedLicense,
		},
		{
			name:    "malformed wins over product",
			doc:     Document{FieldProduct: "other"},
			wantErr: apperrors.ErrMalformedLicense,
		},
		{
			name:    "other product",
			doc:     signedWith(func(d Document) { d[FieldProduct] = "other-product" }),
			wantErr: apperrors.ErrProductMismatch,
		},
		{
			name:    "product altered",
			doc:     alteredAfterSigning(func(d Document) { d[FieldProduct] = "other-product" }),
			wantErr: apperrors.ErrProductMismatch,
		},
		{
			name:    "wrong issuer key",
			doc:     signedWith(nil),
			key:     otherPub,
			wantErr: apperrors.ErrSignatureInvalid,
		},
		{
			name:    "truncated signature",
			doc:     alteredAfterSigning(func(d Document) { d[FieldSignature] = base64.StdEncoding.EncodeToString([]byte("short")) }),
			wantErr: apperrors.ErrSignatureInvalid,
		},
		{
			name:    "device altered before device check",
			doc:     alteredAfterSigning(func(d Document) { d[FieldDevice] = "0000" }),
			wantErr: apperrors.ErrSignatureInvalid,
		},
		{
			name:    "other device",
			doc:     signedWith(func(d Document) { d[FieldDevice] = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" }),
			wantErr: apperrors.ErrDeviceMismatch,
		},
		{
			name:    "expiry not a date",
			doc:     signedWith(func(d Document) { d[FieldExpiry] = "31/01/2027" }),
			wantErr: apperrors.ErrExpiryFormatInvalid,
		},
		{
			name:    "expiry impossible month",
			doc:     signedWith(func(d Document) { d[FieldExpiry] = "2027-13-01" }),
			wantErr: apperrors.ErrExpiryFormatInvalid,
		},
		{
			name:    "features not a list",
			doc:     signedWith(func(d Document) { d[FieldFeatures] = "export" }),
			wantErr: apperrors.ErrMalformedLicense,
		},
		{
			name:    "tampered clock",
			doc:     signedWith(nil),
			tamper:  "system clock moved backward",
			wantErr: apperrors.ErrClockTampered,
		},
		{
			name:    "tamper reported before expiry",
			doc:     signedWith(func(d Document) { d[FieldExpiry] = "2020-01-01" }),
			tamper:  "persisted evidence erased",
			wantErr: apperrors.ErrClockTampered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := pub
			if tt.key != nil {
				key = tt.key
			}
			v := NewValidator(testProduct, key, fixedDevice(testDevice), &fakeClock{now: testNow, tampered: tt.tamper})

			info, err := v.Validate(tt.doc)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, info)
				var le *apperrors.LicenseError
				assert.ErrorAs(t, err, &le)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, info)
			assert.Equal(t, testProduct, info.Product())
		})
	}
}

func TestValidateRejectsEveryAlteredField(t *testing.T) {
	pub, priv := testKeys(t)
	v := NewValidator(testProduct, pub, fixedDevice(testDevice), &fakeClock{now: testNow})

	alterations := map[string]interface{}{
		FieldLicenseID: "L-2026-9999",
		FieldCustomer:  "Someone Else",
		FieldExpiry:    "2099-12-31",
		FieldFeatures:  []interface{}{"export", "reports", "admin"},
		"extra":        "added field",
	}

	for field, value := range alterations {
		t.Run(field, func(t *testing.T) {
			doc := signDoc(t, testClaims().Document(), priv)
			doc[field] = value
			_, err := v.Validate(doc)
			assert.ErrorIs(t, err, apperrors.ErrSignatureInvalid)
		})
	}

	t.Run("removed field", func(t *testing.T) {
		doc := signDoc(t, testClaims().Document(), priv)
		delete(doc, FieldFeatures)
		_, err := v.Validate(doc)
		assert.ErrorIs(t, err, apperrors.ErrSignatureInvalid)
	})
}

func TestInfo(t *testing.T) {
	pub, priv := testKeys(t)
	v := NewValidator(testProduct, pub, fixedDevice(testDevice), &fakeClock{now: testNow})

	info, err := v.Validate(signDoc(t, testClaims().Document(), priv))
	require.NoError(t, err)

	assert.Equal(t, "L-2026-0042", info.LicenseID())
	assert.Equal(t, "Société Générale d'Exemple", info.Customer())
	assert.Equal(t, testDevice, info.Device())
	assert.Equal(t, "2027-01-31", info.ExpiryString())
	assert.Equal(t, time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC), info.Expiry())
	assert.True(t, info.HasFeature("export"))
	assert.False(t, info.HasFeature("admin"))

	features := info.Features()
	features[0] = "changed"
	assert.Equal(t, []string{"export", "reports"}, info.Features())

	assert.Equal(t, 0, info.DaysRemaining(time.Date(2027, 1, 31, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, info.DaysRemaining(time.Date(2027, 1, 30, 0, 0, 1, 0, time.UTC)))
}

func TestValidateUsesUTCDate(t *testing.T) {
	pub, priv := testKeys(t)
	doc := signDoc(t, testClaims().Document(), priv)

	// 2027-02-01 00:30 at UTC+2 is still 2027-01-31 in UTC.
	east := time.FixedZone("UTC+2", 2*60*60)
	v := NewValidator(testProduct, pub, fixedDevice(testDevice), &fakeClock{now: time.Date(2027, 2, 1, 1, 30, 0, 0, east)})
	_, err := v.Validate(doc)
	assert.NoError(t, err)

	v = NewValidator(testProduct, pub, fixedDevice(testDevice), &fakeClock{now: time.Date(2027, 2, 1, 2, 30, 0, 0, east)})
	_, err = v.Validate(doc)
	assert.ErrorIs(t, err, apperrors.ErrLicenseExpired)
}
