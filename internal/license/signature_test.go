package license

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	pub, priv := testKeys(t)
	payload := []byte(`{"product":"p"}`)
	sig := ed25519.Sign(priv, payload)

	assert.True(t, Verify(payload, sig, pub))
	assert.False(t, Verify([]byte(`{"product":"q"}`), sig, pub))
	assert.False(t, Verify(payload, sig[:10], pub))
	assert.False(t, Verify(payload, sig, pub[:10]))
	assert.False(t, Verify(payload, nil, nil))

	flipped := append([]byte(nil), sig...)
	flipped[0] ^= 0x01
	assert.False(t, Verify(payload, flipped, pub))
}

func TestSignReplacesSignature(t *testing.T) {
	pub, priv := testKeys(t)
	doc := testClaims().Document()
	doc[FieldSignature] = "stale"

	signed, err := Sign(doc, priv)
	require.NoError(t, err)
	assert.NotEqual(t, "stale", signed.String(FieldSignature))
	assert.Equal(t, "stale", doc.String(FieldSignature), "input must not be modified")

	v := NewValidator(testProduct, pub, fixedDevice(testDevice), &fakeClock{now: testNow})
	_, err = v.Validate(signed)
	assert.NoError(t, err)

	_, err = Sign(doc, ed25519.PrivateKey{1, 2, 3})
	assert.Error(t, err)
}

func TestKeyEncoding(t *testing.T) {
	pub, priv := testKeys(t)

	parsedPub, err := ParsePublicKey(EncodePublicKey(pub))
	require.NoError(t, err)
	assert.Equal(t, pub, parsedPub)

	parsedPriv, err := ParsePrivateKey(EncodePrivateKey(priv))
	require.NoError(t, err)
	assert.Equal(t, priv, parsedPriv)

	_, err = ParsePublicKey("not base64!")
	assert.Error(t, err)
	_, err = ParsePublicKey("AAAA")
	assert.Error(t, err)
	_, err = ParsePrivateKey(EncodePublicKey(pub[:16]))
	assert.Error(t, err)
}
