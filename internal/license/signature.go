package license

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// Verify reports whether sig is a valid Ed25519 signature of payload under
// pub. Malformed keys and signatures verify as false.
func Verify(payload, sig []byte, pub ed25519.PublicKey) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, payload, sig)
}

// GenerateKeyPair creates a new issuer key pair. A nil rand uses
// crypto/rand.
func GenerateKeyPair(r io.Reader) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	if r == nil {
		r = rand.Reader
	}
	pub, priv, err := ed25519.GenerateKey(r)
	if err != nil {
		return nil, nil, fmt.Errorf("generating issuer key: %w", err)
	}
	return pub, priv, nil
}

// Sign returns a copy of doc carrying a signature over its canonical form.
// Any existing sig field is replaced.
func Sign(doc Document, priv ed25519.PrivateKey) (Document, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid issuer private key length %d", len(priv))
	}
	payload, err := Canonicalize(doc)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing document: %w", err)
	}
	signed := doc.Unsigned()
	signed[FieldSignature] = base64.StdEncoding.EncodeToString(ed25519.Sign(priv, payload))
	return signed, nil
}

// EncodePublicKey encodes an issuer public key as standard base64
func EncodePublicKey(pub ed25519.PublicKey) string {
	return base64.StdEncoding.EncodeToString(pub)
}

// ParsePublicKey decodes a base64 issuer public key.
func ParsePublicKey(s string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key is %d bytes, want %d", len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

// EncodePrivateKey encodes an issuer private key seed as standard base64
func EncodePrivateKey(priv ed25519.PrivateKey) string {
	return base64.StdEncoding.EncodeToString(priv.Seed())
}

// ParsePrivateKey decodes a base64 issuer private key seed.
func ParsePrivateKey(s string) (ed25519.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}
	if len(raw) != ed25519.SeedSize {
		return nil, fmt.Errorf("private key seed is %d bytes, want %d", len(raw), ed25519.SeedSize)
	}
	return ed25519.NewKeyFromSeed(raw), nil
}
