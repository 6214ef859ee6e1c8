package security

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/hkdf"
)

var (
	seedSalt = []byte("licensegate/trusted-time/v1")
	seedInfo = []byte("slot-obfuscation-seed")
)

// DeriveSeed derives the persistence obfuscation seed from a device
// fingerprint. The result is stable for a given fingerprint and useless on
// any other device.
func DeriveSeed(fingerprint string) string {
	r := hkdf.New(sha256.New, []byte(fingerprint), seedSalt, seedInfo)
	out := make([]byte, 32)
	if _, err := io.ReadFull(r, out); err != nil {
		// hkdf only fails past 255*HashLen bytes
		panic(err)
	}
	return hex.EncodeToString(out)
}
