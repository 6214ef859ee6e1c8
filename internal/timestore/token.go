package timestore

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
)

const (
	epochLen    = 8
	checksumLen = 8
	tokenLen    = epochLen + checksumLen
)

// tokenEncoding rejects non-canonical base64 so that every edit to a token
// changes the decoded bytes.
var tokenEncoding = base64.StdEncoding.Strict()

// Pack encodes epoch as an opaque token keyed by seed.
//
// Layout before masking: 8-byte big-endian epoch followed by the first 8
// bytes of SHA-256(epoch bytes || seed). The 16 bytes are XORed with the
// first 16 bytes of SHA-256(seed) and base64 encoded.
func Pack(epoch int64, seed string) string {
	var raw [tokenLen]byte
	binary.BigEndian.PutUint64(raw[:epochLen], uint64(epoch))

	sum := checksum(raw[:epochLen], seed)
	copy(raw[epochLen:], sum[:checksumLen])

	mask(raw[:], seed)
	return tokenEncoding.EncodeToString(raw[:])
}

// Unpack reverses Pack. It reports false for tokens of the wrong length,
// invalid encoding or a checksum that does not match seed.
func Unpack(token, seed string) (int64, bool) {
	raw, err := tokenEncoding.DecodeString(token)
	if err != nil || len(raw) != tokenLen {
		return 0, false
	}

	mask(raw, seed)
	sum := checksum(raw[:epochLen], seed)
	if subtle.ConstantTimeCompare(sum[:checksumLen], raw[epochLen:]) != 1 {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(raw[:epochLen])), true
}

func checksum(epochBytes []byte, seed string) [sha256.Size]byte {
	h := sha256.New()
	h.Write(epochBytes)
	h.Write([]byte(seed))
	var out [sha256.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

func mask(buf []byte, seed string) {
	key := sha256.Sum256([]byte(seed))
	for i := range buf {
		buf[i] ^= key[i%tokenLen]
	}
}
