package timestore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	epochs := []int64{0, 1, 1_700_000_000, 4_102_444_800, -1, math.MaxInt64, math.MinInt64}
	seeds := []string{"", "seed", "a0b1c2d3|a", "ünïcødé-seed"}

	for _, seed := range seeds {
		for _, epoch := range epochs {
			token := Pack(epoch, seed)
			got, ok := Unpack(token, seed)
			require.True(t, ok, "seed=%q epoch=%d", seed, epoch)
			assert.Equal(t, epoch, got)
		}
	}
}

func TestPackIsOpaque(t *testing.T) {
	a := Pack(1_700_000_000, "seed|a")
	b := Pack(1_700_000_000, "seed|b")

	assert.NotEqual(t, a, b, "sub-seeds must produce distinct tokens")
	assert.Len(t, a, 24)
	assert.NotContains(t, a, "1700000000")
}

func TestUnpackWrongSeed(t *testing.T) {
	token := Pack(1_700_000_000, "right")
	_, ok := Unpack(token, "wrong")
	assert.False(t, ok)
}

func TestUnpackDetectsCorruption(t *testing.T) {
	token := Pack(1_700_000_000, "seed")

	t.Run("single byte flips", func(t *testing.T) {
		for i := 0; i < len(token); i++ {
			mutated := []byte(token)
			mutated[i] ^= 0x01
			_, ok := Unpack(string(mutated), "seed")
			assert.False(t, ok, "flip at %d accepted", i)
		}
	})

	t.Run("decoded byte flips", func(t *testing.T) {
		raw, err := tokenEncoding.DecodeString(token)
		require.NoError(t, err)
		for i := range raw {
			mutated := append([]byte(nil), raw...)
			mutated[i] ^= 0x80
			_, ok := Unpack(tokenEncoding.EncodeToString(mutated), "seed")
			assert.False(t, ok, "raw flip at %d accepted", i)
		}
	})

	t.Run("truncation", func(t *testing.T) {
		for n := 0; n < len(token); n++ {
			_, ok := Unpack(token[:n], "seed")
			assert.False(t, ok, "truncated to %d accepted", n)
		}
	})

	t.Run("wrong length payload", func(t *testing.T) {
		_, ok := Unpack(tokenEncoding.EncodeToString(make([]byte, 15)), "seed")
		assert.False(t, ok)
		_, ok = Unpack(tokenEncoding.EncodeToString(make([]byte, 17)), "seed")
		assert.False(t, ok)
	})

	t.Run("garbage", func(t *testing.T) {
		_, ok := Unpack("not a token at all", "seed")
		assert.False(t, ok)
	})
}
