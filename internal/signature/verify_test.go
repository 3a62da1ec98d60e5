package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerify(t *testing.T) {
	body := []byte(`{"action":"opened","issue":{"title":"Fix login"}}`)
	secret := "It's a Secret to Everybody"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	valid := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	t.Run("valid signature", func(t *testing.T) {
		assert.True(t, Verify(body, valid, secret))
		assert.Equal(t, valid, Sign(body, secret))
	})

	t.Run("missing signature", func(t *testing.T) {
		assert.False(t, Verify(body, "", secret))
	})

	t.Run("wrong secret", func(t *testing.T) {
		assert.False(t, Verify(body, valid, "another secret"))
	})

	t.Run("different length", func(t *testing.T) {
		assert.False(t, Verify(body, "sha256=abc", secret))
		assert.False(t, Verify(body, valid+"00", secret))
	})

	t.Run("missing prefix", func(t *testing.T) {
		assert.False(t, Verify(body, hex.EncodeToString(mac.Sum(nil)), secret))
	})

	t.Run("malformed", func(t *testing.T) {
		assert.False(t, Verify(body, "sha256=not-hex-at-all-not-hex-at-all-not-hex-at-all-not-hex-!!", secret))
	})
}

func TestVerifyRejectsEveryBitFlip(t *testing.T) {
	body := []byte("payload")
	secret := "s3cr3t"
	sig := Sign(body, secret)

	for i := range body {
		for bit := 0; bit < 8; bit++ {
			mutated := append([]byte(nil), body...)
			mutated[i] ^= 1 << bit
			if Verify(mutated, sig, secret) {
				t.Fatalf("mutation at byte %d bit %d verified", i, bit)
			}
		}
	}
}
