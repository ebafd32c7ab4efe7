package bakong

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks an inbound webhook's HMAC-SHA256 signature against
// the exact raw body bytes. The comparison is constant time, and a
// wrong-length signature still burns a full compare so length mismatches
// are not observably faster.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if len(signature) != len(expected) {
		hmac.Equal([]byte(expected), []byte(expected))
		return false
	}
	return hmac.Equal([]byte(signature), []byte(expected))
}

// Sign produces the hex HMAC-SHA256 of body. Exported for tests and local
// webhook simulation tooling.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
