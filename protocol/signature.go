package protocol

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the hex-encoded HMAC-SHA256 of payload under key. Firmware
// and the bin-setup tool use this to produce report signatures.
func Sign(payload string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the HMAC-SHA256 of payload under key.
// The comparison is constant-time over the full digest; a length mismatch or
// non-hex signature is a deterministic false. Verify never panics and never
// returns an error: any failure mode is an authentication failure.
func Verify(payload, signature string, key []byte) bool {
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	expected := mac.Sum(nil)
	if len(sig) != len(expected) {
		return false
	}
	return hmac.Equal(sig, expected)
}
