package protocol

import (
	"strings"
	"testing"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	key := []byte("device-secret")
	payload := CanonicalPayload("BIN-001", 40, 60, "2026-08-31T10:00:00Z", "nonce-1")

	sig := Sign(payload, key)
	if !Verify(payload, sig, key) {
		t.Error("signature produced by Sign did not verify")
	}
}

func TestVerify_WrongKey(t *testing.T) {
	payload := CanonicalPayload("BIN-001", 40, 60, "2026-08-31T10:00:00Z", "nonce-1")
	sig := Sign(payload, []byte("right-key"))

	if Verify(payload, sig, []byte("wrong-key")) {
		t.Error("signature verified under the wrong key")
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	key := []byte("device-secret")
	payload := CanonicalPayload("BIN-001", 40, 60, "2026-08-31T10:00:00Z", "nonce-1")
	sig := Sign(payload, key)

	tampered := CanonicalPayload("BIN-001", 40, 99, "2026-08-31T10:00:00Z", "nonce-1")
	if Verify(tampered, sig, key) {
		t.Error("signature verified over a tampered payload")
	}
}

func TestVerify_MalformedSignatures(t *testing.T) {
	key := []byte("device-secret")
	payload := "BIN-001|40|60|2026-08-31T10:00:00Z|nonce-1"
	good := Sign(payload, key)

	cases := map[string]string{
		"empty":      "",
		"not hex":    "zz" + good[2:],
		"truncated":  good[:32],
		"over-long":  good + "ab",
		"odd length": good[:63],
		"whitespace": " " + good,
	}
	for name, sig := range cases {
		if Verify(payload, sig, key) {
			t.Errorf("%s signature verified", name)
		}
	}
}

func TestVerify_HexCaseInsensitive(t *testing.T) {
	key := []byte("device-secret")
	payload := "BIN-001|40|60|2026-08-31T10:00:00Z|nonce-1"
	sig := Sign(payload, key)

	// Firmware hex encoders differ in case; the decoded bytes are what count.
	if !Verify(payload, strings.ToUpper(sig), key) {
		t.Error("uppercase hex signature rejected")
	}
}

func TestVerify_EmptyKey(t *testing.T) {
	payload := "BIN-001|40|60|2026-08-31T10:00:00Z|nonce-1"
	sig := Sign(payload, []byte{})
	if !Verify(payload, sig, []byte{}) {
		t.Error("empty-key round trip failed")
	}
	if Verify(payload, sig, []byte("k")) {
		t.Error("empty-key signature verified under non-empty key")
	}
}
