package utils

import (
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns a keyed BLAKE2b-256 digest of value, hex encoded. It is
// used wherever a sensitive identifier (an SSN) must be correlatable in logs
// or the audit trail without being stored.
func Fingerprint(key []byte, value string) string {
	return hex.EncodeToString(mac(key, []byte(value)))
}

// Sign computes the hex MAC of payload under key.
func Sign(key, payload []byte) string {
	return hex.EncodeToString(mac(key, payload))
}

// VerifySignature checks a hex MAC produced by Sign in constant time.
func VerifySignature(key, payload []byte, signature string) bool {
	want, err := hex.DecodeString(signature)
	if err != nil || len(key) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(mac(key, payload), want) == 1
}

func mac(key, payload []byte) []byte {
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	h, err := blake2b.New256(key)
	if err != nil {
		// only reachable with an oversized key, handled above
		panic(err)
	}
	h.Write(payload)
	return h.Sum(nil)
}
