package utils

import "testing"

func TestFormatUSD(t *testing.T) {
	cases := map[int64]string{
		0:         "$0.00",
		5:         "$0.05",
		103814:    "$1,038.14",
		123456789: "$1,234,567.89",
		-700:      "-$7.00",
	}
	for in, want := range cases {
		if got := FormatUSD(in); got != want {
			t.Fatalf("FormatUSD(%d)=%q, want %q", in, got, want)
		}
	}
}

func TestDigitsOnly(t *testing.T) {
	if got := DigitsOnly(" 123-45 6789 "); got != "123456789" {
		t.Fatalf("unexpected digits: %q", got)
	}
}

func TestFingerprint_KeyedAndStable(t *testing.T) {
	a := Fingerprint([]byte("k1"), "123456789")
	b := Fingerprint([]byte("k1"), "123456789")
	c := Fingerprint([]byte("k2"), "123456789")
	if a != b {
		t.Fatalf("fingerprint not stable")
	}
	if a == c {
		t.Fatalf("fingerprint ignores key")
	}
	if len(a) != 64 {
		t.Fatalf("expected 32-byte hex digest, got %d chars", len(a))
	}
}

func TestVerifySignature(t *testing.T) {
	key := []byte("webhook-secret")
	body := []byte(`{"order_number":"BG-1"}`)
	sig := Sign(key, body)

	if !VerifySignature(key, body, sig) {
		t.Fatalf("expected signature to verify")
	}
	if VerifySignature(key, []byte(`{"order_number":"BG-2"}`), sig) {
		t.Fatalf("tampered body verified")
	}
	if VerifySignature(nil, body, sig) {
		t.Fatalf("empty key must never verify")
	}
	if VerifySignature(key, body, "zz") {
		t.Fatalf("malformed signature verified")
	}
}
