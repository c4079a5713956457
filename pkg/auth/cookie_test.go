package auth

import (
	"strings"
	"testing"
)

func TestSignedCookieCodecRoundTrip(t *testing.T) {
	codec := NewSignedCookieCodec("test-secret")
	value := codec.Encode("token-123")
	token, ok := codec.Decode(value)
	if !ok {
		t.Fatalf("valid cookie should decode")
	}
	if token != "token-123" {
		t.Fatalf("token = %q, want %q", token, "token-123")
	}
}

func TestSignedCookieCodecRejectsTampering(t *testing.T) {
	codec := NewSignedCookieCodec("test-secret")
	value := codec.Encode("token-123")

	tampered := strings.Replace(value, "token-123", "token-999", 1)
	if _, ok := codec.Decode(tampered); ok {
		t.Fatalf("tampered token should not decode")
	}
	if _, ok := codec.Decode("no-separator"); ok {
		t.Fatalf("malformed value should not decode")
	}
	if _, ok := codec.Decode(""); ok {
		t.Fatalf("empty value should not decode")
	}

	other := NewSignedCookieCodec("different-secret")
	if _, ok := other.Decode(value); ok {
		t.Fatalf("cookie signed with another secret should not decode")
	}
}
