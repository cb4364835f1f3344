package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
)

func TestNewChallenge(t *testing.T) {
	c, err := NewChallenge()
	if err != nil {
		t.Fatalf("NewChallenge() error = %v", err)
	}

	// 64 seed bytes encode to 86 base64 chars once padding is stripped,
	// a 32-byte digest to 43.
	if len(c.Verifier) != 86 {
		t.Errorf("len(Verifier) = %d, want 86", len(c.Verifier))
	}
	if len(c.Challenge) != 43 {
		t.Errorf("len(Challenge) = %d, want 43", len(c.Challenge))
	}

	if strings.ContainsAny(c.Verifier, "+/=") {
		t.Errorf("Verifier %q contains characters the cloud rejects", c.Verifier)
	}
	if strings.ContainsAny(c.Challenge, "+/=") {
		t.Errorf("Challenge %q contains characters the cloud rejects", c.Challenge)
	}
}

func TestNewChallenge_HashBinding(t *testing.T) {
	c, err := NewChallenge()
	if err != nil {
		t.Fatalf("NewChallenge() error = %v", err)
	}

	sum := sha256.Sum256([]byte(c.Verifier))
	encoded := base64.StdEncoding.EncodeToString(sum[:])
	if want := encoded[:len(encoded)-1]; c.Challenge != want {
		t.Errorf("Challenge = %q, want %q (SHA-256 of verifier minus padding)", c.Challenge, want)
	}
}

func TestNewChallenge_Unique(t *testing.T) {
	a, err := NewChallenge()
	if err != nil {
		t.Fatalf("NewChallenge() error = %v", err)
	}
	b, err := NewChallenge()
	if err != nil {
		t.Fatalf("NewChallenge() error = %v", err)
	}
	if a.Verifier == b.Verifier {
		t.Error("two challenges should not share a verifier")
	}
}

func BenchmarkNewChallenge(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := NewChallenge(); err != nil {
			b.Fatal(err)
		}
	}
}
