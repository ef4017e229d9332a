package auth

import (
	"encoding/hex"
	"testing"
	"time"
)

func TestResetTokenGenerate(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	gen := NewResetTokens(func() time.Time { return now })

	token, err := gen.Generate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := hex.DecodeString(token.Plain)
	if err != nil {
		t.Fatalf("expected hex plaintext: %v", err)
	}
	if len(raw) < ResetTokenBytes {
		t.Fatalf("expected at least %d bytes of entropy, got %d", ResetTokenBytes, len(raw))
	}
	if token.Hash == token.Plain {
		t.Fatal("hash must differ from plaintext")
	}
	if token.Hash != HashResetToken(token.Plain) {
		t.Fatal("hash must be reproducible from plaintext")
	}
	if !token.ExpiresAt.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("unexpected expiry %s", token.ExpiresAt)
	}
}

func TestResetTokensAreUnique(t *testing.T) {
	gen := NewResetTokens(nil)
	first, _ := gen.Generate()
	second, _ := gen.Generate()
	if first.Plain == second.Plain {
		t.Fatal("expected distinct tokens")
	}
}

func TestHashResetTokenKnownValue(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := HashResetToken("abc"); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
