package crypto

import (
	"bytes"
	"testing"
)

func TestSealAndOpen(t *testing.T) {
	sealer, err := New("session-secret")
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	if !sealer.Configured() {
		t.Fatal("expected configured sealer")
	}

	sealed, err := sealer.SealString("eyJhbGciOi.token")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, []byte("token")) {
		t.Fatal("expected ciphertext not to contain plaintext")
	}

	plain, err := sealer.OpenString(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if plain != "eyJhbGciOi.token" {
		t.Fatalf("unexpected plaintext %q", plain)
	}
}

func TestOpenWithDifferentSecretFails(t *testing.T) {
	a, _ := New("secret-a")
	b, _ := New("secret-b")

	sealed, err := a.SealString("value")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := b.OpenString(sealed); err == nil {
		t.Fatal("expected open with wrong key to fail")
	}
	if _, err := a.Open([]byte{1, 2}); err != ErrCiphertextTooShort {
		t.Fatalf("expected short ciphertext error, got %v", err)
	}
}

func TestUnconfiguredSealerPassesThrough(t *testing.T) {
	sealer, err := New("")
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	sealed, _ := sealer.SealString("plain")
	if string(sealed) != "plain" {
		t.Fatalf("expected pass-through, got %q", sealed)
	}
}
