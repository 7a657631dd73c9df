package secretbox

import (
	"errors"
	"testing"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := New([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := newTestCodec(t)

	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt failed: %v", err)
	}

	sealed, err := c.Encrypt("JBSWY3DPEHPK3PXP", salt)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if sealed == "JBSWY3DPEHPK3PXP" {
		t.Fatal("ciphertext must not equal plaintext")
	}

	got, err := c.Decrypt(sealed, salt)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if got != "JBSWY3DPEHPK3PXP" {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestEncryptProducesFreshNonce(t *testing.T) {
	c := newTestCodec(t)

	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt failed: %v", err)
	}

	a, err := c.Encrypt("same-secret", salt)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	b, err := c.Encrypt("same-secret", salt)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct ciphertexts for identical plaintext")
	}
}

func TestDecryptWrongSaltFailsClosed(t *testing.T) {
	c := newTestCodec(t)

	sealed, err := c.Encrypt("secret-seed", "salt-one-aaaaaaaa")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if _, err := c.Decrypt(sealed, "salt-two-bbbbbbbb"); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}

func TestDecryptWrongKeyFailsClosed(t *testing.T) {
	c := newTestCodec(t)
	other, err := New([]byte("ffffffffffffffffffffffffffffffff"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	sealed, err := c.Encrypt("secret-seed", "shared-salt")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if _, err := other.Decrypt(sealed, "shared-salt"); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}

func TestDecryptMalformedInput(t *testing.T) {
	c := newTestCodec(t)

	for _, input := range []string{"", "!!!not-base64!!!", "AAAA"} {
		if _, err := c.Decrypt(input, "any-salt"); !errors.Is(err, ErrDecrypt) {
			t.Fatalf("Decrypt(%q): expected ErrDecrypt, got %v", input, err)
		}
	}
}

func TestNewRejectsShortKey(t *testing.T) {
	if _, err := New([]byte("too-short")); err == nil {
		t.Fatal("expected short master key to be rejected")
	}
}

func TestNewSaltDistinct(t *testing.T) {
	a, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt failed: %v", err)
	}
	b, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt failed: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct salts")
	}
}
