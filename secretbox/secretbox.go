// Package secretbox protects small secrets at rest with AES-256-GCM under a
// key derived from a process-level master key and a per-record salt.
//
// The cipher key is never stored: it is re-derived per operation with
// argon2id, so a leaked database row without the master key is opaque, and a
// record re-encrypted under a different salt cannot be swapped between rows.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// ErrDecrypt is returned for every decryption failure. Malformed input, a
// wrong salt, a wrong master key, and a tampered ciphertext are deliberately
// indistinguishable to the caller.
var ErrDecrypt = errors.New("secretbox: decrypt failed")

const (
	minKeyLen = 16
	saltLen   = 16
	keyLen    = 32
)

// Codec encrypts and decrypts secrets with a fixed master key. A Codec is
// immutable after construction and safe for concurrent use.
type Codec struct {
	key []byte
}

// New creates a [Codec]. The master key must be at least 16 bytes; it is the
// single secret the whole scheme rests on and must come from deployment
// configuration, never from the database it protects.
func New(masterKey []byte) (*Codec, error) {
	if len(masterKey) < minKeyLen {
		return nil, fmt.Errorf("secretbox: master key must be at least %d bytes", minKeyLen)
	}
	key := make([]byte, len(masterKey))
	copy(key, masterKey)
	return &Codec{key: key}, nil
}

// NewSalt returns a fresh random per-record salt, base64-encoded for storage
// alongside the ciphertext.
func NewSalt() (string, error) {
	raw := make([]byte, saltLen)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("secretbox: salt generation: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(raw), nil
}

func (c *Codec) deriveKey(salt string) []byte {
	return argon2.IDKey(c.key, []byte(salt), 1, 64*1024, 4, keyLen)
}

func (c *Codec) gcm(salt string) (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.deriveKey(salt))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under the record's salt. The nonce is prepended to
// the ciphertext and the whole envelope is base64-encoded.
func (c *Codec) Encrypt(plaintext, salt string) (string, error) {
	aead, err := c.gcm(salt)
	if err != nil {
		return "", fmt.Errorf("secretbox: encrypt: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secretbox: encrypt: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens an envelope produced by Encrypt. Any failure returns
// [ErrDecrypt] with no further detail; callers must treat the secret as
// unusable rather than attempt recovery.
func (c *Codec) Decrypt(encoded, salt string) (string, error) {
	sealed, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecrypt
	}

	aead, err := c.gcm(salt)
	if err != nil {
		return "", ErrDecrypt
	}
	if len(sealed) < aead.NonceSize() {
		return "", ErrDecrypt
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecrypt
	}

	return string(plaintext), nil
}
