package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	maxPassBytes          = 1024
	algorithmID           = "argon2id"
)

// Config holds the argon2id cost parameters. Values are fixed at
// construction; raising them later only affects newly produced hashes.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Argon2 hashes and verifies passwords. Safe for concurrent use.
type Argon2 struct {
	config Config
}

// NewArgon2 validates the cost parameters and returns a hasher. Floors exist
// so a misconfigured deployment cannot silently produce throwaway hashes.
func NewArgon2(cfg Config) (*Argon2, error) {
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, errors.New("password: memory must be >= 8192 KB")
	case cfg.Time < 1:
		return nil, errors.New("password: time cost must be >= 1")
	case cfg.Parallelism < 1:
		return nil, errors.New("password: parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, errors.New("password: salt length must be >= 16")
	case cfg.KeyLength < minKeyLength:
		return nil, errors.New("password: key length must be >= 16")
	}
	return &Argon2{config: cfg}, nil
}

// Hash derives a PHC-encoded argon2id hash with a fresh random salt. The
// password is used byte-for-byte as provided, no Unicode normalization.
func (a *Argon2) Hash(password string) (string, error) {
	if len(password) > maxPassBytes {
		return "", errors.New("password: input exceeds maximum length")
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	derived := argon2.IDKey(
		[]byte(password),
		salt,
		a.config.Time,
		a.config.Memory,
		a.config.Parallelism,
		a.config.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(derived),
	), nil
}

// Verify reports whether password matches encodedHash. The comparison runs
// in constant time over the derived key. A malformed hash is an error, not a
// mismatch.
func (a *Argon2) Verify(password, encodedHash string) (bool, error) {
	if len(password) > maxPassBytes {
		return false, errors.New("password: input exceeds maximum length")
	}

	p, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.hash)))
	return subtle.ConstantTimeCompare(computed, p.hash) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced under weaker cost
// parameters than the current configuration.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	p, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	upgrade := a.config.Memory > p.memory ||
		a.config.Time > p.time ||
		a.config.Parallelism > p.parallelism ||
		a.config.KeyLength != uint32(len(p.hash))
	return upgrade, nil
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

func parsePHC(encodedHash string) (*phc, error) {
	var (
		version          int
		mem, tm          uint32
		par              uint8
		saltB64, hashB64 string
	)

	n, err := fmt.Sscanf(
		encodedHash,
		"$"+algorithmID+"$v=%d$m=%d,t=%d,p=%d$%s",
		&version, &mem, &tm, &par, &saltB64,
	)
	if err != nil || n != 5 {
		return nil, errors.New("password: invalid PHC format")
	}
	if version != argon2.Version {
		return nil, errors.New("password: unsupported argon2 version")
	}

	// Sscanf's %s is greedy; the trailing salt$hash pair comes out as one
	// token and is split here.
	var ok bool
	saltB64, hashB64, ok = strings.Cut(saltB64, "$")
	if !ok {
		return nil, errors.New("password: invalid PHC format")
	}

	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil || uint32(len(salt)) < minSaltLength {
		return nil, errors.New("password: invalid salt")
	}
	hash, err := base64.StdEncoding.DecodeString(hashB64)
	if err != nil || len(hash) == 0 {
		return nil, errors.New("password: invalid hash")
	}
	if mem < minMemoryKB || tm < 1 || par < 1 {
		return nil, errors.New("password: parameters below minimum")
	}

	return &phc{memory: mem, time: tm, parallelism: par, salt: salt, hash: hash}, nil
}
