package authcore

import (
	"errors"
	"time"

	"github.com/dashfold/authcore/password"
)

// Config is the full engine configuration. Zero values fall back to the
// defaults applied by [Builder.Build]; a populated Config is treated as
// immutable afterwards.
type Config struct {
	// DemoMode disables every credential- and enrollment-mutating operation.
	DemoMode bool

	Session  SessionConfig
	TOTP     TOTPConfig
	Password PasswordConfig
	Secret   SecretConfig
	Reset    ResetConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session and login-challenge persistence.
type SessionConfig struct {
	// RedisPrefix namespaces session keys. Default "session".
	RedisPrefix string
	// ChallengePrefix namespaces pending second-factor entries. Must differ
	// from RedisPrefix. Default "totp".
	ChallengePrefix string
	// SessionTTL is the lifetime of an issued session. Default 7 days.
	SessionTTL time.Duration
	// ChallengeTTL bounds how long a password-verified login may wait for
	// its one-time code. Default 5 minutes.
	ChallengeTTL time.Duration
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig controls the second-factor code parameters. Defaults follow
// what common authenticator apps assume: 6 digits, 30-second period, SHA1.
type TOTPConfig struct {
	Issuer    string
	Digits    int
	Period    int
	Skew      int
	Algorithm string // "SHA1" (default), "SHA256", "SHA512"
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig carries the argon2id cost parameters plus engine-level
// password policy.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// MinLength is the minimum accepted password length in bytes. Default 8.
	MinLength int
	// UpgradeOnVerify re-hashes a stored password after a successful login
	// when its parameters lag the current configuration.
	UpgradeOnVerify bool
}

func (c PasswordConfig) hasherConfig() password.Config {
	return password.Config{
		Memory:      c.Memory,
		Time:        c.Time,
		Parallelism: c.Parallelism,
		SaltLength:  c.SaltLength,
		KeyLength:   c.KeyLength,
	}
}

/*
====================================
SECRET / RESET / OBSERVABILITY
====================================
*/

// SecretConfig carries the master key protecting TOTP seeds at rest.
type SecretConfig struct {
	// Key must be at least 16 bytes and must come from deployment secrets,
	// never from the database the key protects.
	Key []byte
}

// ResetConfig locates the filesystem marker that arms the password-reset
// flow. Ignored when the builder receives an explicit [marker.Marker].
type ResetConfig struct {
	MarkerPath string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events when the buffer is saturated instead of
	// blocking the calling operation. Default true.
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			RedisPrefix:     "session",
			ChallengePrefix: "totp",
			SessionTTL:      7 * 24 * time.Hour,
			ChallengeTTL:    5 * time.Minute,
		},
		TOTP: TOTPConfig{
			Issuer:    "authcore",
			Digits:    6,
			Period:    30,
			Skew:      1,
			Algorithm: "SHA1",
		},
		Password: PasswordConfig{
			Memory:          64 * 1024,
			Time:            3,
			Parallelism:     2,
			SaltLength:      16,
			KeyLength:       32,
			MinLength:       8,
			UpgradeOnVerify: true,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// applyDefaults fills unset fields from defaultConfig. Explicit non-zero
// values always win.
func applyDefaults(cfg Config) Config {
	def := defaultConfig()

	if cfg.Session.RedisPrefix == "" {
		cfg.Session.RedisPrefix = def.Session.RedisPrefix
	}
	if cfg.Session.ChallengePrefix == "" {
		cfg.Session.ChallengePrefix = def.Session.ChallengePrefix
	}
	if cfg.Session.SessionTTL <= 0 {
		cfg.Session.SessionTTL = def.Session.SessionTTL
	}
	if cfg.Session.ChallengeTTL <= 0 {
		cfg.Session.ChallengeTTL = def.Session.ChallengeTTL
	}

	if cfg.TOTP.Issuer == "" {
		cfg.TOTP.Issuer = def.TOTP.Issuer
	}
	if cfg.TOTP.Digits <= 0 {
		cfg.TOTP.Digits = def.TOTP.Digits
	}
	if cfg.TOTP.Period <= 0 {
		cfg.TOTP.Period = def.TOTP.Period
	}
	if cfg.TOTP.Skew < 0 {
		cfg.TOTP.Skew = def.TOTP.Skew
	}
	if cfg.TOTP.Algorithm == "" {
		cfg.TOTP.Algorithm = def.TOTP.Algorithm
	}

	if cfg.Password.Memory == 0 {
		cfg.Password.Memory = def.Password.Memory
	}
	if cfg.Password.Time == 0 {
		cfg.Password.Time = def.Password.Time
	}
	if cfg.Password.Parallelism == 0 {
		cfg.Password.Parallelism = def.Password.Parallelism
	}
	if cfg.Password.SaltLength == 0 {
		cfg.Password.SaltLength = def.Password.SaltLength
	}
	if cfg.Password.KeyLength == 0 {
		cfg.Password.KeyLength = def.Password.KeyLength
	}
	if cfg.Password.MinLength <= 0 {
		cfg.Password.MinLength = def.Password.MinLength
	}

	if cfg.Audit.BufferSize <= 0 {
		cfg.Audit.BufferSize = def.Audit.BufferSize
	}

	return cfg
}

func validateConfig(cfg Config) error {
	if cfg.Session.RedisPrefix == cfg.Session.ChallengePrefix {
		return errors.New("session and challenge prefixes must differ")
	}
	if cfg.TOTP.Digits < 6 || cfg.TOTP.Digits > 8 {
		return errors.New("totp digits must be between 6 and 8")
	}
	if cfg.TOTP.Skew > 4 {
		return errors.New("totp skew must be <= 4 steps")
	}
	if len(cfg.Secret.Key) < 16 {
		return errors.New("secret key must be at least 16 bytes")
	}
	return nil
}
