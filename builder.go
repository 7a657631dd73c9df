package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/dashfold/authcore/marker"
	"github.com/dashfold/authcore/password"
	"github.com/dashfold/authcore/secretbox"
	"github.com/dashfold/authcore/session"
)

// Builder assembles an [Engine]. A Builder is single-use and not safe for
// concurrent configuration; hand the built Engine around instead.
type Builder struct {
	config Config

	redis       redis.UniversalClient
	users       UserStore
	resetMarker marker.Marker
	auditSink   AuditSink

	built bool
}

// New returns a Builder preloaded with defaults. The caller still has to
// supply a Redis client, a [UserStore], and a secret key.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the configuration. Zero fields are filled with
// defaults at Build time.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the cache client backing sessions and login challenges.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets the persistence adapter for account records.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

// WithResetMarker overrides the reset signal implementation. Without this,
// Build creates a [marker.FileMarker] at Config.Reset.MarkerPath.
func (b *Builder) WithResetMarker(m marker.Marker) *Builder {
	b.resetMarker = m
	return b
}

// WithSecretKey sets the master key protecting TOTP seeds at rest.
func (b *Builder) WithSecretKey(key []byte) *Builder {
	b.config.Secret.Key = key
	return b
}

// WithAuditSink sets the audit event consumer.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithDemoMode toggles the read-mostly demo guard.
func (b *Builder) WithDemoMode(enabled bool) *Builder {
	b.config.DemoMode = enabled
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires every component, and returns the
// ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := applyDefaults(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	resetMarker := b.resetMarker
	if resetMarker == nil {
		if cfg.Reset.MarkerPath == "" {
			return nil, errors.New("reset marker path or implementation required")
		}
		fm, err := marker.NewFileMarker(cfg.Reset.MarkerPath)
		if err != nil {
			return nil, err
		}
		resetMarker = fm
	}

	hasher, err := password.NewArgon2(cfg.Password.hasherConfig())
	if err != nil {
		return nil, err
	}

	codec, err := secretbox.New(cfg.Secret.Key)
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(
		b.redis,
		cfg.Session.RedisPrefix,
		cfg.Session.ChallengePrefix,
		cfg.Session.SessionTTL,
		cfg.Session.ChallengeTTL,
	)

	b.built = true

	return &Engine{
		config:       cfg,
		users:        b.users,
		sessions:     sessions,
		secrets:      codec,
		passwordHash: hasher,
		totp:         newTOTPManager(cfg.TOTP),
		resetMarker:  resetMarker,
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:      NewMetrics(cfg.Metrics),
	}, nil
}
