package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dashfold/authcore/internal"
)

// ErrRedisUnavailable wraps every transient cache failure surfaced by the
// store. Callers test with errors.Is; the underlying error is formatted in.
var ErrRedisUnavailable = errors.New("redis unavailable")

const scanBatch = 100

// Store is the Redis-backed adapter for sessions and login challenges. It
// holds a long-lived client injected by the host process and borrows it for
// the duration of each call.
type Store struct {
	redis           redis.UniversalClient
	prefix          string
	challengePrefix string
	sessionTTL      time.Duration
	challengeTTL    time.Duration
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix namespaces session keys, challengePrefix the pending second-factor
// entries. The challenge TTL is expected to be minutes, not days: a
// challenge represents a half-authenticated state.
func NewStore(
	redisClient redis.UniversalClient,
	prefix string,
	challengePrefix string,
	sessionTTL time.Duration,
	challengeTTL time.Duration,
) *Store {
	if prefix == "" {
		prefix = "session"
	}
	if challengePrefix == "" {
		challengePrefix = "totp"
	}
	return &Store{
		redis:           redisClient,
		prefix:          prefix,
		challengePrefix: challengePrefix,
		sessionTTL:      sessionTTL,
		challengeTTL:    challengeTTL,
	}
}

func (s *Store) sessionKey(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *Store) trackingKey(userID, sessionID string) string {
	return s.prefix + ":" + userID + ":" + sessionID
}

func (s *Store) challengeKey(challengeID string) string {
	return s.challengePrefix + ":" + challengeID
}

// Issue creates a session for userID and returns its unpredictable
// identifier. The primary and tracking keys are written in one MULTI/EXEC
// pipeline so a live session never lacks its tracking entry. A crash between
// accepted command and execution can still orphan a tracking key;
// RevokeAllForUser tolerates that.
func (s *Store) Issue(ctx context.Context, userID string) (string, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return "", err
	}
	sessionID := sid.String()

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.sessionKey(sessionID), userID, s.sessionTTL)
		pipe.Set(ctx, s.trackingKey(userID, sessionID), sessionID, s.sessionTTL)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return sessionID, nil
}

// IssueLoginChallenge records a pending second-factor challenge for userID
// under the challenge namespace and returns its identifier. No tracking
// entry is written: a challenge is not a session and must never satisfy a
// session lookup.
func (s *Store) IssueLoginChallenge(ctx context.Context, userID string) (string, error) {
	challengeID := internal.NewChallengeID()

	if err := s.redis.Set(ctx, s.challengeKey(challengeID), userID, s.challengeTTL).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return challengeID, nil
}

// Resolve maps a session id to its user id. Absence is not an error: an
// expired or revoked session resolves to ("", false, nil). Ids that cannot
// have been issued by this store are rejected without a cache round trip.
func (s *Store) Resolve(ctx context.Context, sessionID string) (string, bool, error) {
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		return "", false, nil
	}

	userID, err := s.redis.Get(ctx, s.sessionKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return userID, true, nil
}

// ConsumeChallenge resolves and deletes a login challenge in one GETDEL, so
// a challenge id observed by one caller can never verify twice.
func (s *Store) ConsumeChallenge(ctx context.Context, challengeID string) (string, bool, error) {
	userID, err := s.redis.GetDel(ctx, s.challengeKey(challengeID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return userID, true, nil
}

// Revoke deletes one session and its tracking entry. Revoking an id that no
// longer resolves is a no-op, not a failure.
func (s *Store) Revoke(ctx context.Context, sessionID string) error {
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		return nil
	}

	userID, err := s.redis.Get(ctx, s.sessionKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.sessionKey(sessionID))
		pipe.Del(ctx, s.trackingKey(userID, sessionID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// RevokeAllForUser deletes every session tracked for userID.
//
// This is a best-effort sweep, not a transaction: tracking keys are
// enumerated by prefix scan and each pair is deleted independently, so one
// failing entry does not shield the rest. A tracking key whose target
// session is already gone counts as revoked. Sessions issued concurrently
// with the sweep may survive it; callers treat this as advisory
// invalidation, not a hard boundary against a grant issued the same instant.
func (s *Store) RevokeAllForUser(ctx context.Context, userID string) error {
	pattern := s.prefix + ":" + userID + ":*"

	var (
		cursor uint64
		failed int
	)
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}

		for _, trackingKey := range keys {
			sessionID, err := s.redis.Get(ctx, trackingKey).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				failed++
				continue
			}
			if err == nil && sessionID != "" {
				if delErr := s.redis.Del(ctx, s.sessionKey(sessionID)).Err(); delErr != nil {
					failed++
				}
			}
			if delErr := s.redis.Del(ctx, trackingKey).Err(); delErr != nil {
				failed++
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d session entries not revoked", ErrRedisUnavailable, failed)
	}
	return nil
}

// ActiveSessionIDs returns the session ids currently tracked for userID.
// Orphan tracking keys are reported as-is; this is an introspection helper,
// not a liveness guarantee.
func (s *Store) ActiveSessionIDs(ctx context.Context, userID string) ([]string, error) {
	pattern := s.prefix + ":" + userID + ":*"

	var (
		cursor uint64
		ids    []string
	)
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		for _, trackingKey := range keys {
			sessionID, err := s.redis.Get(ctx, trackingKey).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
			ids = append(ids, sessionID)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return ids, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
