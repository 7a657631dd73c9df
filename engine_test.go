package authcore

import (
	"context"
	"encoding/base32"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// memUserStore is the in-memory UserStore test double.
type memUserStore struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{nextID: 1, users: map[int64]*User{}}
}

func (s *memUserStore) GetByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *memUserStore) GetByID(_ context.Context, id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, nil
}

func (s *memUserStore) GetOperators(_ context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*User
	for _, u := range s.users {
		if u.Operator {
			clone := *u
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memUserStore) GetFirstOperator(ctx context.Context) (*User, error) {
	operators, err := s.GetOperators(ctx)
	if err != nil || len(operators) == 0 {
		return nil, err
	}
	return operators[0], nil
}

func (s *memUserStore) Create(_ context.Context, input CreateUserInput) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &User{
		ID:       s.nextID,
		Username: input.Username,
		Password: input.Password,
		Locale:   input.Locale,
		Operator: input.Operator,
	}
	s.users[u.ID] = u
	s.nextID++
	clone := *u
	return &clone, nil
}

func (s *memUserStore) Update(_ context.Context, id int64, patch UserUpdate) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	if patch.Username != nil {
		u.Username = *patch.Username
	}
	if patch.Password != nil {
		u.Password = *patch.Password
	}
	if patch.TOTPSecret != nil {
		u.TOTPSecret = *patch.TOTPSecret
	}
	if patch.TOTPEnabled != nil {
		u.TOTPEnabled = *patch.TOTPEnabled
	}
	if patch.Salt != nil {
		u.Salt = *patch.Salt
	}
	if patch.Locale != nil {
		u.Locale = *patch.Locale
	}
	clone := *u
	return &clone, nil
}

// raw exposes the stored record without the clone, for assertions on
// persisted state.
func (s *memUserStore) raw(id int64) *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[id]
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		TOTP: TOTPConfig{Issuer: "authcore-test"},
		Password: PasswordConfig{
			Memory:          16 * 1024,
			Time:            1,
			Parallelism:     1,
			SaltLength:      16,
			KeyLength:       32,
			MinLength:       8,
			UpgradeOnVerify: true,
		},
		Secret: SecretConfig{Key: []byte("0123456789abcdef0123456789abcdef")},
		Reset:  ResetConfig{MarkerPath: filepath.Join(t.TempDir(), "reset-requested")},
		Audit:  AuditConfig{Enabled: true, BufferSize: 64, DropIfFull: true},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *memUserStore, *miniredis.Miniredis) {
	t.Helper()
	return newTestEngineWithSink(t, cfg, nil)
}

func newTestEngineWithSink(t *testing.T, cfg Config, sink AuditSink) (*Engine, *memUserStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	users := newMemUserStore()
	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserStore(users).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, users, mr
}

const (
	testUsername = "admin@example.com"
	testPassword = "correct-horse-battery"
)

func registerOperator(t *testing.T, engine *Engine) *RegisterResult {
	t.Helper()
	result, err := engine.Register(context.Background(), testUsername, testPassword, "")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return result
}

func codeForNow(t *testing.T, secret string, cfg TOTPConfig) string {
	t.Helper()
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(secret))
	if err != nil {
		t.Fatalf("decode secret failed: %v", err)
	}
	digits := cfg.Digits
	if digits == 0 {
		digits = 6
	}
	period := cfg.Period
	if period == 0 {
		period = 30
	}
	counter := time.Now().Unix() / int64(period)
	code, err := hotpCode(key, counter, digits, cfg.Algorithm)
	if err != nil {
		t.Fatalf("hotpCode failed: %v", err)
	}
	return code
}

// enrollTOTP drives the full provisioning flow and returns the plaintext
// seed.
func enrollTOTP(t *testing.T, engine *Engine, userID int64) string {
	t.Helper()

	info, err := engine.GetTOTPProvisioningInfo(context.Background(), userID, testPassword)
	if err != nil {
		t.Fatalf("GetTOTPProvisioningInfo failed: %v", err)
	}
	if info.Secret == "" || info.URI == "" {
		t.Fatalf("expected provisioning payload, got %+v", info)
	}

	code := codeForNow(t, info.Secret, engine.config.TOTP)
	if err := engine.EnableTOTP(context.Background(), userID, code); err != nil {
		t.Fatalf("EnableTOTP failed: %v", err)
	}
	return info.Secret
}
