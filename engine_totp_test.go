package authcore

import (
	"context"
	"errors"
	"testing"

	"github.com/dashfold/authcore/secretbox"
)

func TestProvisioningStoresEncryptedSeed(t *testing.T) {
	ctx := context.Background()
	engine, users, _ := newTestEngine(t, testConfig(t))
	reg := registerOperator(t, engine)

	info, err := engine.GetTOTPProvisioningInfo(ctx, reg.User.ID, testPassword)
	if err != nil {
		t.Fatalf("GetTOTPProvisioningInfo failed: %v", err)
	}

	stored := users.raw(reg.User.ID)
	if stored.TOTPSecret == "" || stored.Salt == "" {
		t.Fatal("expected encrypted seed and salt to be persisted")
	}
	if stored.TOTPSecret == info.Secret {
		t.Fatal("seed must not be stored in plaintext")
	}
	if stored.TOTPEnabled {
		t.Fatal("provisioning must not enable TOTP")
	}

	seed, err := engine.secrets.Decrypt(stored.TOTPSecret, stored.Salt)
	if err != nil {
		t.Fatalf("stored seed does not decrypt: %v", err)
	}
	if seed != info.Secret {
		t.Fatal("decrypted seed differs from provisioned seed")
	}
}

func TestProvisioningRequiresPassword(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t, testConfig(t))
	reg := registerOperator(t, engine)

	_, err := engine.GetTOTPProvisioningInfo(ctx, reg.User.ID, "wrong-password")
	if !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestProvisioningRejectedWhenEnabled(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t, testConfig(t))
	reg := registerOperator(t, engine)
	enrollTOTP(t, engine, reg.User.ID)

	_, err := engine.GetTOTPProvisioningInfo(ctx, reg.User.ID, testPassword)
	if !errors.Is(err, ErrTOTPAlreadyEnabled) {
		t.Fatalf("expected ErrTOTPAlreadyEnabled, got %v", err)
	}
}

func TestRepeatedProvisioningReplacesPendingSeed(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t, testConfig(t))
	reg := registerOperator(t, engine)

	first, err := engine.GetTOTPProvisioningInfo(ctx, reg.User.ID, testPassword)
	if err != nil {
		t.Fatalf("first provisioning failed: %v", err)
	}
	second, err := engine.GetTOTPProvisioningInfo(ctx, reg.User.ID, testPassword)
	if err != nil {
		t.Fatalf("second provisioning failed: %v", err)
	}
	if first.Secret == second.Secret {
		t.Fatal("expected a fresh seed per provisioning call")
	}

	// Only the latest pending seed can complete enrollment.
	staleCode := codeForNow(t, first.Secret, engine.config.TOTP)
	freshCode := codeForNow(t, second.Secret, engine.config.TOTP)
	if staleCode != freshCode {
		if err := engine.EnableTOTP(ctx, reg.User.ID, staleCode); !errors.Is(err, ErrTOTPInvalid) {
			t.Fatalf("expected stale seed code to be rejected, got %v", err)
		}
	}
	if err := engine.EnableTOTP(ctx, reg.User.ID, freshCode); err != nil {
		t.Fatalf("EnableTOTP with fresh seed failed: %v", err)
	}
}

func TestEnableTOTPWithoutPendingSetup(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t, testConfig(t))
	reg := registerOperator(t, engine)

	err := engine.EnableTOTP(ctx, reg.User.ID, "123456")
	if !errors.Is(err, ErrTOTPAlreadyEnabled) {
		t.Fatalf("expected ErrTOTPAlreadyEnabled without pending setup, got %v", err)
	}
}

func TestEnableTOTPWrongCodeKeepsPendingSeed(t *testing.T) {
	ctx := context.Background()
	engine, users, _ := newTestEngine(t, testConfig(t))
	reg := registerOperator(t, engine)

	info, err := engine.GetTOTPProvisioningInfo(ctx, reg.User.ID, testPassword)
	if err != nil {
		t.Fatalf("GetTOTPProvisioningInfo failed: %v", err)
	}

	if err := engine.EnableTOTP(ctx, reg.User.ID, "000000"); !errors.Is(err, ErrTOTPInvalid) {
		t.Fatalf("expected ErrTOTPInvalid, got %v", err)
	}
	if users.raw(reg.User.ID).TOTPEnabled {
		t.Fatal("wrong code must not enable TOTP")
	}

	// The pending seed survives for another attempt.
	code := codeForNow(t, info.Secret, engine.config.TOTP)
	if err := engine.EnableTOTP(ctx, reg.User.ID, code); err != nil {
		t.Fatalf("EnableTOTP retry failed: %v", err)
	}
}

func TestDisableTOTP(t *testing.T) {
	ctx := context.Background()
	engine, users, _ := newTestEngine(t, testConfig(t))
	reg := registerOperator(t, engine)
	enrollTOTP(t, engine, reg.User.ID)

	if err := engine.DisableTOTP(ctx, reg.User.ID, "wrong-password"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}

	if err := engine.DisableTOTP(ctx, reg.User.ID, testPassword); err != nil {
		t.Fatalf("DisableTOTP failed: %v", err)
	}

	stored := users.raw(reg.User.ID)
	if stored.TOTPEnabled || stored.TOTPSecret != "" {
		t.Fatalf("expected enrollment to be torn down, got enabled=%v secret=%q", stored.TOTPEnabled, stored.TOTPSecret)
	}

	if err := engine.DisableTOTP(ctx, reg.User.ID, testPassword); !errors.Is(err, ErrTOTPNotEnabled) {
		t.Fatalf("expected ErrTOTPNotEnabled on second disable, got %v", err)
	}

	// Login no longer requires a second factor.
	result, err := engine.Login(ctx, testUsername, testPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.TOTPRequired {
		t.Fatal("expected direct session after disable")
	}
}

func TestDemoModeGuardsTOTPMutations(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.DemoMode = true
	engine, _, _ := newTestEngine(t, cfg)
	reg := registerOperator(t, engine)

	if _, err := engine.GetTOTPProvisioningInfo(ctx, reg.User.ID, testPassword); !errors.Is(err, ErrNotAllowedInDemoMode) {
		t.Fatalf("expected ErrNotAllowedInDemoMode, got %v", err)
	}
	if err := engine.EnableTOTP(ctx, reg.User.ID, "123456"); !errors.Is(err, ErrNotAllowedInDemoMode) {
		t.Fatalf("expected ErrNotAllowedInDemoMode, got %v", err)
	}
}

func TestChallengeRejectedWhenSeedUnreadable(t *testing.T) {
	ctx := context.Background()
	engine, users, _ := newTestEngine(t, testConfig(t))
	reg := registerOperator(t, engine)
	seed := enrollTOTP(t, engine, reg.User.ID)

	login, err := engine.Login(ctx, testUsername, testPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Corrupt the stored salt so the seed no longer decrypts.
	badSalt, err := secretbox.NewSalt()
	if err != nil {
		t.Fatalf("NewSalt failed: %v", err)
	}
	if _, err := users.Update(ctx, reg.User.ID, UserUpdate{Salt: &badSalt}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	code := codeForNow(t, seed, engine.config.TOTP)
	_, err = engine.VerifyLoginChallenge(ctx, login.ChallengeID, code)
	if !errors.Is(err, ErrTOTPInvalid) {
		t.Fatalf("expected ErrTOTPInvalid when seed is unreadable, got %v", err)
	}
}
