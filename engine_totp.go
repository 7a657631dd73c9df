package authcore

import (
	"context"
	"time"

	"github.com/dashfold/authcore/secretbox"
)

// GetTOTPProvisioningInfo starts TOTP enrollment: it generates a fresh seed,
// stores it encrypted but not yet enabled, and returns the plaintext seed and
// otpauth URI. This response is the only place the plaintext seed ever
// appears; it cannot be retrieved again. Calling it again before EnableTOTP
// replaces the pending seed.
func (e *Engine) GetTOTPProvisioningInfo(ctx context.Context, userID int64, plaintext string) (*ProvisioningInfo, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if e.config.DemoMode {
		return nil, ErrNotAllowedInDemoMode
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	ok, err := e.passwordHash.Verify(plaintext, user.Password)
	if err != nil || !ok {
		return nil, ErrInvalidPassword
	}
	if user.TOTPEnabled {
		return nil, ErrTOTPAlreadyEnabled
	}

	salt := user.Salt
	if salt == "" {
		salt, err = secretbox.NewSalt()
		if err != nil {
			return nil, err
		}
	}

	seed, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, err
	}

	sealed, err := e.secrets.Encrypt(seed, salt)
	if err != nil {
		return nil, err
	}

	if _, err := e.users.Update(ctx, user.ID, UserUpdate{
		TOTPSecret: &sealed,
		Salt:       &salt,
	}); err != nil {
		return nil, wrapStoreErr(err)
	}

	e.metricInc(MetricTOTPSetupIssued)
	e.emitAudit(ctx, AuditTOTPSetupIssued, true, formatUserID(user.ID), "", nil, nil)

	return &ProvisioningInfo{
		Secret: seed,
		URI:    e.totp.ProvisionURI(seed, user.Username),
	}, nil
}

// EnableTOTP completes enrollment by proving the authenticator holds the
// pending seed. Requires a prior GetTOTPProvisioningInfo in this enrollment
// cycle; a wrong code leaves the pending seed in place for another attempt.
func (e *Engine) EnableTOTP(ctx context.Context, userID int64, code string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if e.config.DemoMode {
		return ErrNotAllowedInDemoMode
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return wrapStoreErr(err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.TOTPEnabled {
		return ErrTOTPAlreadyEnabled
	}
	if user.TOTPSecret == "" || user.Salt == "" {
		// No enrollment in flight; nothing a code could confirm.
		return ErrTOTPAlreadyEnabled
	}

	seed, err := e.secrets.Decrypt(user.TOTPSecret, user.Salt)
	if err != nil {
		return ErrTOTPInvalid
	}

	ok, err := e.totp.VerifyCode(seed, code, time.Now())
	if err != nil || !ok {
		return ErrTOTPInvalid
	}

	enabled := true
	if _, err := e.users.Update(ctx, user.ID, UserUpdate{TOTPEnabled: &enabled}); err != nil {
		return wrapStoreErr(err)
	}

	e.metricInc(MetricTOTPEnabled)
	e.emitAudit(ctx, AuditTOTPEnabled, true, formatUserID(user.ID), "", nil, nil)
	return nil
}

// DisableTOTP tears down second-factor enrollment after re-verifying the
// password. The stored seed is discarded; re-enabling starts a fresh
// enrollment with a new seed.
func (e *Engine) DisableTOTP(ctx context.Context, userID int64, plaintext string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return wrapStoreErr(err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	if !user.TOTPEnabled {
		return ErrTOTPNotEnabled
	}

	ok, err := e.passwordHash.Verify(plaintext, user.Password)
	if err != nil || !ok {
		return ErrInvalidPassword
	}

	disabled := false
	empty := ""
	if _, err := e.users.Update(ctx, user.ID, UserUpdate{
		TOTPEnabled: &disabled,
		TOTPSecret:  &empty,
	}); err != nil {
		return wrapStoreErr(err)
	}

	e.metricInc(MetricTOTPDisabled)
	e.emitAudit(ctx, AuditTOTPDisabled, true, formatUserID(user.ID), "", nil, nil)
	return nil
}
