package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Login verifies the operator's password and either issues a session or, when
// a second factor is enrolled, a single-use login challenge. The returned
// [LoginResult] carries exactly one of the two identifiers.
//
// A wrong password and an unknown username return different sentinels; the
// transport layer decides whether to collapse them for its callers.
func (e *Engine) Login(ctx context.Context, username, plaintext string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	username = normalizeUsername(username)
	user, err := e.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if user == nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLoginFailure, false, "", "", ErrUserNotFound, func() map[string]string {
			return map[string]string{"username": username}
		})
		return nil, ErrUserNotFound
	}

	ok, err := e.passwordHash.Verify(plaintext, user.Password)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLoginFailure, false, formatUserID(user.ID), "", ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	e.upgradeHashIfNeeded(ctx, user, plaintext)

	if user.TOTPEnabled {
		challengeID, err := e.sessions.IssueLoginChallenge(ctx, formatUserID(user.ID))
		if err != nil {
			return nil, err
		}

		e.metricInc(MetricChallengeIssued)
		e.emitAudit(ctx, AuditChallengeIssued, true, formatUserID(user.ID), "", nil, nil)

		return &LoginResult{
			ChallengeID:  challengeID,
			TOTPRequired: true,
			User:         user.DTO(),
		}, nil
	}

	sessionID, err := e.sessions.Issue(ctx, formatUserID(user.ID))
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, AuditLoginSuccess, true, formatUserID(user.ID), sessionID, nil, nil)

	return &LoginResult{SessionID: sessionID, User: user.DTO()}, nil
}

// VerifyLoginChallenge completes a two-phase login. The challenge is burned
// before the code is checked, so a wrong code costs the whole challenge and
// the caller must restart at Login.
func (e *Engine) VerifyLoginChallenge(ctx context.Context, challengeID, code string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if challengeID == "" {
		return nil, ErrChallengeNotFound
	}

	rawUserID, found, err := e.sessions.ConsumeChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if !found {
		e.metricInc(MetricChallengeFailure)
		e.emitAudit(ctx, AuditChallengeFailure, false, "", "", ErrChallengeNotFound, nil)
		return nil, ErrChallengeNotFound
	}

	userID, err := parseUserID(rawUserID)
	if err != nil {
		return nil, ErrChallengeNotFound
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if user == nil {
		e.metricInc(MetricChallengeFailure)
		e.emitAudit(ctx, AuditChallengeFailure, false, rawUserID, "", ErrUserNotFound, nil)
		return nil, ErrUserNotFound
	}
	if !user.TOTPEnabled || user.TOTPSecret == "" || user.Salt == "" {
		// Enrollment was torn down between challenge issue and completion.
		e.metricInc(MetricChallengeFailure)
		e.emitAudit(ctx, AuditChallengeFailure, false, rawUserID, "", ErrTOTPNotEnabled, nil)
		return nil, ErrTOTPNotEnabled
	}

	seed, err := e.secrets.Decrypt(user.TOTPSecret, user.Salt)
	if err != nil {
		e.metricInc(MetricChallengeFailure)
		e.emitAudit(ctx, AuditChallengeFailure, false, rawUserID, "", ErrTOTPInvalid, func() map[string]string {
			return map[string]string{"reason": "seed_unreadable"}
		})
		return nil, ErrTOTPInvalid
	}

	ok, err := e.totp.VerifyCode(seed, code, time.Now())
	if err != nil || !ok {
		e.metricInc(MetricChallengeFailure)
		e.emitAudit(ctx, AuditChallengeFailure, false, rawUserID, "", ErrTOTPInvalid, nil)
		return nil, ErrTOTPInvalid
	}

	sessionID, err := e.sessions.Issue(ctx, rawUserID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricChallengeSuccess)
	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, AuditChallengeSuccess, true, rawUserID, sessionID, nil, nil)

	return &LoginResult{SessionID: sessionID, User: user.DTO()}, nil
}

// ResolveSession maps a session id to the owning user id. Absence reports
// (0, false, nil); only backend failures produce an error.
func (e *Engine) ResolveSession(ctx context.Context, sessionID string) (int64, bool, error) {
	if !e.ready() {
		return 0, false, ErrEngineNotReady
	}

	rawUserID, found, err := e.sessions.Resolve(ctx, sessionID)
	if err != nil || !found {
		return 0, false, err
	}

	userID, err := parseUserID(rawUserID)
	if err != nil {
		return 0, false, nil
	}
	return userID, true, nil
}

// Logout revokes one session. Revoking an expired or unknown session
// succeeds; logout is idempotent.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	if err := e.sessions.Revoke(ctx, sessionID); err != nil {
		return err
	}

	e.metricInc(MetricLogout)
	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, AuditLogout, true, "", sessionID, nil, nil)
	return nil
}

func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
