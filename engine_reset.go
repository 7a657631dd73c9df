package authcore

import (
	"context"
	"log"
)

// RequestPasswordReset arms the out-of-band reset flow by writing the marker.
// Intended for host-local tooling; requesting while already armed is a no-op.
func (e *Engine) RequestPasswordReset(ctx context.Context) error {
	if e == nil || e.resetMarker == nil {
		return ErrEngineNotReady
	}
	return e.resetMarker.Request(ctx)
}

// ResetRequested reports whether the reset flow is currently armed.
func (e *Engine) ResetRequested(ctx context.Context) (bool, error) {
	if e == nil || e.resetMarker == nil {
		return false, ErrEngineNotReady
	}
	return e.resetMarker.Requested(ctx)
}

// CompletePasswordReset sets a new password for the operator account while
// the marker is armed, revokes all of its sessions, drops any TOTP
// enrollment, and disarms the marker. It returns the operator's username so
// the caller can show who the reset applied to.
//
// TOTP is cleared because the reset path exists precisely for the operator
// who lost access to both password and authenticator.
func (e *Engine) CompletePasswordReset(ctx context.Context, next string) (string, error) {
	if !e.ready() || e.resetMarker == nil {
		return "", ErrEngineNotReady
	}

	armed, err := e.resetMarker.Requested(ctx)
	if err != nil {
		return "", err
	}
	if !armed {
		e.metricInc(MetricResetRejected)
		e.emitAudit(ctx, AuditResetRejected, false, "", "", ErrNoResetRequest, nil)
		return "", ErrNoResetRequest
	}

	operator, err := e.users.GetFirstOperator(ctx)
	if err != nil {
		return "", wrapStoreErr(err)
	}
	if operator == nil {
		e.metricInc(MetricResetRejected)
		e.emitAudit(ctx, AuditResetRejected, false, "", "", ErrOperatorNotFound, nil)
		return "", ErrOperatorNotFound
	}

	if len(next) < e.config.Password.MinLength {
		return "", ErrPasswordTooShort
	}

	hash, err := e.passwordHash.Hash(next)
	if err != nil {
		return "", err
	}

	disabled := false
	empty := ""
	if _, err := e.users.Update(ctx, operator.ID, UserUpdate{
		Password:    &hash,
		TOTPEnabled: &disabled,
		TOTPSecret:  &empty,
	}); err != nil {
		return "", wrapStoreErr(err)
	}

	if err := e.revokeAllSessions(ctx, operator.ID); err != nil {
		return "", err
	}

	// Disarm last so a crash mid-reset leaves the flow armed rather than a
	// half-reset account behind a consumed marker.
	if _, err := e.resetMarker.Clear(ctx); err != nil {
		log.Print("authcore: reset marker clear failed: ", err)
	}

	e.metricInc(MetricResetCompleted)
	e.emitAudit(ctx, AuditResetCompleted, true, formatUserID(operator.ID), "", nil, nil)

	return operator.Username, nil
}
