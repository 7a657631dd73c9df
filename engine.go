package authcore

import (
	"context"
	"log"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/dashfold/authcore/marker"
	"github.com/dashfold/authcore/password"
	"github.com/dashfold/authcore/secretbox"
	"github.com/dashfold/authcore/session"
)

// Engine is the authentication and session lifecycle core. Construct it with
// [Builder.Build]; a zero Engine returns [ErrEngineNotReady] from every
// operation. All methods are safe for concurrent use.
type Engine struct {
	config       Config
	users        UserStore
	sessions     *session.Store
	secrets      *secretbox.Codec
	passwordHash *password.Argon2
	totp         *totpManager
	resetMarker  marker.Marker
	audit        *auditDispatcher
	metrics      *Metrics
}

// Close flushes and stops the audit dispatcher. The engine must not be used
// afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

func (e *Engine) ready() bool {
	return e != nil && e.users != nil && e.sessions != nil &&
		e.passwordHash != nil && e.totp != nil && e.secrets != nil
}

// AuditDropped returns the number of audit events shed under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the current counter values.
func (e *Engine) MetricsSnapshot() map[MetricID]uint64 {
	if e == nil {
		return map[MetricID]uint64{}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

// emitAudit queues one event. meta is lazily built so disabled audit pays
// nothing for metadata assembly.
func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, userID, sessionID string, opErr error, meta func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		Success:   success,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}
	if meta != nil {
		event.Metadata = meta()
	}

	e.audit.Emit(ctx, event)
}

func formatUserID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseUserID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// normalizeUsername lowercases and trims. Lookups and uniqueness checks all
// go through here, so "User@Example.com" and "user@example.com" are the same
// account.
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

const minUsernameLength = 3

// validateUsername accepts addresses only: the dashboard uses the email
// address as the account identifier.
func validateUsername(username string) error {
	if len(username) < minUsernameLength {
		return ErrInvalidUsername
	}
	addr, err := mail.ParseAddress(username)
	if err != nil || addr.Address != username {
		return ErrInvalidUsername
	}
	return nil
}

// upgradeHashIfNeeded re-hashes the password under current cost parameters
// after a successful verification. Failures are logged and swallowed; the
// login itself already succeeded.
func (e *Engine) upgradeHashIfNeeded(ctx context.Context, user *User, plaintext string) {
	if !e.config.Password.UpgradeOnVerify {
		return
	}

	needs, err := e.passwordHash.NeedsUpgrade(user.Password)
	if err != nil || !needs {
		return
	}

	newHash, err := e.passwordHash.Hash(plaintext)
	if err != nil {
		log.Print("authcore: password upgrade hash failed: ", err)
		return
	}
	if _, err := e.users.Update(ctx, user.ID, UserUpdate{Password: &newHash}); err != nil {
		log.Print("authcore: password upgrade store failed: ", err)
		return
	}
	e.metricInc(MetricPasswordUpgraded)
}
