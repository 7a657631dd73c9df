package authcore

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Audit event types emitted by the engine. Events describe outcomes, never
// secret material: no password, hash, seed, or one-time code ever appears in
// an event.
const (
	AuditLoginSuccess          = "login_success"
	AuditLoginFailure          = "login_failure"
	AuditChallengeIssued       = "login_challenge_issued"
	AuditChallengeSuccess      = "login_challenge_success"
	AuditChallengeFailure      = "login_challenge_failure"
	AuditLogout                = "logout"
	AuditRegisterSuccess       = "register_success"
	AuditRegisterFailure       = "register_failure"
	AuditPasswordChanged       = "password_change_success"
	AuditPasswordChangeFailed  = "password_change_failure"
	AuditUsernameChanged       = "username_change_success"
	AuditUsernameChangeFailed  = "username_change_failure"
	AuditLocaleChanged         = "locale_change"
	AuditTOTPSetupIssued       = "totp_setup_issued"
	AuditTOTPEnabled           = "totp_enabled"
	AuditTOTPDisabled          = "totp_disabled"
	AuditResetCompleted        = "password_reset_completed"
	AuditResetRejected         = "password_reset_rejected"
)

// AuditEvent is one engine outcome. SessionID is set only on events that
// created or destroyed a session.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives events from the dispatcher goroutine. Emit must not
// panic; a slow sink delays or drops events but never blocks engine calls.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink forwards events to a consumer-owned channel.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan AuditEvent, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line to an io.Writer.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
