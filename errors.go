package authcore

import (
	"errors"

	"github.com/dashfold/authcore/session"
)

var (
	// ErrUserNotFound is returned when no user record matches the given
	// username or id.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned by Login when the password does not
	// match the stored hash.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidPassword is returned by settings-style operations that
	// re-verify the password before mutating state.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrChallengeNotFound is returned when a login challenge id does not
	// resolve: expired, already consumed, or never issued.
	ErrChallengeNotFound = errors.New("login challenge not found")
	// ErrTOTPInvalid is returned when a submitted one-time code does not
	// verify against the user's seed.
	ErrTOTPInvalid = errors.New("invalid totp code")
	// ErrTOTPNotEnabled is returned when an operation requires an enrolled
	// second factor and the user has none.
	ErrTOTPNotEnabled = errors.New("totp not enabled")
	// ErrTOTPAlreadyEnabled is returned when TOTP enrollment is requested for
	// a user that already has it, and by EnableTOTP when no setup is pending.
	ErrTOTPAlreadyEnabled = errors.New("totp already enabled")
	// ErrAdminAlreadyExists is returned by Register once an operator row
	// exists; the system holds at most one.
	ErrAdminAlreadyExists = errors.New("operator account already exists")
	// ErrMissingCredentials is returned by Register when username or password
	// is empty.
	ErrMissingCredentials = errors.New("username and password required")
	// ErrInvalidUsername is returned when a username is not a syntactically
	// valid address of at least three characters.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrUserExists is returned when the requested username is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrCreateFailed is returned when the user store rejects row creation.
	ErrCreateFailed = errors.New("user creation failed")
	// ErrNotAllowedInDemoMode guards mutations that are disabled on demo
	// deployments.
	ErrNotAllowedInDemoMode = errors.New("not allowed in demo mode")
	// ErrPasswordTooShort is returned when a new password does not meet the
	// configured minimum length.
	ErrPasswordTooShort = errors.New("password too short")
	// ErrInvalidLocale is returned when a locale is outside the supported set.
	ErrInvalidLocale = errors.New("unsupported locale")
	// ErrNoResetRequest is returned by CompletePasswordReset when no reset
	// marker is present.
	ErrNoResetRequest = errors.New("no password reset request pending")
	// ErrOperatorNotFound is returned by CompletePasswordReset when the
	// marker exists but no operator row does.
	ErrOperatorNotFound = errors.New("operator not found")
	// ErrStoreUnavailable wraps transient user-store failures; distinct from
	// every domain error above and never expected in steady state.
	ErrStoreUnavailable = errors.New("user store unavailable")
	// ErrEngineNotReady is returned when the engine is used before Build
	// wired its dependencies.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ErrCacheUnavailable wraps transient cache failures from the session layer.
var ErrCacheUnavailable = session.ErrRedisUnavailable

// Kind partitions engine errors into the coarse classes a transport layer
// needs for status mapping. Domain kinds are expected outcomes; KindInfra is
// the only class worth alerting on.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindUnauthorized
	KindConflict
	KindInvalidInput
	KindForbidden
	KindInfra
)

// Classify maps an engine error onto its [Kind]. Unrecognized errors classify
// as KindInfra: anything the sentinel set does not cover came from a backend.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrChallengeNotFound),
		errors.Is(err, ErrNoResetRequest),
		errors.Is(err, ErrOperatorNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrTOTPInvalid):
		return KindUnauthorized
	case errors.Is(err, ErrAdminAlreadyExists),
		errors.Is(err, ErrUserExists),
		errors.Is(err, ErrTOTPAlreadyEnabled),
		errors.Is(err, ErrTOTPNotEnabled):
		return KindConflict
	case errors.Is(err, ErrMissingCredentials),
		errors.Is(err, ErrInvalidUsername),
		errors.Is(err, ErrPasswordTooShort),
		errors.Is(err, ErrInvalidLocale):
		return KindInvalidInput
	case errors.Is(err, ErrNotAllowedInDemoMode):
		return KindForbidden
	default:
		return KindInfra
	}
}
