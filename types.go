package authcore

import "context"

// User is the persistent account record as seen by the engine. Password
// carries the PHC-encoded hash, never plaintext. TOTPSecret is the encrypted
// seed envelope and Salt its per-record key-derivation salt; both may be set
// while TOTPEnabled is still false during enrollment.
type User struct {
	ID          int64
	Username    string
	Password    string
	TOTPSecret  string
	TOTPEnabled bool
	Salt        string
	Locale      string
	Operator    bool
}

// UserDTO is the externally safe projection of a [User]: no hash, no seed,
// no salt.
type UserDTO struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	TOTPEnabled bool   `json:"totpEnabled"`
	Locale      string `json:"locale"`
	Operator    bool   `json:"operator"`
}

// DTO projects the record onto its response-safe shape.
func (u *User) DTO() UserDTO {
	return UserDTO{
		ID:          u.ID,
		Username:    u.Username,
		TOTPEnabled: u.TOTPEnabled,
		Locale:      u.Locale,
		Operator:    u.Operator,
	}
}

// CreateUserInput carries a fully prepared record for insertion. Password is
// already hashed by the engine.
type CreateUserInput struct {
	Username string
	Password string
	Locale   string
	Operator bool
}

// UserUpdate is a partial patch. Nil fields are left untouched, so callers
// state exactly which columns an operation may change.
type UserUpdate struct {
	Username    *string
	Password    *string
	TOTPSecret  *string
	TOTPEnabled *bool
	Salt        *string
	Locale      *string
}

// UserStore is the persistence boundary the host application implements.
//
// Lookups return (nil, nil) when no record matches; an error always means
// the backend itself failed. Implementations must be safe for concurrent
// use.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	// GetOperators returns every operator record. The engine enforces that
	// at most one exists; the plural shape lets it detect violations.
	GetOperators(ctx context.Context) ([]*User, error)
	// GetFirstOperator returns the lowest-id operator, or (nil, nil) when
	// none exists.
	GetFirstOperator(ctx context.Context) (*User, error)
	Create(ctx context.Context, input CreateUserInput) (*User, error)
	Update(ctx context.Context, id int64, patch UserUpdate) (*User, error)
}

// LoginResult is returned by [Engine.Login]. Exactly one of SessionID or
// ChallengeID is set: a challenge means the password verified but a one-time
// code is still owed.
type LoginResult struct {
	SessionID    string
	ChallengeID  string
	TOTPRequired bool
	User         UserDTO
}

// ProvisioningInfo is the one-time TOTP enrollment payload. Secret is the
// plaintext base32 seed; this is the only surface it ever crosses.
type ProvisioningInfo struct {
	Secret string
	URI    string
}

// RegisterResult is returned by [Engine.Register]: the created operator and
// an immediately usable session.
type RegisterResult struct {
	SessionID string
	User      UserDTO
}

// SupportedLocales is the fixed set of interface languages accepted by
// ChangeLocale and Register.
var SupportedLocales = []string{
	"en-US", "de-DE", "es-ES", "fr-FR", "it-IT", "ja-JP", "pl-PL",
	"pt-BR", "ro-RO", "ru-RU", "sv-SE", "vi-VN", "zh-CN", "zh-TW",
}

const defaultLocale = "en-US"

// IsSupportedLocale reports whether locale is in [SupportedLocales]. The
// match is exact; no tag canonicalization is attempted.
func IsSupportedLocale(locale string) bool {
	for _, l := range SupportedLocales {
		if l == locale {
			return true
		}
	}
	return false
}
