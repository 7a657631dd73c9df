package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

// SessionID is a 128-bit crypto-random session identifier. Sessions and login
// challenges deliberately use different generators: a challenge id must never
// be mistakable for (or replayable as) a session key.
type SessionID [16]byte

func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

// String renders the id as unpadded base64url, compact and cookie-safe.
func (s SessionID) String() string {
	return base64.RawURLEncoding.EncodeToString(s[:])
}

func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, err
	}
	if len(raw) != len(sid) {
		return sid, errors.New("invalid session id size")
	}

	copy(sid[:], raw)
	return sid, nil
}

// NewChallengeID returns a fresh identifier for the half-authenticated
// second-factor step.
func NewChallengeID() string {
	return uuid.NewString()
}
