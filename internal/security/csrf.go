package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// CSRFHeader carries the CSRF token on cookie-authenticated mutations
const CSRFHeader = "X-CSRF-Token"

// ErrMissingSession is returned when a CSRF token is requested without a session
var ErrMissingSession = errors.New("session ID is required")

// CSRFGenerator derives CSRF tokens from the session ID with HMAC-SHA256.
// No token state is stored, so any replica can validate any token.
type CSRFGenerator struct {
	secret []byte
}

// NewCSRFGenerator creates a generator keyed by secret
func NewCSRFGenerator(secret string) *CSRFGenerator {
	return &CSRFGenerator{secret: []byte(secret)}
}

// Token returns the CSRF token bound to sessionID
func (g *CSRFGenerator) Token(sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrMissingSession
	}
	return hex.EncodeToString(g.sum(sessionID)), nil
}

// Valid reports whether token was issued for sessionID
func (g *CSRFGenerator) Valid(sessionID, token string) bool {
	if sessionID == "" || token == "" {
		return false
	}
	got, err := hex.DecodeString(token)
	if err != nil {
		return false
	}
	return hmac.Equal(g.sum(sessionID), got)
}

func (g *CSRFGenerator) sum(sessionID string) []byte {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(sessionID))
	return mac.Sum(nil)
}
