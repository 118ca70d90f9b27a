// ABOUTME: Centralized authentication guard and token inspection.
// ABOUTME: JWTs are decoded without verification only to read exp; opaque tokens pass through.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/2389-research/sociality/internal/session"
)

// Guard decides whether a credential-requiring flow may start.
type Guard struct {
	session *session.Session
	now     func() time.Time
}

// NewGuard creates a guard over sess.
func NewGuard(sess *session.Session) *Guard {
	return &Guard{session: sess, now: time.Now}
}

// Require returns nil when a usable token is stored.
func (g *Guard) Require() error {
	token := g.session.Token()
	if token == "" {
		return ErrAuthRequired
	}
	info := Inspect(token)
	if info.Expired(g.now()) {
		return ErrTokenExpired
	}
	return nil
}

// TokenInfo is what can be read from a token without the signing key.
type TokenInfo struct {
	JWT       bool
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the token carries an exp claim that has passed.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// Inspect decodes a JWT's claims without verifying the signature.
func Inspect(token string) TokenInfo {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}
	}
	info := TokenInfo{JWT: true}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info
}

// IsAuthError reports whether err came from the guard.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthRequired) || errors.Is(err, ErrTokenExpired)
}
