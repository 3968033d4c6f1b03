// Package session keeps the one piece of client state the portal persists: the
// bearer credential issued by the Student Hub API, keyed by an opaque session id.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrSessionNotFound indicates the session id is unknown or expired.
	ErrSessionNotFound = errors.New("session not found")
	// ErrEmptyCredential indicates an attempt to store a blank credential.
	ErrEmptyCredential = errors.New("credential must not be empty")
)

// Session is the explicit credential context handed to every request-issuing call.
type Session struct {
	ID         string
	Credential string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Valid reports whether the session carries a credential.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.Credential) != ""
}

// Expired reports whether the session can no longer authorize requests at now.
// A JWT credential whose exp claim has passed counts as expired; opaque
// credentials are only judged by the store expiry.
func (s Session) Expired(now time.Time) bool {
	if !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt) {
		return true
	}
	exp, ok := CredentialExpiry(s.Credential)
	return ok && !now.Before(exp)
}

// CredentialExpiry reads the exp claim from a JWT credential without verifying
// its signature. The backend remains the authority; this only avoids sending a
// credential that is already known to be stale.
func CredentialExpiry(credential string) (time.Time, bool) {
	credential = strings.TrimSpace(credential)
	if strings.Count(credential, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Store persists sessions.
type Store interface {
	Create(ctx context.Context, credential string) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}
