package auth

import (
	"context"
	"time"
)

// Credential is an opaque remote-access credential. The sync engine never
// inspects the token; it only checks usability.
type Credential struct {
	AccessToken string
	ExpiresAt   time.Time
	Account     string
}

// Usable reports whether the token is valid for at least the skew window
func (c *Credential) Usable(now time.Time, skew time.Duration) bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	return c.ExpiresAt.After(now.Add(skew))
}

// Source supplies remote credentials. UsableCredential must transparently
// refresh a near-expired credential and return (nil, nil) only when no valid
// credential can be produced without user interaction; the sync coordinator
// treats nil as "remote unreachable" and defers rather than errors.
type Source interface {
	UsableCredential(ctx context.Context) (*Credential, error)
}

// StaticSource serves a fixed token that never expires. Used for the mock
// REST backend and in tests; an empty token means permanently unauthenticated.
type StaticSource struct {
	Token   string
	Account string
}

// UsableCredential implements Source
func (s *StaticSource) UsableCredential(ctx context.Context) (*Credential, error) {
	if s.Token == "" {
		return nil, nil
	}
	return &Credential{
		AccessToken: s.Token,
		ExpiresAt:   time.Now().Add(24 * time.Hour),
		Account:     s.Account,
	}, nil
}
