package session

import (
	"context"
	"time"

	"cookbase/internal/auth"
)

// CookieStore is the stateless backend. The cookie value is a signed
// claims payload, so there is nothing to store server-side and Revoke
// cannot invalidate a value before its expiry.
type CookieStore struct {
	secret []byte
	ttl    time.Duration
}

func NewCookieStore(secret string, ttl time.Duration) *CookieStore {
	return &CookieStore{secret: []byte(secret), ttl: ttl}
}

func (s *CookieStore) Create(ctx context.Context, sess Session) (string, error) {
	return auth.IssueToken(s.secret, auth.Claims{
		Sub: sess.UserID,
		Org: sess.OrgID,
		Exp: time.Now().Add(s.ttl).Unix(),
	})
}

func (s *CookieStore) Lookup(ctx context.Context, value string) (Session, error) {
	claims, err := auth.ParseToken(s.secret, value)
	if err != nil {
		return Session{}, ErrNotFound
	}
	return Session{UserID: claims.Sub, OrgID: claims.Org}, nil
}

func (s *CookieStore) Revoke(ctx context.Context, value string) error {
	return nil
}
