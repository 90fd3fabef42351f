// Package session provides cookie session storage backends.
package session

import (
	"context"
	"errors"
)

// Session is the identity carried by the cb_session cookie: who is
// signed in and which organization their requests are scoped to.
type Session struct {
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id"`
}

var ErrNotFound = errors.New("session not found")

// Store issues and resolves session cookie values. The cookie value is
// opaque to callers; depending on the backend it is either a signed
// claims payload or a random id pointing at server-side state.
type Store interface {
	Create(ctx context.Context, sess Session) (string, error)
	Lookup(ctx context.Context, value string) (Session, error)
	Revoke(ctx context.Context, value string) error
}
