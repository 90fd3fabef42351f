package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a prefixed 128-bit random identifier, e.g. rec_3f2a…
// Prefixes in use: org, usr, rec, note, inv, act, mt, cui, sess, photo.
// Invitation ids double as invite-link tokens, so ids must stay
// unguessable.
func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}
