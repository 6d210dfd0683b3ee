// Package session resolves the opaque session identifier that threads
// conversational context through analytics engine calls. This layer
// assumes no internal structure beyond the token prefix; the engine owns
// what a session means.
package session

import (
	"fmt"
	"net/http"
	"time"
)

// Prefix marks tokens minted by this service.
const Prefix = "powerbi_"

// NewID mints a new unique session identifier for the current day.
// Millisecond timestamps keep concurrent sessions distinct.
func NewID() string {
	now := time.Now()
	return fmt.Sprintf("%s%s_%d", Prefix, now.Format("20060102"), now.UnixMilli())
}

// FromToken resolves a session identifier from a client-supplied token.
// A token carrying the service prefix is reused as-is; the literal "new"
// forces a fresh session; anything else falls back to the shared daily
// default session.
func FromToken(token string) string {
	switch {
	case token == "new":
		return NewID()
	case len(token) > len(Prefix) && token[:len(Prefix)] == Prefix:
		return token
	default:
		return fmt.Sprintf("%s%s_default", Prefix, time.Now().Format("20060102"))
	}
}

// FromRequest resolves the session identifier from request metadata.
// The "session" query parameter wins over the X-Session-Id header.
func FromRequest(r *http.Request) string {
	token := r.URL.Query().Get("session")
	if token == "" {
		token = r.Header.Get("X-Session-Id")
	}
	return FromToken(token)
}
