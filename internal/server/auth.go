// Package server checks connection credentials before the WebSocket handshake
// is allowed to complete.
package server

import (
	"net/http"
	"strings"
)

// Authenticate validates the credentials presented with an upgrade request.
// The auth material is taken from the Authorization header, or from the raw
// query string when the header is absent, and must contain the shared-secret
// token. A failure must refuse the handshake before any connection state is
// created.
func Authenticate(r *http.Request, secret string) error {
	material := r.Header.Get("Authorization")
	if material == "" {
		material = r.URL.RawQuery
	}
	if material == "" || !strings.Contains(material, secret) {
		return ErrAuthenticationFailed
	}
	return nil
}
