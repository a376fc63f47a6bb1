package server

import "errors"

// Sentinel errors surfaced to the originating connection when an event is
// rejected. Each error is local to the event that triggered it; shared state
// is never left half-mutated.
var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotAMember           = errors.New("not a member of this room")
	ErrMalformedPayload     = errors.New("malformed payload")
)
