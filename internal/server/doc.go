// Package server implements the core HTTP and WebSocket functionality for the
// roomrelay chat service.
//
// The implementation is organized into specialized files for configuration,
// authentication, session coordination, room membership, hub management,
// clients, routing, and HTTP handlers to keep the codebase maintainable and
// testable as the project grows.
package server
