package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthenticate_AcceptsHeaderContainingSecret(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer 11713-session")

	require.NoError(t, Authenticate(r, "11713"))
}

func TestAuthenticate_AcceptsQueryStringContainingSecret(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=11713", nil)

	require.NoError(t, Authenticate(r, "11713"))
}

func TestAuthenticate_HeaderTakesPrecedenceOverQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=11713", nil)
	r.Header.Set("Authorization", "Bearer wrong")

	require.ErrorIs(t, Authenticate(r, "11713"), ErrAuthenticationFailed)
}

func TestAuthenticate_RejectsMissingCredentials(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws", nil)

	require.ErrorIs(t, Authenticate(r, "11713"), ErrAuthenticationFailed)
}

func TestAuthenticate_RejectsTokenWithoutSecret(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=1171", nil)

	require.ErrorIs(t, Authenticate(r, "11713"), ErrAuthenticationFailed)
}
