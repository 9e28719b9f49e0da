package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingClientCredentials is returned when a session is created
	// without a client id/secret and no process-wide defaults exist.
	ErrMissingClientCredentials = errors.New("missing dida clientId or clientSecret")

	// ErrMissingRedirectURI is returned when no redirect URI is configured.
	ErrMissingRedirectURI = errors.New("missing redirectUri")

	// ErrMissingRefreshToken means a refresh was requested for a session that
	// never received a refresh token.
	ErrMissingRefreshToken = errors.New("session has no refresh token")

	// ErrMissingAuthorizationCode means re-authorization was requested for a
	// session that has no stored authorization code.
	ErrMissingAuthorizationCode = errors.New("session has no stored authorization code")

	// ErrReauthorizationRequired means every automatic recovery path is
	// exhausted and the user must complete a fresh interactive flow.
	ErrReauthorizationRequired = errors.New("authorization lost, re-authorization required")

	// ErrSessionNotFound is returned for an unknown state token.
	ErrSessionNotFound = errors.New("oauth session not found")

	// ErrAuthorizationPending means the session exists but the interactive
	// flow has not completed yet.
	ErrAuthorizationPending = errors.New("authorization not completed yet")

	// ErrNoCredentialSupplied means a request carried neither an oauthState
	// nor a bare access token.
	ErrNoCredentialSupplied = errors.New("missing accessToken or oauthState")
)

// UpstreamAuthError is a token grant rejected by the OAuth provider. The
// provider's error body is retained for diagnostics.
type UpstreamAuthError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamAuthError) Error() string {
	return fmt.Sprintf("oauth provider rejected grant: status %d: %s", e.StatusCode, e.Body)
}
