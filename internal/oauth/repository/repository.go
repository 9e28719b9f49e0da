package repository

import (
	"didauto/internal/oauth/domain"
)

// SessionConfig carries per-call OAuth app settings for Create. Empty fields
// fall back to the store's process-wide defaults.
type SessionConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scope        string
	State        string
	Flow         string
}

// Defaults are the process-wide OAuth app settings sourced from config.
type Defaults struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scope        string
}

// SessionStore defines durable persistence for OAuth sessions. Every
// mutating operation rewrites the full snapshot so a process restart never
// loses credentials.
type SessionStore interface {
	// Create registers a new session, generating a random state when none is
	// supplied. Fails with domain.ErrMissingClientCredentials or
	// domain.ErrMissingRedirectURI when required settings are absent.
	Create(cfg SessionConfig) (*domain.Session, error)

	// Get returns the session for a state token.
	Get(state string) (*domain.Session, bool)

	// Save persists the current snapshot of every session. Called after each
	// token mutation.
	Save(session *domain.Session) error

	// Restore loads the persisted snapshot on startup. A corrupt or missing
	// snapshot yields an empty store, not an error.
	Restore() error

	// MostRecent returns the most recently updated session that holds an
	// access token, used to bind the periodic sync job to a credential.
	MostRecent() (*domain.Session, bool)
}
