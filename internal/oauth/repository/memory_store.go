package repository

import (
	"sync"
	"time"

	"didauto/internal/oauth/domain"
	"didauto/pkg/config"
)

// memorySessionStore is a SessionStore without durable persistence, used in
// tests and as a fallback when no data directory is writable.
type memorySessionStore struct {
	defaults Defaults

	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

func NewMemoryStore(defaults Defaults) SessionStore {
	return &memorySessionStore{
		defaults: defaults,
		sessions: make(map[string]*domain.Session),
	}
}

func (s *memorySessionStore) Create(cfg SessionConfig) (*domain.Session, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = s.defaults.ClientID
	}
	clientSecret := cfg.ClientSecret
	if clientSecret == "" {
		clientSecret = s.defaults.ClientSecret
	}
	redirectURI := cfg.RedirectURI
	if redirectURI == "" {
		redirectURI = s.defaults.RedirectURI
	}
	scope := cfg.Scope
	if scope == "" {
		scope = s.defaults.Scope
	}
	if scope == "" {
		scope = config.DefaultScope
	}

	if clientID == "" || clientSecret == "" {
		return nil, domain.ErrMissingClientCredentials
	}
	if redirectURI == "" {
		return nil, domain.ErrMissingRedirectURI
	}

	state := cfg.State
	if state == "" {
		state = generateState()
	}
	flow := cfg.Flow
	if flow == "" {
		flow = "manual"
	}

	session := &domain.Session{
		State:        state,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		Scope:        scope,
		Flow:         flow,
		CreatedAt:    time.Now(),
	}

	s.mu.Lock()
	s.sessions[state] = session
	s.mu.Unlock()
	return session, nil
}

func (s *memorySessionStore) Get(state string) (*domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[state]
	return session, ok
}

func (s *memorySessionStore) Save(_ *domain.Session) error { return nil }

func (s *memorySessionStore) Restore() error { return nil }

func (s *memorySessionStore) MostRecent() (*domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.Session
	for _, session := range s.sessions {
		if session.AccessToken == "" {
			continue
		}
		if best == nil || session.UpdatedAt.After(best.UpdatedAt) {
			best = session
		}
	}
	return best, best != nil
}
