package repository

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"didauto/internal/oauth/domain"
	"didauto/pkg/config"
)

// fileSessionStore keeps sessions in memory and mirrors every mutation to a
// JSON snapshot file. Simple full rewrites, correctness over throughput.
type fileSessionStore struct {
	path     string
	defaults Defaults

	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewFileStore creates a session store backed by a JSON snapshot at path.
func NewFileStore(path string, defaults Defaults) SessionStore {
	return &fileSessionStore{
		path:     path,
		defaults: defaults,
		sessions: make(map[string]*domain.Session),
	}
}

func (s *fileSessionStore) Create(cfg SessionConfig) (*domain.Session, error) {
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

	if err := s.persistAll(); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *fileSessionStore) Get(state string) (*domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[state]
	return session, ok
}

func (s *fileSessionStore) Save(_ *domain.Session) error {
	return s.persistAll()
}

func (s *fileSessionStore) MostRecent() (*domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]*domain.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		if session.AccessToken != "" {
			candidates = append(candidates, session)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].UpdatedAt.After(candidates[j].UpdatedAt)
	})
	return candidates[0], true
}

// sessionRecord is the on-disk shape of a session. It mirrors the json tags
// of domain.Session so snapshots written by either remain loadable.
type sessionRecord struct {
	State        string     `json:"state"`
	ClientID     string     `json:"clientId"`
	ClientSecret string     `json:"clientSecret"`
	RedirectURI  string     `json:"redirectUri"`
	Scope        string     `json:"scope"`
	Flow         string     `json:"flow"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	AccessToken  string     `json:"accessToken,omitempty"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	TokenType    string     `json:"tokenType,omitempty"`
	ExpiresIn    int64      `json:"expiresIn,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	LastCode     string     `json:"lastCode,omitempty"`
}

// recordOf copies the session's fields under its lock so a snapshot taken
// while another session refreshes never reads a half-written token.
func recordOf(session *domain.Session) sessionRecord {
	session.Lock()
	defer session.Unlock()
	return sessionRecord{
		State:        session.State,
		ClientID:     session.ClientID,
		ClientSecret: session.ClientSecret,
		RedirectURI:  session.RedirectURI,
		Scope:        session.Scope,
		Flow:         session.Flow,
		CreatedAt:    session.CreatedAt,
		UpdatedAt:    session.UpdatedAt,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    session.TokenType,
		ExpiresIn:    session.ExpiresIn,
		ExpiresAt:    session.ExpiresAt,
		LastCode:     session.LastCode,
	}
}

// persistAll serializes the credential fields of every session. Each session
// is copied under its own lock, so an in-flight refresh cannot tear a record.
func (s *fileSessionStore) persistAll() error {
	s.mu.RLock()
	snapshot := make([]sessionRecord, 0, len(s.sessions))
	for _, session := range s.sessions {
		snapshot = append(snapshot, recordOf(session))
	}
	s.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].CreatedAt.Before(snapshot[j].CreatedAt)
	})

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *fileSessionStore) Restore() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", s.path).Msg("failed to read oauth session snapshot")
		}
		return nil
	}

	var saved []*domain.Session
	if err := json.Unmarshal(data, &saved); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("corrupt oauth session snapshot, starting empty")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range saved {
		if session != nil && session.State != "" {
			s.sessions[session.State] = session
		}
	}
	return nil
}

func generateState() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return "didauto_" + hex.EncodeToString(buf)
}
