package domain

import (
	"sync"
	"time"
)

const (
	// TokenExpiryBuffer is subtracted from the provider-reported lifetime so a
	// token is refreshed before it actually expires mid-request.
	TokenExpiryBuffer = 60 * time.Second
	// TokenExpiryFloor is the minimum usable lifetime kept after buffering.
	TokenExpiryFloor = 10 * time.Second
)

// Session is a durable OAuth credential record keyed by an opaque state.
// The app config fields are captured at creation time and never change;
// token fields are overwritten on every successful exchange or refresh.
type Session struct {
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
	// LastCode is the last authorization code successfully exchanged. It is
	// kept so a session whose refresh token stops working can be
	// re-authorized without a new interactive flow.
	LastCode string `json:"lastCode,omitempty"`

	mu sync.Mutex
}

// Lock serializes token-field mutations across concurrent requests.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session mutation lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// ApplyToken stores a token grant on the session. expiresIn of zero means the
// provider did not report a lifetime and expiry tracking is disabled.
func (s *Session) ApplyToken(accessToken, refreshToken, tokenType, scope string, expiresIn int64, now time.Time) {
	s.AccessToken = accessToken
	if refreshToken != "" {
		s.RefreshToken = refreshToken
	}
	if tokenType != "" {
		s.TokenType = tokenType
	} else {
		s.TokenType = "Bearer"
	}
	if scope != "" {
		s.Scope = scope
	}
	s.ExpiresIn = expiresIn
	if expiresIn > 0 {
		lifetime := time.Duration(expiresIn)*time.Second - TokenExpiryBuffer
		if lifetime < TokenExpiryFloor {
			lifetime = TokenExpiryFloor
		}
		expiresAt := now.Add(lifetime)
		s.ExpiresAt = &expiresAt
	} else {
		s.ExpiresAt = nil
	}
	s.UpdatedAt = now
}

// Expired reports whether the stored access token has passed its buffered
// expiry. Sessions without a reported expiry never count as expired.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// Sanitized is the session view returned to API callers. The client secret
// and refresh token never leave the process.
type Sanitized struct {
	State           string     `json:"state"`
	Scope           string     `json:"scope"`
	RedirectURI     string     `json:"redirectUri"`
	AccessToken     string     `json:"accessToken,omitempty"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	HasRefreshToken bool       `json:"hasRefreshToken"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (s *Session) Sanitize() Sanitized {
	return Sanitized{
		State:           s.State,
		Scope:           s.Scope,
		RedirectURI:     s.RedirectURI,
		AccessToken:     s.AccessToken,
		ExpiresAt:       s.ExpiresAt,
		HasRefreshToken: s.RefreshToken != "",
		UpdatedAt:       s.UpdatedAt,
	}
}
