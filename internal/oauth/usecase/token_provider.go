package usecase

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"didauto/internal/oauth/domain"
)

// TokenProvider is the per-request facade over "get me a usable token" and
// "recover from a 401". Session-backed providers refresh transparently;
// direct-token providers are static and cannot recover.
type TokenProvider struct {
	session      *domain.Session
	orchestrator *Orchestrator
	directToken  string
	refreshCount atomic.Int32
}

// NewSessionProvider wraps a stored session with auto-refresh behavior.
func NewSessionProvider(orchestrator *Orchestrator, session *domain.Session) *TokenProvider {
	return &TokenProvider{session: session, orchestrator: orchestrator}
}

// NewStaticProvider wraps a caller-supplied bare access token.
func NewStaticProvider(token string) *TokenProvider {
	return &TokenProvider{directToken: token}
}

// State returns the backing session's state token, or "" for direct tokens.
func (p *TokenProvider) State() string {
	if p.session != nil {
		return p.session.State
	}
	return ""
}

// Session exposes the backing session for diagnostics (expiry reporting).
func (p *TokenProvider) Session() *domain.Session { return p.session }

// Token resolves the current access token. Session-backed providers validate
// lazily so a fresh cached token costs no network round trip.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	if p.session != nil {
		return p.orchestrator.EnsureValid(ctx, p.session)
	}
	return p.directToken, nil
}

// HandleUnauthorized is invoked once after a downstream 401. It attempts a
// refresh, then re-authorization from the stored code, and reports whether
// either produced a usable token.
func (p *TokenProvider) HandleUnauthorized(ctx context.Context) bool {
	if p.session == nil {
		return false
	}

	if err := p.orchestrator.Refresh(ctx, p.session); err != nil {
		log.Warn().Err(err).Str("state", p.session.State).Msg("refresh after 401 failed")
		if err := p.orchestrator.ReauthorizeFromCode(ctx, p.session); err != nil {
			log.Warn().Err(err).Str("state", p.session.State).Msg("re-authorization with stored code failed")
			return false
		}
	}

	p.refreshCount.Add(1)
	return true
}

// RefreshCount reports how many successful recoveries happened during this
// provider's lifetime, surfaced to clients so a UI can show that silent
// re-auth occurred.
func (p *TokenProvider) RefreshCount() int {
	return int(p.refreshCount.Load())
}

// ResolveProvider builds a TokenProvider from request credentials: an
// oauthState referencing a stored session, or a bare access token. Session
// tokens are validated eagerly so auth problems surface before any API call.
func (o *Orchestrator) ResolveProvider(ctx context.Context, oauthState, accessToken string) (*TokenProvider, *domain.Session, error) {
	if oauthState != "" {
		session, ok := o.store.Get(oauthState)
		if !ok {
			return nil, nil, domain.ErrSessionNotFound
		}
		if _, err := o.EnsureValid(ctx, session); err != nil {
			return nil, nil, err
		}
		return NewSessionProvider(o, session), session, nil
	}
	if accessToken != "" {
		return NewStaticProvider(accessToken), nil, nil
	}
	return nil, nil, domain.ErrNoCredentialSupplied
}
