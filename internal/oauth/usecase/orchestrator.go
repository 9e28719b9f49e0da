// Package usecase implements the OAuth token lifecycle: authorization-code
// exchange, coalesced refresh, and best-effort re-authorization from the last
// known code when a refresh token stops working.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"didauto/internal/oauth/domain"
	"didauto/internal/oauth/repository"
)

// Orchestrator drives the per-session grant state machine against the
// provider's token endpoint. All token mutations go through here.
type Orchestrator struct {
	store       repository.SessionStore
	authBaseURL string
	flight      singleflight.Group
	now         func() time.Time
}

func NewOrchestrator(store repository.SessionStore, authBaseURL string) *Orchestrator {
	return &Orchestrator{
		store:       store,
		authBaseURL: strings.TrimRight(authBaseURL, "/"),
		now:         time.Now,
	}
}

func (o *Orchestrator) oauthConfig(session *domain.Session) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     session.ClientID,
		ClientSecret: session.ClientSecret,
		RedirectURL:  session.RedirectURI,
		Scopes:       strings.Fields(session.Scope),
		Endpoint: oauth2.Endpoint{
			AuthURL:  o.authBaseURL + "/oauth/authorize",
			TokenURL: o.authBaseURL + "/oauth/token",
			// The provider requires HTTP Basic client authentication.
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// AuthorizeURL builds the interactive authorization URL for a session.
func (o *Orchestrator) AuthorizeURL(session *domain.Session) string {
	return o.oauthConfig(session).AuthCodeURL(session.State)
}

// ExchangeCode posts an authorization-code grant and stores the resulting
// tokens on the session. The code is retained as LastCode for fallback
// re-authorization.
func (o *Orchestrator) ExchangeCode(ctx context.Context, session *domain.Session, code string) error {
	if code == "" {
		return domain.ErrMissingAuthorizationCode
	}

	token, err := o.oauthConfig(session).Exchange(ctx, code)
	if err != nil {
		return wrapGrantError(err)
	}

	session.Lock()
	session.ApplyToken(token.AccessToken, token.RefreshToken, token.TokenType, tokenScope(token), token.ExpiresIn, o.now())
	session.LastCode = code
	session.Unlock()

	return o.store.Save(session)
}

// Refresh posts a refresh-token grant. Concurrent callers for the same
// session are coalesced into a single outbound request: refresh tokens are
// single-use, racing refreshes would invalidate each other.
func (o *Orchestrator) Refresh(ctx context.Context, session *domain.Session) error {
	if session.RefreshToken == "" {
		return domain.ErrMissingRefreshToken
	}

	_, err, _ := o.flight.Do(session.State, func() (interface{}, error) {
		source := o.oauthConfig(session).TokenSource(ctx, &oauth2.Token{
			RefreshToken: session.RefreshToken,
		})
		token, err := source.Token()
		if err != nil {
			return nil, wrapGrantError(err)
		}

		session.Lock()
		session.ApplyToken(token.AccessToken, token.RefreshToken, token.TokenType, tokenScope(token), token.ExpiresIn, o.now())
		session.Unlock()

		return nil, o.store.Save(session)
	})
	return err
}

// ReauthorizeFromCode retries the full code exchange with the last known
// authorization code. Some providers invalidate refresh tokens
// unpredictably; this is the best-effort recovery before forcing the user
// through the interactive flow again.
func (o *Orchestrator) ReauthorizeFromCode(ctx context.Context, session *domain.Session) error {
	if session.LastCode == "" {
		return domain.ErrMissingAuthorizationCode
	}
	return o.ExchangeCode(ctx, session, session.LastCode)
}

// EnsureValid resolves a usable access token for the session, refreshing or
// re-authorizing as needed. Returns domain.ErrReauthorizationRequired once
// every automatic path is exhausted.
func (o *Orchestrator) EnsureValid(ctx context.Context, session *domain.Session) (string, error) {
	if session.AccessToken == "" {
		if err := o.ReauthorizeFromCode(ctx, session); err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrReauthorizationRequired, err)
		}
	}

	if session.Expired(o.now()) {
		if err := o.Refresh(ctx, session); err != nil {
			log.Warn().Err(err).Str("state", session.State).Msg("token refresh failed, retrying with stored code")
			if err := o.ReauthorizeFromCode(ctx, session); err != nil {
				return "", fmt.Errorf("%w: %v", domain.ErrReauthorizationRequired, err)
			}
		}
	}

	return session.AccessToken, nil
}

func tokenScope(token *oauth2.Token) string {
	if scope, ok := token.Extra("scope").(string); ok {
		return scope
	}
	return ""
}

func wrapGrantError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return &domain.UpstreamAuthError{
			StatusCode: retrieveErr.Response.StatusCode,
			Body:       string(retrieveErr.Body),
		}
	}
	return fmt.Errorf("token endpoint unreachable: %w", err)
}
