package delivery

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"didauto/internal/oauth/domain"
	"didauto/internal/oauth/repository"
	"didauto/internal/oauth/usecase"
)

// OAuthHandler exposes the interactive authorization flow and manual token
// exchange endpoints.
type OAuthHandler struct {
	store        repository.SessionStore
	orchestrator *usecase.Orchestrator
}

func NewOAuthHandler(store repository.SessionStore, orchestrator *usecase.Orchestrator) *OAuthHandler {
	return &OAuthHandler{store: store, orchestrator: orchestrator}
}

type sessionRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RedirectURI  string `json:"redirectUri"`
	Scope        string `json:"scope"`
	Code         string `json:"code"`
}

// Authorize creates a browser-flow session and returns the provider's
// authorization URL for the popup.
// POST /api/oauth/authorize
func (h *OAuthHandler) Authorize(c *gin.Context) {
	var req sessionRequest
	_ = c.ShouldBindJSON(&req)

	session, err := h.store.Create(repository.SessionConfig{
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		RedirectURI:  req.RedirectURI,
		Scope:        req.Scope,
		Flow:         "browser",
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorizeUrl": h.orchestrator.AuthorizeURL(session),
		"state":        session.State,
	})
}

// Callback receives the provider redirect and exchanges the code. The
// response is a small page that reports the outcome to the opener window.
// GET /oauth/callback and GET /api/oauth/callback
func (h *OAuthHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")

	if state == "" {
		renderCallbackPage(c, http.StatusBadRequest, false, "", "Missing state parameter.")
		return
	}
	session, ok := h.store.Get(state)
	if !ok {
		renderCallbackPage(c, http.StatusNotFound, false, state, "Session expired or unknown, please authorize again.")
		return
	}

	if err := h.orchestrator.ExchangeCode(c.Request.Context(), session, code); err != nil {
		log.Error().Str("component", "oauth").Str("state", state).Err(err).Msg("callback code exchange failed")
		renderCallbackPage(c, http.StatusInternalServerError, false, state, "Exchanging the access token failed, please retry.")
		return
	}
	renderCallbackPage(c, http.StatusOK, true, state, "Authorization complete, you can return to the main page.")
}

// SessionInfo returns the sanitized session for a state token.
// GET /api/oauth/session?state=...
func (h *OAuthHandler) SessionInfo(c *gin.Context) {
	state := c.Query("state")
	if state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state parameter is required"})
		return
	}
	session, ok := h.store.Get(state)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrSessionNotFound.Error()})
		return
	}
	if session.AccessToken == "" {
		c.JSON(http.StatusConflict, gin.H{"error": domain.ErrAuthorizationPending.Error()})
		return
	}
	c.JSON(http.StatusOK, session.Sanitize())
}

// Token creates a manual-flow session and exchanges a pasted authorization
// code.
// POST /api/oauth/token
func (h *OAuthHandler) Token(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code is required"})
		return
	}

	session, err := h.store.Create(repository.SessionConfig{
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		RedirectURI:  req.RedirectURI,
		Scope:        req.Scope,
		Flow:         "manual",
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orchestrator.ExchangeCode(c.Request.Context(), session, req.Code); err != nil {
		log.Error().Str("component", "oauth").Str("state", session.State).Err(err).Msg("token exchange failed")
		status := http.StatusInternalServerError
		var upstream *domain.UpstreamAuthError
		if errors.As(err, &upstream) {
			status = upstream.StatusCode
		}
		c.JSON(status, gin.H{"error": "token exchange failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, session.Sanitize())
}

func renderCallbackPage(c *gin.Context, httpStatus int, success bool, state, message string) {
	heading := "Authorization failed"
	class := "error"
	if success {
		heading = "Authorization complete"
		class = "success"
	}

	page := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>%s</title>
    <style>
      body { font-family: "Segoe UI", sans-serif; padding: 40px; text-align: center; color: #1f2433; }
      h1 { font-size: 24px; margin-bottom: 12px; }
      p { color: #6f7485; }
      .success { color: #16a34a; }
      .error { color: #dc2626; }
    </style>
  </head>
  <body>
    <h1 class="%s">%s</h1>
    <p>%s</p>
    <script>
      (function () {
        const payload = %s;
        if (window.opener && payload.state) {
          window.opener.postMessage(payload, window.location.origin || "*");
          setTimeout(function () {
            try { window.close(); } catch (err) {}
          }, 1500);
        }
      })();
    </script>
  </body>
</html>`, html.EscapeString(heading), class, html.EscapeString(heading), html.EscapeString(message), payloadJSON(success, state, message))

	c.Data(httpStatus, "text/html; charset=utf-8", []byte(page))
}

// payloadJSON encodes the postMessage payload with encoding/json, whose
// default HTML escaping keeps caller-controlled values from breaking out of
// the script element.
func payloadJSON(success bool, state, message string) string {
	data, err := json.Marshal(struct {
		Source  string `json:"source"`
		Success bool   `json:"success"`
		State   string `json:"state"`
		Message string `json:"message"`
	}{Source: "didauto-auth", Success: success, State: state, Message: message})
	if err != nil {
		return `{"source":"didauto-auth","success":false}`
	}
	return string(data)
}
