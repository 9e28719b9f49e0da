package delivery

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	oauthdomain "didauto/internal/oauth/domain"
	"didauto/internal/oauth/repository"
	oauthusecase "didauto/internal/oauth/usecase"
	"didauto/internal/submission/usecase"
	taskusecase "didauto/internal/task/usecase"
)

// SubmissionHandler serves the ledger views and the manual sync trigger.
type SubmissionHandler struct {
	store        repository.SessionStore
	orchestrator *oauthusecase.Orchestrator
	tasks        taskusecase.TaskUsecase
	sync         usecase.SyncUsecase
}

func NewSubmissionHandler(
	store repository.SessionStore,
	orchestrator *oauthusecase.Orchestrator,
	tasks taskusecase.TaskUsecase,
	sync usecase.SyncUsecase,
) *SubmissionHandler {
	return &SubmissionHandler{store: store, orchestrator: orchestrator, tasks: tasks, sync: sync}
}

// List returns ledger entries, optionally filtered by time range or project.
// GET /api/submissions?range=7d and GET /api/submissions?projectId=...
func (h *SubmissionHandler) List(c *gin.Context) {
	if projectID := c.Query("projectId"); projectID != "" {
		entries, err := h.tasks.ProjectSubmissions(projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries})
		return
	}

	entries, err := h.tasks.Submissions(c.DefaultQuery("range", "7d"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type syncRequest struct {
	OauthState  string `json:"oauthState"`
	AccessToken string `json:"accessToken"`
}

// TriggerSync runs a sync pass immediately. Credentials in the body take
// precedence; otherwise the most recently authorized session is used, the
// same one the background scheduler binds to.
// POST /api/sync
func (h *SubmissionHandler) TriggerSync(c *gin.Context) {
	var req syncRequest
	_ = c.ShouldBindJSON(&req)

	provider, _, err := h.orchestrator.ResolveProvider(c.Request.Context(), req.OauthState, req.AccessToken)
	if errors.Is(err, oauthdomain.ErrNoCredentialSupplied) {
		session, ok := h.store.MostRecent()
		if !ok {
			c.JSON(http.StatusConflict, gin.H{"error": "no authorized session available for sync"})
			return
		}
		provider = oauthusecase.NewSessionProvider(h.orchestrator, session)
		err = nil
	}
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, oauthdomain.ErrSessionNotFound):
			status = http.StatusNotFound
		case errors.Is(err, oauthdomain.ErrReauthorizationRequired):
			status = http.StatusUnauthorized
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	result, err := h.sync.Run(c.Request.Context(), provider)
	if err != nil {
		log.Error().Str("component", "sync").Err(err).Msg("manual sync run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// SyncState reports the persisted outcome of the last run plus whether a run
// is in flight right now.
// GET /api/sync/state
func (h *SubmissionHandler) SyncState(c *gin.Context) {
	state, err := h.sync.State()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"running": h.sync.Running(),
		"state":   state,
	})
}
