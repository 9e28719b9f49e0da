package delivery

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"didauto/internal/oauth/domain"
	oauthusecase "didauto/internal/oauth/usecase"
	"didauto/internal/task/usecase"
	"didauto/pkg/dida"
)

// TaskHandler fronts the Dida365 proxy endpoints. Every request carries its
// own credentials, either a stored session state or a bare access token.
type TaskHandler struct {
	orchestrator *oauthusecase.Orchestrator
	tasks        usecase.TaskUsecase
}

func NewTaskHandler(orchestrator *oauthusecase.Orchestrator, tasks usecase.TaskUsecase) *TaskHandler {
	return &TaskHandler{orchestrator: orchestrator, tasks: tasks}
}

type credentials struct {
	OauthState  string `json:"oauthState"`
	AccessToken string `json:"accessToken"`
}

type createTasksRequest struct {
	credentials
	ProjectID       string           `json:"projectId"`
	ProjectName     string           `json:"projectName"`
	TimeZone        string           `json:"timeZone"`
	Reminders       []string         `json:"reminders"`
	Tasks           []dida.InputTask `json:"tasks"`
	OriginalContent string           `json:"originalContent"`
}

type projectDataRequest struct {
	credentials
	ProjectID string `json:"projectId"`
}

type completeTaskRequest struct {
	credentials
	ProjectID string     `json:"projectId"`
	TaskID    string     `json:"taskId"`
	Complete  *bool      `json:"complete"`
	Task      *dida.Task `json:"task"`
}

// CheckProjects verifies the supplied credentials by listing projects.
// POST /api/dida/projects/check and /api/dida/projects/list
func (h *TaskHandler) CheckProjects(c *gin.Context) {
	var req credentials
	_ = c.ShouldBindJSON(&req)

	provider, ok := h.resolveProvider(c, req)
	if !ok {
		return
	}

	projects, err := h.tasks.ListProjects(c.Request.Context(), provider)
	if err != nil {
		h.renderError(c, err, "listing projects failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"projects": projects,
		"auth":     authSummary(provider),
	})
}

// CreateTasks pushes a batch of tasks and records each outcome in the
// submission ledger.
// POST /api/dida/tasks
func (h *TaskHandler) CreateTasks(c *gin.Context) {
	var req createTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ProjectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": dida.ErrEmptyProjectID.Error()})
		return
	}
	if len(req.Tasks) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tasks must be a non-empty array"})
		return
	}

	provider, ok := h.resolveProvider(c, req.credentials)
	if !ok {
		return
	}

	reminders := req.Reminders
	if len(reminders) == 0 {
		reminders = []string{"TRIGGER:PT0S"}
	}

	results, err := h.tasks.CreateTasks(c.Request.Context(), provider, usecase.CreateTasksInput{
		ProjectID:       req.ProjectID,
		ProjectName:     req.ProjectName,
		TimeZone:        req.TimeZone,
		Reminders:       reminders,
		Tasks:           req.Tasks,
		OriginalContent: req.OriginalContent,
	})
	if err != nil {
		h.renderError(c, err, "creating tasks failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": results,
		"auth":    authSummary(provider),
	})
}

// ProjectData fetches the live project view and refreshes the local cache.
// POST /api/dida/project/data
func (h *TaskHandler) ProjectData(c *gin.Context) {
	var req projectDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ProjectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": dida.ErrEmptyProjectID.Error()})
		return
	}

	provider, ok := h.resolveProvider(c, req.credentials)
	if !ok {
		return
	}

	data, err := h.tasks.ProjectData(c.Request.Context(), provider, req.ProjectID)
	if err != nil {
		h.renderError(c, err, "fetching project data failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"auth":    authSummary(provider),
	})
}

// CompleteTask toggles a task's completion. Completing hits the provider's
// complete endpoint; un-completing recreates the task from the cached copy
// because the open API has no uncomplete operation.
// POST /api/dida/project/task/complete
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	var req completeTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ProjectID == "" || req.TaskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projectId and taskId are required"})
		return
	}

	provider, ok := h.resolveProvider(c, req.credentials)
	if !ok {
		return
	}

	complete := req.Complete == nil || *req.Complete
	if complete {
		if err := h.tasks.CompleteTask(c.Request.Context(), provider, req.ProjectID, req.TaskID); err != nil {
			h.renderError(c, err, "completing task failed")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "auth": authSummary(provider)})
		return
	}

	if req.Task == nil || req.Task.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task with a title is required to reopen"})
		return
	}
	recreated, err := h.tasks.RecreateTask(c.Request.Context(), provider, req.ProjectID, req.Task)
	if err != nil {
		h.renderError(c, err, "recreating task failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"recreated": recreated,
		"auth":      authSummary(provider),
	})
}

func (h *TaskHandler) resolveProvider(c *gin.Context, creds credentials) (*oauthusecase.TokenProvider, bool) {
	provider, _, err := h.orchestrator.ResolveProvider(c.Request.Context(), creds.OauthState, creds.AccessToken)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrNoCredentialSupplied):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrReauthorizationRequired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "reauthorize": true})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return provider, true
}

func (h *TaskHandler) renderError(c *gin.Context, err error, msg string) {
	log.Error().Str("component", "dida").Err(err).Msg(msg)

	status := http.StatusInternalServerError
	var apiErr *dida.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.StatusCode
	case errors.Is(err, domain.ErrReauthorizationRequired):
		status = http.StatusUnauthorized
	case errors.Is(err, dida.ErrEmptyProjectID):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

type authInfo struct {
	SessionState string     `json:"sessionState,omitempty"`
	RefreshCount int        `json:"refreshCount"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

func authSummary(provider *oauthusecase.TokenProvider) authInfo {
	info := authInfo{
		SessionState: provider.State(),
		RefreshCount: provider.RefreshCount(),
	}
	if session := provider.Session(); session != nil {
		info.ExpiresAt = session.ExpiresAt
	}
	return info
}
