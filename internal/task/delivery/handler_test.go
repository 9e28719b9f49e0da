package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"didauto/internal/oauth/repository"
	oauthusecase "didauto/internal/oauth/usecase"
	"didauto/internal/submission/domain"
	"didauto/internal/task/usecase"
	"didauto/pkg/dida"
)

// stubTaskUsecase returns canned values and records the inputs it saw.
type stubTaskUsecase struct {
	createInput usecase.CreateTasksInput
	completed   []string
	recreated   *dida.Task
}

func (s *stubTaskUsecase) ListProjects(context.Context, dida.TokenProvider) ([]dida.Project, error) {
	return []dida.Project{{ID: "p1", Name: "Inbox"}}, nil
}

func (s *stubTaskUsecase) CreateTasks(_ context.Context, _ dida.TokenProvider, input usecase.CreateTasksInput) ([]usecase.TaskResult, error) {
	s.createInput = input
	return []usecase.TaskResult{{Title: "alpha", Success: true}}, nil
}

func (s *stubTaskUsecase) ProjectData(context.Context, dida.TokenProvider, string) (*dida.ProjectData, error) {
	return &dida.ProjectData{Project: dida.Project{ID: "p1"}}, nil
}

func (s *stubTaskUsecase) CompleteTask(_ context.Context, _ dida.TokenProvider, _, taskID string) error {
	s.completed = append(s.completed, taskID)
	return nil
}

func (s *stubTaskUsecase) RecreateTask(_ context.Context, _ dida.TokenProvider, _ string, task *dida.Task) (*dida.Task, error) {
	s.recreated = task
	return &dida.Task{ID: "new-id", Title: task.Title}, nil
}

func (s *stubTaskUsecase) Submissions(string) ([]*domain.Submission, error) { return nil, nil }
func (s *stubTaskUsecase) ProjectSubmissions(string) ([]*domain.Submission, error) { return nil, nil }

func setupTaskHandler(t *testing.T) (*gin.Engine, *stubTaskUsecase) {
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore(repository.Defaults{})
	orchestrator := oauthusecase.NewOrchestrator(store, "https://dida365.example")
	stub := &stubTaskUsecase{}
	handler := NewTaskHandler(orchestrator, stub)

	r := gin.New()
	r.POST("/api/dida/projects/check", handler.CheckProjects)
	r.POST("/api/dida/tasks", handler.CreateTasks)
	r.POST("/api/dida/project/data", handler.ProjectData)
	r.POST("/api/dida/project/task/complete", handler.CompleteTask)
	return r, stub
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestCheckProjectsEndpoint(t *testing.T) {
	t.Run("returns projects with the auth summary", func(t *testing.T) {
		r, _ := setupTaskHandler(t)

		w := postJSON(r, "/api/dida/projects/check", `{"accessToken":"bare-token"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Success  bool           `json:"success"`
			Projects []dida.Project `json:"projects"`
			Auth     struct {
				RefreshCount int `json:"refreshCount"`
			} `json:"auth"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.True(t, body.Success)
		require.Len(t, body.Projects, 1)
		assert.Equal(t, 0, body.Auth.RefreshCount)
	})

	t.Run("no credentials is a bad request", func(t *testing.T) {
		r, _ := setupTaskHandler(t)
		w := postJSON(r, "/api/dida/projects/check", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown session state is not found", func(t *testing.T) {
		r, _ := setupTaskHandler(t)
		w := postJSON(r, "/api/dida/projects/check", `{"oauthState":"ghost"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCreateTasksEndpoint(t *testing.T) {
	t.Run("requires a project id", func(t *testing.T) {
		r, _ := setupTaskHandler(t)
		w := postJSON(r, "/api/dida/tasks", `{"accessToken":"t","tasks":[{"title":"a"}]}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("requires a non-empty task list", func(t *testing.T) {
		r, _ := setupTaskHandler(t)
		w := postJSON(r, "/api/dida/tasks", `{"accessToken":"t","projectId":"p1","tasks":[]}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("defaults the reminder set", func(t *testing.T) {
		r, stub := setupTaskHandler(t)

		w := postJSON(r, "/api/dida/tasks", `{"accessToken":"t","projectId":"p1","tasks":[{"title":"a"}]}`)
		require.Equal(t, http.StatusOK, w.Code)

		assert.Equal(t, []string{"TRIGGER:PT0S"}, stub.createInput.Reminders)
		assert.Equal(t, "p1", stub.createInput.ProjectID)
	})

	t.Run("caller reminders pass through unchanged", func(t *testing.T) {
		r, stub := setupTaskHandler(t)

		w := postJSON(r, "/api/dida/tasks", `{"accessToken":"t","projectId":"p1","reminders":["TRIGGER:-PT30M"],"tasks":[{"title":"a"}]}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"TRIGGER:-PT30M"}, stub.createInput.Reminders)
	})
}

func TestCompleteTaskEndpoint(t *testing.T) {
	t.Run("completes by default", func(t *testing.T) {
		r, stub := setupTaskHandler(t)

		w := postJSON(r, "/api/dida/project/task/complete", `{"accessToken":"t","projectId":"p1","taskId":"t1"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"t1"}, stub.completed)
	})

	t.Run("reopening without the task body is a bad request", func(t *testing.T) {
		r, _ := setupTaskHandler(t)

		w := postJSON(r, "/api/dida/project/task/complete", `{"accessToken":"t","projectId":"p1","taskId":"t1","complete":false}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("reopening recreates from the supplied snapshot", func(t *testing.T) {
		r, stub := setupTaskHandler(t)

		w := postJSON(r, "/api/dida/project/task/complete", `{"accessToken":"t","projectId":"p1","taskId":"t1","complete":false,"task":{"id":"t1","title":"bring it back"}}`)
		require.Equal(t, http.StatusOK, w.Code)

		require.NotNil(t, stub.recreated)
		assert.Equal(t, "bring it back", stub.recreated.Title)
		assert.Contains(t, w.Body.String(), `"recreated"`)
	})

	t.Run("requires both ids", func(t *testing.T) {
		r, _ := setupTaskHandler(t)
		w := postJSON(r, "/api/dida/project/task/complete", `{"accessToken":"t","projectId":"p1"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
