package usecase

import (
	"context"

	"didauto/internal/submission/domain"
	"didauto/pkg/dida"
)

// Gateway is the slice of the remote API client the task flow needs.
type Gateway interface {
	ListProjects(ctx context.Context, provider dida.TokenProvider) ([]dida.Project, error)
	CreateTask(ctx context.Context, provider dida.TokenProvider, payload *dida.TaskPayload, completed bool) (*dida.CreateTaskResult, error)
	CompleteTask(ctx context.Context, provider dida.TokenProvider, projectID, taskID string) error
	FetchProjectData(ctx context.Context, provider dida.TokenProvider, projectID string) (*dida.ProjectData, error)
}

// CreateTasksInput is one batch of tasks aimed at a project.
type CreateTasksInput struct {
	ProjectID       string
	ProjectName     string
	TimeZone        string
	Reminders       []string
	Tasks           []dida.InputTask
	OriginalContent string
}

// TaskResult reports the outcome of one task in a batch. A validation or
// creation failure never blocks sibling tasks.
type TaskResult struct {
	Title         string      `json:"title"`
	Success       bool        `json:"success"`
	Error         string      `json:"error,omitempty"`
	Task          *dida.Task  `json:"task,omitempty"`
	Retried       bool        `json:"retried,omitempty"`
	Completed     bool        `json:"completed,omitempty"`
	CompleteError string      `json:"completeError,omitempty"`
}

// TaskUsecase drives task creation and project views through the gateway,
// recording every successful creation in the submission ledger.
type TaskUsecase interface {
	ListProjects(ctx context.Context, provider dida.TokenProvider) ([]dida.Project, error)
	CreateTasks(ctx context.Context, provider dida.TokenProvider, input CreateTasksInput) ([]TaskResult, error)
	ProjectData(ctx context.Context, provider dida.TokenProvider, projectID string) (*dida.ProjectData, error)
	CompleteTask(ctx context.Context, provider dida.TokenProvider, projectID, taskID string) error
	RecreateTask(ctx context.Context, provider dida.TokenProvider, projectID string, task *dida.Task) (*dida.Task, error)
	Submissions(timeRange string) ([]*domain.Submission, error)
	ProjectSubmissions(projectID string) ([]*domain.Submission, error)
}
