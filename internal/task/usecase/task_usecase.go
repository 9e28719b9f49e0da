package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"didauto/internal/submission/domain"
	"didauto/internal/submission/repository"
	"didauto/pkg/dida"
)

type taskUsecase struct {
	gateway         Gateway
	submissions     repository.SubmissionRepository
	projectTasks    repository.ProjectTaskRepository
	defaultTimeZone string
}

func NewTaskUsecase(
	gateway Gateway,
	submissions repository.SubmissionRepository,
	projectTasks repository.ProjectTaskRepository,
	defaultTimeZone string,
) TaskUsecase {
	return &taskUsecase{
		gateway:         gateway,
		submissions:     submissions,
		projectTasks:    projectTasks,
		defaultTimeZone: defaultTimeZone,
	}
}

func (u *taskUsecase) ListProjects(ctx context.Context, provider dida.TokenProvider) ([]dida.Project, error) {
	return u.gateway.ListProjects(ctx, provider)
}

// CreateTasks shapes and submits each task in turn. Validation failures are
// reported per task and skip the network entirely; successful creations are
// appended to the ledger before the response is returned.
func (u *taskUsecase) CreateTasks(ctx context.Context, provider dida.TokenProvider, input CreateTasksInput) ([]TaskResult, error) {
	timeZone := u.effectiveTimeZone(input.TimeZone)

	results := make([]TaskResult, 0, len(input.Tasks))
	ledger := make([]*domain.Submission, 0, len(input.Tasks))

	for _, task := range input.Tasks {
		payload, err := dida.BuildTaskPayload(task, input.ProjectID, timeZone, input.Reminders)
		if err != nil {
			results = append(results, TaskResult{Title: taskTitle(task), Success: false, Error: err.Error()})
			continue
		}

		created, err := u.gateway.CreateTask(ctx, provider, payload, task.Completed)
		if err != nil {
			log.Error().Str("component", "task").Str("title", payload.Title).Err(err).Msg("create task failed")
			results = append(results, TaskResult{Title: taskTitle(task), Success: false, Error: err.Error()})
			continue
		}

		result := TaskResult{
			Title:         payload.Title,
			Success:       true,
			Task:          created.Task,
			Retried:       created.Retried,
			Completed:     created.Completed,
			CompleteError: created.CompleteError,
		}
		results = append(results, result)

		if created.Task.ID != "" {
			ledger = append(ledger, buildSubmission(created, payload, task, input))
		}
	}

	if err := u.submissions.Record(ledger); err != nil {
		// Creation already happened remotely; a ledger failure must not fail
		// the request, but it does deserve a loud log line.
		log.Error().Str("component", "task").Err(err).Msg("failed to record submissions")
	}

	return results, nil
}

func buildSubmission(created *dida.CreateTaskResult, payload *dida.TaskPayload, input dida.InputTask, batch CreateTasksInput) *domain.Submission {
	task := created.Task

	projectID := task.ProjectID
	if projectID == "" {
		projectID = batch.ProjectID
	}
	title := task.Title
	if title == "" {
		title = payload.Title
	}

	status := task.Status
	completedTime := task.CompletedTime
	if created.Completed {
		status = domain.StatusCompleted
	}

	polished, _ := json.Marshal(input)
	request, _ := json.Marshal(payload)

	return &domain.Submission{
		ID:                  task.ID,
		Title:               title,
		ProjectID:           projectID,
		ProjectName:         batch.ProjectName,
		CreatedAt:           time.Now(),
		OriginalContent:     batch.OriginalContent,
		AiPolishedContent:   string(polished),
		RequestPayload:      string(request),
		LatestSyncedContent: string(task.Raw),
		Priority:            task.Priority,
		Status:              status,
		CompletedTime:       completedTime,
		DueDate:             task.DueDate,
		StartDate:           task.StartDate,
		IsAllDay:            task.IsAllDay,
	}
}

// ProjectData fetches a project with its tasks and refreshes the local cache.
func (u *taskUsecase) ProjectData(ctx context.Context, provider dida.TokenProvider, projectID string) (*dida.ProjectData, error) {
	data, err := u.gateway.FetchProjectData(ctx, provider, projectID)
	if err != nil {
		return nil, err
	}

	cached := make([]*domain.ProjectTask, 0, len(data.Tasks))
	for i := range data.Tasks {
		cached = append(cached, projectTaskFromRemote(&data.Tasks[i]))
	}
	if err := u.projectTasks.UpsertBatch(projectID, cached); err != nil {
		log.Warn().Str("component", "task").Str("project", projectID).Err(err).Msg("failed to refresh project task cache")
	}
	return data, nil
}

func (u *taskUsecase) CompleteTask(ctx context.Context, provider dida.TokenProvider, projectID, taskID string) error {
	if err := u.gateway.CompleteTask(ctx, provider, projectID, taskID); err != nil {
		return err
	}
	completedAt := dida.FormatTime(time.Now(), u.defaultTimeZone)
	if err := u.projectTasks.UpdateStatus(taskID, domain.StatusCompleted, completedAt); err != nil {
		log.Warn().Str("component", "task").Str("task", taskID).Err(err).Msg("failed to update cached task status")
	}
	return nil
}

// RecreateTask emulates un-completing a task: the Open API has no uncomplete
// endpoint, so the task is re-created from its cached content under a new id.
func (u *taskUsecase) RecreateTask(ctx context.Context, provider dida.TokenProvider, projectID string, task *dida.Task) (*dida.Task, error) {
	payload := &dida.TaskPayload{
		ProjectID: projectID,
		Title:     task.Title,
		Content:   task.Content,
		Desc:      task.Desc,
		Priority:  task.Priority,
		TimeZone:  task.TimeZone,
		IsAllDay:  task.IsAllDay,
		Reminders: task.Reminders,
		DueDate:   task.DueDate,
		StartDate: task.StartDate,
		Items:     task.Items,
	}
	if payload.Content == "" {
		payload.Content = task.Desc
	}

	created, err := u.gateway.CreateTask(ctx, provider, payload, false)
	if err != nil {
		return nil, err
	}

	if task.ID != "" {
		if err := u.projectTasks.Delete(task.ID); err != nil {
			log.Warn().Str("component", "task").Str("task", task.ID).Err(err).Msg("failed to drop replaced cached task")
		}
	}
	if err := u.projectTasks.Upsert(projectTaskFromRemote(created.Task)); err != nil {
		log.Warn().Str("component", "task").Str("task", created.Task.ID).Err(err).Msg("failed to cache recreated task")
	}
	return created.Task, nil
}

func (u *taskUsecase) Submissions(timeRange string) ([]*domain.Submission, error) {
	return u.submissions.List(timeRange)
}

func (u *taskUsecase) ProjectSubmissions(projectID string) ([]*domain.Submission, error) {
	return u.submissions.ListByProject(projectID)
}

func (u *taskUsecase) effectiveTimeZone(requested string) string {
	if requested == "" || requested == "Local" {
		return u.defaultTimeZone
	}
	return requested
}

func taskTitle(task dida.InputTask) string {
	if task.Title != "" {
		return task.Title
	}
	return "Untitled"
}

func projectTaskFromRemote(task *dida.Task) *domain.ProjectTask {
	items := ""
	if len(task.Items) > 0 {
		if encoded, err := json.Marshal(task.Items); err == nil {
			items = string(encoded)
		}
	}
	raw := string(task.Raw)
	if raw == "" {
		if encoded, err := json.Marshal(task); err == nil {
			raw = string(encoded)
		}
	}
	return &domain.ProjectTask{
		ID:            task.ID,
		ProjectID:     task.ProjectID,
		Title:         task.Title,
		Content:       task.Content,
		Description:   task.Desc,
		StartDate:     task.StartDate,
		DueDate:       task.DueDate,
		IsAllDay:      task.IsAllDay,
		Priority:      task.Priority,
		Status:        task.Status,
		CompletedTime: task.CompletedTime,
		Items:         items,
		RawJSON:       raw,
	}
}
