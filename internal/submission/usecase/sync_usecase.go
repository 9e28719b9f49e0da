package usecase

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"didauto/internal/submission/domain"
	"didauto/internal/submission/repository"
	"didauto/pkg/dida"
)

type syncUsecase struct {
	submissions  repository.SubmissionRepository
	syncState    repository.SyncStateRepository
	projectTasks repository.ProjectTaskRepository
	fetcher      TaskFetcher
	delay        time.Duration
	running      atomic.Bool
}

func NewSyncUsecase(
	submissions repository.SubmissionRepository,
	syncState repository.SyncStateRepository,
	projectTasks repository.ProjectTaskRepository,
	fetcher TaskFetcher,
	delay time.Duration,
) SyncUsecase {
	return &syncUsecase{
		submissions:  submissions,
		syncState:    syncState,
		projectTasks: projectTasks,
		fetcher:      fetcher,
		delay:        delay,
	}
}

func (u *syncUsecase) Running() bool {
	return u.running.Load()
}

func (u *syncUsecase) State() (*domain.SyncState, error) {
	return u.syncState.Get()
}

// Run processes syncable submissions strictly sequentially: predictable
// rate-limit behavior matters more than throughput here. A rate-limit hit
// halts the rest of the run; a broken credential aborts it; an individual
// missing task does not.
func (u *syncUsecase) Run(ctx context.Context, provider dida.TokenProvider) (*SyncResult, error) {
	if !u.running.CompareAndSwap(false, true) {
		log.Info().Str("component", "sync").Msg("sync already in progress, skipping")
		return &SyncResult{Skipped: true}, nil
	}
	defer u.running.Store(false)

	runID := uuid.New().String()

	entries, err := u.submissions.ListSyncable()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		u.persistState(domain.SyncStatusOK, 0, 0)
		return &SyncResult{}, nil
	}

	synced, failed := 0, 0
	rateLimited := false

	for i, entry := range entries {
		if rateLimited {
			break
		}

		if _, err := provider.Token(ctx); err != nil {
			// A dead credential invalidates the rest of the batch.
			log.Error().Str("component", "sync").Str("run", runID).Err(err).Msg("failed to resolve token, aborting run")
			failed++
			break
		}

		task, err := u.fetcher.FetchTask(ctx, provider, entry.ProjectID, entry.ID)
		switch {
		case err == nil:
			if applyErr := u.applySnapshot(entry, task); applyErr != nil {
				log.Error().Str("component", "sync").Str("run", runID).Str("task", entry.ID).Err(applyErr).Msg("failed to store sync result")
				failed++
			} else {
				synced++
			}
		case dida.IsRateLimit(err):
			log.Warn().Str("component", "sync").Str("run", runID).Msg("rate limited, stopping sync early")
			rateLimited = true
			u.markError(entry.ID, "Rate limited")
			failed++
		case dida.IsNotFound(err):
			// Task was likely deleted upstream, not a systemic problem.
			u.markError(entry.ID, "Task not found (404)")
			failed++
		default:
			u.markError(entry.ID, err.Error())
			failed++
		}

		if !rateLimited && i < len(entries)-1 {
			// Self-imposed pacing so we do not trip the provider's limiter.
			select {
			case <-time.After(u.delay):
			case <-ctx.Done():
				u.persistState(statusFor(rateLimited, failed), synced, failed)
				return &SyncResult{Synced: synced, Failed: failed, RateLimited: rateLimited}, ctx.Err()
			}
		}
	}

	status := statusFor(rateLimited, failed)
	u.persistState(status, synced, failed)
	log.Info().Str("component", "sync").Str("run", runID).
		Int("synced", synced).Int("failed", failed).Str("status", status).
		Msg("sync completed")

	return &SyncResult{Synced: synced, Failed: failed, RateLimited: rateLimited}, nil
}

func (u *syncUsecase) applySnapshot(entry *domain.Submission, task *dida.Task) error {
	snapshot := &domain.RemoteSnapshot{
		LatestSyncedContent: string(task.Raw),
		Priority:            task.Priority,
		Status:              task.Status,
		CompletedTime:       task.CompletedTime,
		DueDate:             task.DueDate,
		StartDate:           task.StartDate,
		IsAllDay:            task.IsAllDay,
	}
	if err := u.submissions.ApplySyncResult(entry.ID, snapshot); err != nil {
		return err
	}

	// Keep the project view cache in step with the fresh read.
	cached := projectTaskFromRemote(task)
	if cached.ID == "" {
		cached.ID = entry.ID
	}
	if cached.ProjectID == "" {
		cached.ProjectID = entry.ProjectID
	}
	if cached.Title == "" {
		cached.Title = entry.Title
	}
	if err := u.projectTasks.Upsert(cached); err != nil {
		log.Warn().Str("component", "sync").Str("task", entry.ID).Err(err).Msg("failed to refresh project task cache")
	}
	return nil
}

func (u *syncUsecase) markError(id, message string) {
	if err := u.submissions.MarkSyncError(id, message); err != nil {
		log.Error().Str("component", "sync").Str("task", id).Err(err).Msg("failed to record sync error")
	}
}

func (u *syncUsecase) persistState(status string, synced, failed int) {
	now := time.Now()
	state := &domain.SyncState{
		LastSyncAt:     &now,
		LastSyncStatus: status,
		TasksSynced:    synced,
		TasksFailed:    failed,
	}
	if err := u.syncState.Update(state); err != nil {
		log.Error().Str("component", "sync").Err(err).Msg("failed to persist sync state")
	}
}

func statusFor(rateLimited bool, failed int) string {
	switch {
	case rateLimited:
		return domain.SyncStatusRateLimited
	case failed > 0:
		return domain.SyncStatusPartial
	default:
		return domain.SyncStatusOK
	}
}

// projectTaskFromRemote converts a remote task snapshot into a cache row.
func projectTaskFromRemote(task *dida.Task) *domain.ProjectTask {
	items := ""
	if len(task.Items) > 0 {
		if encoded, err := json.Marshal(task.Items); err == nil {
			items = string(encoded)
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
		RawJSON:       string(task.Raw),
	}
}
