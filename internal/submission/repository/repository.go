package repository

import (
	"didauto/internal/submission/domain"
)

// SubmissionRepository defines the append-only submission ledger.
type SubmissionRepository interface {
	// Record inserts newly created tasks, one row per task, idempotent on id.
	Record(submissions []*domain.Submission) error

	// List returns submissions, newest first, optionally limited to a
	// trailing window ("1d", "3d", "7d", "30d"; anything else means all).
	List(timeRange string) ([]*domain.Submission, error)

	// ListByProject returns submissions for one project, newest first.
	ListByProject(projectID string) ([]*domain.Submission, error)

	// ListSyncable returns every submission with a non-empty id and
	// projectId, the candidate set for reconciliation.
	ListSyncable() ([]*domain.Submission, error)

	// ApplySyncResult reconciles a fresh remote snapshot into the row and
	// clears syncError. A row already completed is never downgraded to
	// incomplete: status and completedTime keep their stored values when the
	// snapshot reports incomplete.
	ApplySyncResult(id string, snapshot *domain.RemoteSnapshot) error

	// MarkSyncError records a failed reconciliation attempt, preserving all
	// previously known good fields.
	MarkSyncError(id string, message string) error
}

// SyncStateRepository owns the singleton sync summary row.
type SyncStateRepository interface {
	Get() (*domain.SyncState, error)
	Update(state *domain.SyncState) error
}

// ProjectTaskRepository owns the local remote-task cache.
type ProjectTaskRepository interface {
	// Upsert inserts or refreshes a cached task, keeping completed status
	// sticky against stale reads.
	Upsert(task *domain.ProjectTask) error

	// UpsertBatch refreshes a project's cache in one transaction.
	UpsertBatch(projectID string, tasks []*domain.ProjectTask) error

	ListByProject(projectID string) ([]*domain.ProjectTask, error)
	Delete(taskID string) error
	UpdateStatus(taskID string, status int, completedTime string) error
}
