package usecase

import (
	"context"

	"didauto/internal/submission/domain"
	"didauto/pkg/dida"
)

// TaskFetcher is the slice of the gateway the sync engine needs.
type TaskFetcher interface {
	FetchTask(ctx context.Context, provider dida.TokenProvider, projectID, taskID string) (*dida.Task, error)
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	Skipped     bool `json:"skipped,omitempty"`
	Synced      int  `json:"synced"`
	Failed      int  `json:"failed"`
	RateLimited bool `json:"rateLimited,omitempty"`
}

// SyncUsecase reconciles the submission ledger against the remote system of
// record.
type SyncUsecase interface {
	// Run walks the ledger once. A run already in flight makes a second
	// invocation a no-op reporting Skipped, not an error.
	Run(ctx context.Context, provider dida.TokenProvider) (*SyncResult, error)

	// Running reports whether a run is currently in flight.
	Running() bool

	// State returns the persisted summary of the most recent run.
	State() (*domain.SyncState, error)
}
