package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"didauto/internal/submission/usecase"
	"didauto/pkg/dida"
)

// ProviderFunc resolves the credential a scheduled run should use, typically
// the most recently authorized session.
type ProviderFunc func() (dida.TokenProvider, error)

// SyncScheduler triggers a periodic ledger reconciliation.
type SyncScheduler struct {
	syncUsecase usecase.SyncUsecase
	providerFn  ProviderFunc
	interval    time.Duration
	stopChan    chan struct{}
}

func NewSyncScheduler(syncUsecase usecase.SyncUsecase, providerFn ProviderFunc, interval time.Duration) *SyncScheduler {
	return &SyncScheduler{
		syncUsecase: syncUsecase,
		providerFn:  providerFn,
		interval:    interval,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the scheduler loop. Errors from scheduled runs are logged,
// never propagated.
func (s *SyncScheduler) Start() {
	log.Info().Str("component", "sync").Dur("interval", s.interval).Msg("periodic sync started")

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runOnce()
			case <-s.stopChan:
				log.Info().Str("component", "sync").Msg("periodic sync stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *SyncScheduler) Stop() {
	close(s.stopChan)
}

func (s *SyncScheduler) runOnce() {
	provider, err := s.providerFn()
	if err != nil {
		log.Warn().Str("component", "sync").Err(err).Msg("no credential available for scheduled sync")
		return
	}

	if _, err := s.syncUsecase.Run(context.Background(), provider); err != nil {
		log.Error().Str("component", "sync").Err(err).Msg("periodic sync error")
	}
}
