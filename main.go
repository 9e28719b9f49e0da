package main

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	api "didauto/cmd/api"
	oauthRepo "didauto/internal/oauth/repository"
	oauthUsecase "didauto/internal/oauth/usecase"
	submissiondomain "didauto/internal/submission/domain"
	submissionRepo "didauto/internal/submission/repository"
	"didauto/internal/submission/scheduler"
	syncUsecasePkg "didauto/internal/submission/usecase"
	taskUsecasePkg "didauto/internal/task/usecase"
	"didauto/pkg/config"
	"didauto/pkg/database"
	"didauto/pkg/dida"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create data directory")
	}

	// Initialize database
	db, err := database.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&submissiondomain.Submission{}, &submissiondomain.SyncState{}, &submissiondomain.ProjectTask{}); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Initialize OAuth session store and restore the persisted snapshot
	sessionStore := oauthRepo.NewFileStore(filepath.Join(cfg.DataDir, "oauthSessions.json"), oauthRepo.Defaults{
		ClientID:     cfg.DidaClientID,
		ClientSecret: cfg.DidaClientSecret,
		RedirectURI:  cfg.DidaRedirectURI,
		Scope:        config.DefaultScope,
	})
	if err := sessionStore.Restore(); err != nil {
		log.Warn().Err(err).Msg("failed to restore oauth sessions, starting empty")
	}

	orchestrator := oauthUsecase.NewOrchestrator(sessionStore, cfg.DidaAuthBaseURL)

	// Initialize the Dida365 API client
	didaClient := dida.NewClient(cfg.DidaAPIBaseURL)

	// Initialize repositories (dependency injection)
	submissionRepository := submissionRepo.NewSubmissionRepository(db)
	syncStateRepository := submissionRepo.NewSyncStateRepository(db)
	projectTaskRepository := submissionRepo.NewProjectTaskRepository(db)

	// Initialize usecases
	taskUc := taskUsecasePkg.NewTaskUsecase(didaClient, submissionRepository, projectTaskRepository, cfg.TimeSource)
	syncUc := syncUsecasePkg.NewSyncUsecase(submissionRepository, syncStateRepository, projectTaskRepository, didaClient, cfg.SyncDelay)

	// Background sync binds to the most recently authorized session
	syncScheduler := scheduler.NewSyncScheduler(syncUc, func() (dida.TokenProvider, error) {
		session, ok := sessionStore.MostRecent()
		if !ok {
			return nil, errors.New("no authorized session available")
		}
		return oauthUsecase.NewSessionProvider(orchestrator, session), nil
	}, cfg.SyncInterval)
	syncScheduler.Start()
	defer syncScheduler.Stop()

	handler := api.NewHandler(cfg, sessionStore, orchestrator, taskUc, syncUc)

	log.Info().Str("component", "main").Str("port", cfg.Port).Msg("starting didauto server")
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
