package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	oauthDelivery "didauto/internal/oauth/delivery"
	oauthRepo "didauto/internal/oauth/repository"
	oauthUsecase "didauto/internal/oauth/usecase"
	submissionDelivery "didauto/internal/submission/delivery"
	syncUsecasePkg "didauto/internal/submission/usecase"
	taskDelivery "didauto/internal/task/delivery"
	taskUsecasePkg "didauto/internal/task/usecase"
	"didauto/pkg/config"
)

type Handler struct {
	config            *config.Config
	oauthHandler      *oauthDelivery.OAuthHandler
	taskHandler       *taskDelivery.TaskHandler
	submissionHandler *submissionDelivery.SubmissionHandler
}

func NewHandler(
	cfg *config.Config,
	store oauthRepo.SessionStore,
	orchestrator *oauthUsecase.Orchestrator,
	taskUc taskUsecasePkg.TaskUsecase,
	syncUc syncUsecasePkg.SyncUsecase,
) *Handler {
	return &Handler{
		config:            cfg,
		oauthHandler:      oauthDelivery.NewOAuthHandler(store, orchestrator),
		taskHandler:       taskDelivery.NewTaskHandler(orchestrator, taskUc),
		submissionHandler: submissionDelivery.NewSubmissionHandler(store, orchestrator, taskUc, syncUc),
	}
}

func (h *Handler) Start(addr string) error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOriginFunc = func(origin string) bool { return true }
	corsCfg.AllowCredentials = true
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "Cache-Control", "X-Requested-With"}
	r.Use(cors.New(corsCfg))

	SetupRoutes(r, h.config, h.oauthHandler, h.taskHandler, h.submissionHandler)
	h.setupStatic(r)

	log.Info().Str("component", "http").Str("addr", addr).Msg("server listening")
	return r.Run(addr)
}

// setupStatic serves the bundled frontend when a dist/ or public/ directory
// exists next to the binary. Unknown non-API paths fall back to index.html so
// client-side routing works.
func (h *Handler) setupStatic(r *gin.Engine) {
	staticDir := ""
	for _, candidate := range []string{"dist", "public"} {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			staticDir = candidate
			break
		}
	}
	if staticDir == "" {
		return
	}

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		requested := filepath.Join(staticDir, filepath.Clean("/"+c.Request.URL.Path))
		if info, err := os.Stat(requested); err == nil && !info.IsDir() {
			c.File(requested)
			return
		}
		c.File(filepath.Join(staticDir, "index.html"))
	})
}
