package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	oauthDelivery "didauto/internal/oauth/delivery"
	submissionDelivery "didauto/internal/submission/delivery"
	taskDelivery "didauto/internal/task/delivery"
	"didauto/pkg/config"
)

func SetupRoutes(
	r *gin.Engine,
	cfg *config.Config,
	oauthHandler *oauthDelivery.OAuthHandler,
	taskHandler *taskDelivery.TaskHandler,
	submissionHandler *submissionDelivery.SubmissionHandler,
) {
	// Provider redirect target lives outside /api so existing client
	// registrations keep working.
	r.GET("/oauth/callback", oauthHandler.Callback)

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		// The timezone used when shaping task dates, so the frontend can
		// mirror the server's interpretation.
		api.GET("/time/config", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"timeSource": cfg.TimeSource,
				"serverTime": time.Now().Format(time.RFC3339),
			})
		})

		oauth := api.Group("/oauth")
		{
			oauth.POST("/authorize", oauthHandler.Authorize)
			oauth.GET("/callback", oauthHandler.Callback)
			oauth.GET("/session", oauthHandler.SessionInfo)
			oauth.POST("/token", oauthHandler.Token)
		}

		dida := api.Group("/dida")
		{
			dida.POST("/projects/check", taskHandler.CheckProjects)
			dida.POST("/projects/list", taskHandler.CheckProjects)
			dida.POST("/tasks", taskHandler.CreateTasks)
			dida.POST("/project/data", taskHandler.ProjectData)
			dida.POST("/project/task/complete", taskHandler.CompleteTask)
		}

		api.GET("/submissions", submissionHandler.List)
		api.POST("/sync", submissionHandler.TriggerSync)
		api.GET("/sync/state", submissionHandler.SyncState)
	}
}
