package routes

import (
	adminapi "podcast-app/internal/api/admin"
	catalogapi "podcast-app/internal/api/catalog"
	podcastsapi "podcast-app/internal/api/podcasts"
	rssapi "podcast-app/internal/api/rss"
	workflowapi "podcast-app/internal/api/workflow"
	"podcast-app/internal/app/http/middleware"
	"podcast-app/internal/domain/podcasts"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Deps struct {
	Verifier middleware.TokenVerifier
	Limiter  *middleware.UserRateLimiter
	Log      logrus.FieldLogger

	Podcasts *podcastsapi.Handler
	Workflow *workflowapi.Handler
	RSS      *rssapi.Handler
	Admin    *adminapi.Handler
	Catalog  *catalogapi.Handler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Public catalog
	r.GET("/catalog", d.Catalog.ListCatalog)
	r.GET("/catalog/:id/feed.xml", d.Catalog.GetFeed)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(d.Verifier, d.Log))

	// Authors (admins may act on any podcast)
	authors := auth.Group("/")
	authors.Use(middleware.RequireRole(podcasts.RoleAuthor, podcasts.RoleAdmin))

	authors.GET("/podcasts", d.Podcasts.ListPodcasts)
	authors.GET("/podcasts/:id", d.Podcasts.GetPodcast)
	authors.POST("/podcasts/:id/submit", d.Podcasts.SubmitPodcast)

	authors.GET("/podcasts/:id/workflow", d.Workflow.GetWorkflow)
	authors.POST("/podcasts/:id/workflow", d.Workflow.PostWorkflow)

	content := authors.Group("/")
	content.Use(middleware.SanitizeAndCleanInputMiddleware())
	content.POST("/podcasts", d.Podcasts.CreatePodcast)
	content.PUT("/podcasts/:id", d.Podcasts.UpdatePodcast)
	content.POST("/podcasts/:id/episodes", d.Podcasts.CreateEpisode)

	limited := authors.Group("/")
	limited.Use(d.Limiter.Middleware())
	limited.POST("/podcasts/:id/sync", d.Podcasts.SyncPodcast)

	// Feed import is for authors only
	importers := auth.Group("/rss")
	importers.Use(middleware.RequireRole(podcasts.RoleAuthor), d.Limiter.Middleware())
	importers.POST("/import", d.RSS.Import)
	importers.POST("/parse", d.RSS.Parse)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(d.Verifier, d.Log), middleware.RequireRole(podcasts.RoleAdmin))
	admin.GET("/podcasts", d.Admin.ListPodcasts)
	admin.POST("/podcasts/:id/approve", d.Admin.ApprovePodcast)
	admin.POST("/podcasts/:id/reject", d.Admin.RejectPodcast)
}
