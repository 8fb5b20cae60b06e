package app

import (
	"net/http"

	"github.com/allenac86/spooky-days-twitter/internal/gallery"
	"github.com/allenac86/spooky-days-twitter/internal/health"
	"github.com/allenac86/spooky-days-twitter/internal/streams"
	"github.com/allenac86/spooky-days-twitter/internal/worker"
	"github.com/gin-gonic/gin"
)

// Router builds the HTTP surface: liveness probe, gallery API, notification
// ingest and the manual generation trigger. Everything under /api sits behind
// the shared origin-header guard.
func (a *App) Router() *gin.Engine {
	if a.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", gin.WrapF(health.Handler))

	api := r.Group("/api", gallery.OriginGuard(a.Config.OriginHeaderName, a.Config.OriginHeaderValue))
	api.GET("/images", gallery.ListImagesHandler(a.Store))
	api.GET("/account", gallery.GetAccountHandler(a.Twitter))
	api.POST("/events", a.ingestEventHandler())
	api.POST("/generate", a.triggerGenerateHandler())

	return r
}

// ingestEventHandler accepts an externally produced object-created
// notification and republishes it on the storage stream, so out-of-band
// uploads still flow through the publisher.
func (a *App) ingestEventHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var event streams.ObjectCreatedEvent
		if err := c.ShouldBindJSON(&event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event payload"})
			return
		}
		if event.Key == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Event key is required"})
			return
		}

		if err := a.Notifier.Publish(c.Request.Context(), event); err != nil {
			a.Log.Error("Failed to publish ingested event", "key", event.Key, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish event"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	}
}

// triggerGenerateHandler enqueues a generation run outside the daily schedule.
func (a *App) triggerGenerateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := worker.EnqueueGenerateImages(); err != nil {
			a.Log.Error("Failed to enqueue generation task", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue generation task"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "enqueued"})
	}
}
