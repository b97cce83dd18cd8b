package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/courseshelf/internal/metrics"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Optional dependencies left nil drop their routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "http")

	router := gin.New()
	router.Use(requestLogger(log))
	router.Use(gin.Recovery())
	router.Use(metrics.GinMiddleware())

	health := NewHealthController(cfg.Database, cfg.Catalog, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/metrics", metrics.Handler())

	api := router.Group("/api")

	courses := NewCoursesController(cfg.Library, log)
	api.GET("/courses", courses.List)
	api.GET("/courses/:code", courses.Get)
	api.GET("/search", courses.Search)
	api.GET("/categories", courses.Categories)
	api.GET("/stats", courses.Stats)
	api.GET("/history", courses.History)
	api.DELETE("/history", courses.ClearHistory)

	sync := NewSyncController(cfg.Syncer, cfg.Scheduler, cfg.Preferences, log)
	api.GET("/sync", sync.Status)
	api.POST("/sync", sync.Run)
	api.POST("/sync/category/:name", sync.RunCategory)
	api.POST("/sync/level/:level", sync.RunLevel)

	downloads := NewDownloadsController(cfg.Downloads, cfg.Courses, log)
	api.GET("/downloads", downloads.List)
	api.DELETE("/downloads", downloads.Clear)
	api.GET("/downloads/:code", downloads.Get)
	api.POST("/downloads/:code", downloads.Start)
	api.DELETE("/downloads/:code", downloads.Cancel)
	api.DELETE("/downloads/:code/file", downloads.DeleteFile)

	if cfg.Preferences != nil {
		prefs := NewPreferencesController(cfg.AppContext, cfg.Preferences, cfg.Scheduler, log)
		api.GET("/preferences", prefs.List)
		api.GET("/preferences/:key", prefs.Get)
		api.PUT("/preferences/:key", prefs.Set)
		api.DELETE("/preferences/:key", prefs.Reset)
	}

	if cfg.TaskClient != nil {
		tasksCtrl := NewTasksController(cfg.TaskClient, log)
		api.GET("/tasks/types", tasksCtrl.ListTaskTypes)
		api.GET("/tasks/:id", tasksCtrl.GetTaskStatus)
		api.POST("/tasks/:type/run", tasksCtrl.RunTask)
	}

	return router
}

// requestLogger logs one line per request at debug level, and at warn level
// for server errors.
func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if c.Writer.Status() >= 500 {
			entry.Warn("Request failed")
			return
		}
		entry.Debug("Request")
	}
}
