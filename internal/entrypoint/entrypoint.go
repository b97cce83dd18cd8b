package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mrlokans/courseshelf/internal/config"
	http_controllers "github.com/mrlokans/courseshelf/internal/http"
	"github.com/mrlokans/courseshelf/internal/scheduler"
	"github.com/mrlokans/courseshelf/internal/tasks"
)

// Run starts the API server with the background sync scheduler and the task
// queue, and blocks until SIGINT or SIGTERM.
func Run(cfg *config.Config, log logrus.FieldLogger, version string) error {
	log.WithField("version", version).Info("Starting CourseShelf")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := Build(ctx, cfg, log)
	if err != nil {
		return err
	}

	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			log.WithError(err).Warn("Error during shutdown")
		}
	}()

	var taskClient *tasks.Client
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		}, log)
		if err != nil {
			return fmt.Errorf("initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.WithError(err).Warn("Error closing task client")
			}
		}()

		taskClient.Register(
			tasks.NewSyncCatalogQueue(app.Reconciler, log),
			tasks.NewSyncCategoryQueue(app.Reconciler, log),
			tasks.NewSyncLevelQueue(app.Reconciler, log),
			tasks.NewDownloadCourseQueue(app.DB, app.Engine, log),
		)
	}

	syncScheduler := scheduler.NewCatalogSyncScheduler(app.Reconciler, app.Settings, log)

	routerCfg := http_controllers.RouterConfig{
		AppContext:  ctx,
		Library:     app.Library,
		Courses:     app.DB,
		Syncer:      app.Reconciler,
		Downloads:   app.Engine,
		Preferences: app.Settings,
		Scheduler:   syncScheduler,
		Database:    app.DB,
		Catalog:     app.Catalog,
		Version:     version,
		Logger:      log,
	}
	if taskClient != nil {
		routerCfg.TaskClient = taskClient
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           http_controllers.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := syncScheduler.Start(gctx); err != nil {
			// A bad schedule leaves manual sync available.
			log.WithError(err).Warn("Catalog sync scheduler not started")
		}
		<-gctx.Done()
		syncScheduler.Stop()
		return nil
	})

	if taskClient != nil {
		g.Go(func() error {
			taskClient.Start(gctx)
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if !taskClient.Stop(stopCtx) {
				log.Warn("Task workers did not stop in time")
			}
			return nil
		})
	}

	if cfg.Sync.OnStartup {
		g.Go(func() error {
			// Failures are logged by StartupSync; the server keeps running
			// on the local catalog.
			<-scheduler.StartupSync(gctx, app.Reconciler, log)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.WithField("timeout", timeout).Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("Server exiting")
	return err
}
