package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/mrlokans/courseshelf/internal/catalog"
	"github.com/mrlokans/courseshelf/internal/catalogsync"
	"github.com/mrlokans/courseshelf/internal/config"
	"github.com/mrlokans/courseshelf/internal/database"
	"github.com/mrlokans/courseshelf/internal/downloads"
	"github.com/mrlokans/courseshelf/internal/entities"
	"github.com/mrlokans/courseshelf/internal/library"
	"github.com/mrlokans/courseshelf/internal/settingsstore"
)

// App holds the wired components shared by the server and the CLI.
type App struct {
	Config *config.Config
	Log    logrus.FieldLogger

	DB         *database.Database
	Catalog    *catalog.FirebaseClient
	Reconciler *catalogsync.Reconciler
	Engine     *downloads.Engine
	Library    *library.Service
	Settings   *settingsstore.SettingsStore

	provider *database.Provider
	gcs      *storage.Client
}

// Build opens the database, seeds the bundled catalog and wires the sync and
// download components. Close releases everything Build opened.
func Build(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	app := &App{
		Config: cfg,
		Log:    log,
		provider: database.NewProvider(cfg.Database.Path,
			database.WithLogger(log),
			database.WithDebug(cfg.Database.Debug),
		),
	}

	db, err := app.provider.Get()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	app.DB = db

	if err := seedBundled(db, cfg.Seed); err != nil {
		app.Close(ctx)
		return nil, err
	}

	resolver, err := app.newResolver(ctx, cfg.Storage)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}

	if cfg.Catalog.DatabaseURL == "" {
		log.Warn("FIREBASE_DATABASE_URL is not set; catalog sync will fail until it is configured")
	}
	app.Catalog = catalog.NewFirebaseClient(catalog.FirebaseConfig{
		DatabaseURL:       cfg.Catalog.DatabaseURL,
		AuthToken:         cfg.Catalog.AuthToken,
		RequestsPerMinute: cfg.Catalog.RequestsPerMinute,
		MaxRetries:        cfg.Catalog.MaxRetries,
		RetryBackoff:      cfg.Catalog.RetryBackoff,
		Timeout:           cfg.Catalog.Timeout,
	}, resolver, log)

	conn := catalog.NewInterfaceConnectivity(cfg.Catalog.MeteredInterfaces)

	app.Reconciler = catalogsync.NewReconciler(db, app.Catalog, conn,
		catalogsync.WithInterval(cfg.Sync.Interval),
		catalogsync.WithLogger(log),
	)

	app.Settings = settingsstore.New(db).WithDefaults(map[string]string{
		entities.PreferenceKeyAutoSyncEnabled: fmt.Sprint(cfg.Sync.AutoEnabled),
		entities.PreferenceKeySyncSchedule:    cfg.Sync.Schedule,
	})

	fetcher := downloads.NewHTTPFetcher(&http.Client{}, cfg.Downloads.UserAgent)
	app.Engine = downloads.NewEngine(downloads.Config{
		Dir:             cfg.Downloads.Dir,
		MaxConcurrent:   cfg.Downloads.MaxConcurrent,
		TransferTimeout: cfg.Downloads.TransferTimeout,
	}, db, app.Catalog, fetcher,
		downloads.WithLogger(log),
		downloads.WithConnectivity(conn),
		downloads.WithWifiOnlyPolicy(app.Settings.GetWifiOnlyDownloads),
	)

	app.Library = library.NewService(db, app.Engine, log)
	return app, nil
}

// Close stops the download engine and closes the storage clients and the
// database, in that order.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Engine != nil {
		if err := a.Engine.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close download engine: %w", err))
		}
	}
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage client: %w", err))
		}
	}
	if err := a.provider.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}

func (a *App) newResolver(ctx context.Context, cfg config.Storage) (catalog.Resolver, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Resolver)) {
	case "", "direct":
		return catalog.DirectResolver{}, nil
	case "firebase":
		return catalog.FirebaseStorageResolver{Bucket: cfg.Bucket, BaseURL: cfg.FirebaseBaseURL}, nil
	case "gcs":
		var opts []option.ClientOption
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		client, err := storage.NewClient(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		a.gcs = client
		return catalog.NewGCSSignedResolver(client, cfg.Bucket, cfg.SignedURLExpiry), nil
	}
	return nil, fmt.Errorf("unknown storage resolver %q", cfg.Resolver)
}

func seedBundled(db *database.Database, cfg config.Seed) error {
	if cfg.Path == "" {
		return nil
	}
	records, err := database.LoadSeedFile(cfg.Path)
	if err != nil {
		return err
	}
	if _, err := db.SeedBundledCourses(records, cfg.AssetRoot); err != nil {
		return fmt.Errorf("seed bundled courses: %w", err)
	}
	return nil
}
