package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Storage
		Catalog
		Sync
		Downloads
		Tasks
		Logging
		Seed
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path  string
		Debug bool // log every SQL statement
	}
	// Storage selects how stored firebase paths become download URLs.
	Storage struct {
		Resolver        string // "direct", "firebase" or "gcs"
		Bucket          string
		FirebaseBaseURL string
		CredentialsFile string        // service account JSON for "gcs"
		SignedURLExpiry time.Duration // lifetime of GCS signed URLs
	}
	Catalog struct {
		DatabaseURL       string // Firebase Realtime Database root
		AuthToken         string
		RequestsPerMinute int
		MaxRetries        int
		RetryBackoff      time.Duration
		Timeout           time.Duration
		MeteredInterfaces []string // name prefixes treated as metered
	}
	Sync struct {
		Interval    time.Duration // minimum gap between unforced syncs
		AutoEnabled bool
		Schedule    string // Cron format: "0 3 * * *" = daily at 03:00
		OnStartup   bool
	}
	Downloads struct {
		Dir             string
		MaxConcurrent   int
		TransferTimeout time.Duration
		UserAgent       string
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Logging struct {
		Level  string
		Format string // "text" or "json"
	}
	Seed struct {
		Path      string // bundled catalog, JSON or YAML
		AssetRoot string // base for relative asset paths in the seed
	}
)

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding the real environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_debug", false)

	v.SetDefault("storage_resolver", "direct")
	v.SetDefault("storage_bucket", "")
	v.SetDefault("storage_firebase_base_url", DefaultFirebaseStorageURL)
	v.SetDefault("storage_credentials_file", "")
	v.SetDefault("storage_signed_url_expiry", "15m")

	v.SetDefault("firebase_database_url", "")
	v.SetDefault("firebase_auth_token", "")
	v.SetDefault("catalog_requests_per_minute", 60)
	v.SetDefault("catalog_max_retries", 3)
	v.SetDefault("catalog_retry_backoff", "500ms")
	v.SetDefault("catalog_timeout", "30s")
	v.SetDefault("metered_interfaces", "")

	v.SetDefault("sync_interval", "24h")
	v.SetDefault("sync_auto_enabled", true)
	v.SetDefault("sync_schedule", "0 3 * * *")
	v.SetDefault("sync_on_startup", true)

	v.SetDefault("downloads_dir", DefaultDownloadsDir)
	v.SetDefault("downloads_max_concurrent", 3)
	v.SetDefault("downloads_transfer_timeout", "10m")
	v.SetDefault("downloads_user_agent", "CourseShelf/1.0")

	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetDefault("seed_path", "")
	v.SetDefault("seed_asset_root", "")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path:  v.GetString("DATABASE_PATH"),
			Debug: v.GetBool("DATABASE_DEBUG"),
		},
		Storage: Storage{
			Resolver:        v.GetString("STORAGE_RESOLVER"),
			Bucket:          v.GetString("STORAGE_BUCKET"),
			FirebaseBaseURL: v.GetString("STORAGE_FIREBASE_BASE_URL"),
			CredentialsFile: v.GetString("STORAGE_CREDENTIALS_FILE"),
			SignedURLExpiry: v.GetDuration("STORAGE_SIGNED_URL_EXPIRY"),
		},
		Catalog: Catalog{
			DatabaseURL:       v.GetString("FIREBASE_DATABASE_URL"),
			AuthToken:         v.GetString("FIREBASE_AUTH_TOKEN"),
			RequestsPerMinute: v.GetInt("CATALOG_REQUESTS_PER_MINUTE"),
			MaxRetries:        v.GetInt("CATALOG_MAX_RETRIES"),
			RetryBackoff:      v.GetDuration("CATALOG_RETRY_BACKOFF"),
			Timeout:           v.GetDuration("CATALOG_TIMEOUT"),
			MeteredInterfaces: splitList(v.GetString("METERED_INTERFACES")),
		},
		Sync: Sync{
			Interval:    v.GetDuration("SYNC_INTERVAL"),
			AutoEnabled: v.GetBool("SYNC_AUTO_ENABLED"),
			Schedule:    v.GetString("SYNC_SCHEDULE"),
			OnStartup:   v.GetBool("SYNC_ON_STARTUP"),
		},
		Downloads: Downloads{
			Dir:             v.GetString("DOWNLOADS_DIR"),
			MaxConcurrent:   v.GetInt("DOWNLOADS_MAX_CONCURRENT"),
			TransferTimeout: v.GetDuration("DOWNLOADS_TRANSFER_TIMEOUT"),
			UserAgent:       v.GetString("DOWNLOADS_USER_AGENT"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Logging: Logging{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Seed: Seed{
			Path:      v.GetString("SEED_PATH"),
			AssetRoot: v.GetString("SEED_ASSET_ROOT"),
		},
	}
}
