package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("SYNC_INTERVAL", "")
	t.Setenv("DOWNLOADS_MAX_CONCURRENT", "")

	cfg := NewConfig()

	assert.Equal(t, int32(8190), cfg.HTTP.Port)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, "direct", cfg.Storage.Resolver)
	assert.Equal(t, DefaultFirebaseStorageURL, cfg.Storage.FirebaseBaseURL)
	assert.Equal(t, 15*time.Minute, cfg.Storage.SignedURLExpiry)
	assert.Equal(t, 60, cfg.Catalog.RequestsPerMinute)
	assert.Equal(t, 500*time.Millisecond, cfg.Catalog.RetryBackoff)
	assert.Empty(t, cfg.Catalog.MeteredInterfaces)
	assert.Equal(t, 24*time.Hour, cfg.Sync.Interval)
	assert.Equal(t, "0 3 * * *", cfg.Sync.Schedule)
	assert.True(t, cfg.Sync.OnStartup)
	assert.Equal(t, 3, cfg.Downloads.MaxConcurrent)
	assert.Equal(t, 10*time.Minute, cfg.Downloads.TransferTimeout)
	assert.True(t, cfg.Tasks.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestNewConfig_Environment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("FIREBASE_DATABASE_URL", "https://shelf.firebaseio.com")
	t.Setenv("DOWNLOADS_MAX_CONCURRENT", "5")
	t.Setenv("SYNC_INTERVAL", "6h")
	t.Setenv("METERED_INTERFACES", "wwan, rmnet ,,")
	t.Setenv("LOG_FORMAT", "json")

	cfg := NewConfig()

	assert.Equal(t, int32(9000), cfg.HTTP.Port)
	assert.Equal(t, "https://shelf.firebaseio.com", cfg.Catalog.DatabaseURL)
	assert.Equal(t, 5, cfg.Downloads.MaxConcurrent)
	assert.Equal(t, 6*time.Hour, cfg.Sync.Interval)
	assert.Equal(t, []string{"wwan", "rmnet"}, cfg.Catalog.MeteredInterfaces)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("STORAGE_BUCKET=from-dotenv\nSTORAGE_RESOLVER=firebase\n"), 0o600))

	t.Setenv("STORAGE_BUCKET", "")
	os.Unsetenv("STORAGE_BUCKET")
	t.Setenv("STORAGE_RESOLVER", "gcs")

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	t.Cleanup(func() { os.Unsetenv("STORAGE_BUCKET") })

	cfg := NewConfig()
	assert.Equal(t, "from-dotenv", cfg.Storage.Bucket)
	// Real environment wins over the file
	assert.Equal(t, "gcs", cfg.Storage.Resolver)
}
