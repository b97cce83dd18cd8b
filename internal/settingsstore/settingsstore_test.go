package settingsstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/courseshelf/internal/database"
	"github.com/mrlokans/courseshelf/internal/entities"
)

func setupTestDB(t *testing.T) (*database.Database, func()) {
	t.Helper()
	log, _ := test.NewNullLogger()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "settings.db"), database.WithLogger(log))
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
	}
	return db, cleanup
}

func TestNew(t *testing.T) {
	t.Run("creates settings store with database", func(t *testing.T) {
		db, cleanup := setupTestDB(t)
		defer cleanup()

		store := New(db)

		assert.NotNil(t, store)
		assert.Equal(t, db, store.db)
	})
}

func TestWifiOnlyDownloads(t *testing.T) {
	t.Run("defaults to off", func(t *testing.T) {
		db, cleanup := setupTestDB(t)
		defer cleanup()
		t.Setenv("COURSESHELF_WIFI_ONLY_DOWNLOADS", "")

		store := New(db)
		assert.False(t, store.GetWifiOnlyDownloads())

		info, err := store.Get(entities.PreferenceKeyWifiOnlyDownloads)
		require.NoError(t, err)
		assert.Equal(t, SourceDefault, info.Source)
	})

	t.Run("environment overrides default", func(t *testing.T) {
		db, cleanup := setupTestDB(t)
		defer cleanup()
		t.Setenv("COURSESHELF_WIFI_ONLY_DOWNLOADS", "1")

		store := New(db)
		assert.True(t, store.GetWifiOnlyDownloads())

		info, err := store.Get(entities.PreferenceKeyWifiOnlyDownloads)
		require.NoError(t, err)
		assert.Equal(t, "true", info.Value)
		assert.Equal(t, SourceEnvironment, info.Source)
	})

	t.Run("database takes priority over environment", func(t *testing.T) {
		db, cleanup := setupTestDB(t)
		defer cleanup()
		t.Setenv("COURSESHELF_WIFI_ONLY_DOWNLOADS", "true")

		store := New(db)
		require.NoError(t, store.SetWifiOnlyDownloads(false))
		assert.False(t, store.GetWifiOnlyDownloads())

		pref, err := db.GetPreference(entities.PreferenceKeyWifiOnlyDownloads)
		require.NoError(t, err)
		require.NotNil(t, pref)
		assert.Equal(t, "false", pref.Value)
	})

	t.Run("invalid environment value falls back to default", func(t *testing.T) {
		db, cleanup := setupTestDB(t)
		defer cleanup()
		t.Setenv("COURSESHELF_WIFI_ONLY_DOWNLOADS", "sometimes")

		store := New(db)
		assert.False(t, store.GetWifiOnlyDownloads())
	})
}

func TestSetValidation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	store := New(db)

	tests := []struct {
		name    string
		key     string
		value   string
		wantErr bool
		is      error
	}{
		{"bool accepts TRUE", entities.PreferenceKeyAutoSyncEnabled, "TRUE", false, nil},
		{"bool rejects words", entities.PreferenceKeyAutoSyncEnabled, "maybe", true, nil},
		{"schedule accepts cron", entities.PreferenceKeySyncSchedule, "0 */6 * * *", false, nil},
		{"schedule rejects garbage", entities.PreferenceKeySyncSchedule, "every day", true, nil},
		{"last sync is read-only", entities.PreferenceKeyLastSync, "2026-01-01T00:00:00Z", true, ErrReadOnly},
		{"unknown key", "theme", "dark", true, ErrUnknownKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Set(tt.key, tt.value)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}

	info, err := store.Get(entities.PreferenceKeyAutoSyncEnabled)
	require.NoError(t, err)
	assert.Equal(t, "true", info.Value)
	assert.Equal(t, SourceDatabase, info.Source)
}

func TestClear(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	t.Setenv("COURSESHELF_SYNC_SCHEDULE", "0 */12 * * *")
	store := New(db)

	require.NoError(t, store.SetSyncSchedule("0 0 * * 0"))
	assert.Equal(t, "0 0 * * 0", store.GetSyncSchedule())

	require.NoError(t, store.Clear(entities.PreferenceKeySyncSchedule))
	assert.Equal(t, "0 */12 * * *", store.GetSyncSchedule())

	// Clearing again is a no-op
	assert.NoError(t, store.Clear(entities.PreferenceKeySyncSchedule))
	assert.ErrorIs(t, store.Clear(entities.PreferenceKeyLastSync), ErrReadOnly)
}

func TestWithDefaults(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	t.Setenv("COURSESHELF_AUTO_SYNC", "")
	t.Setenv("COURSESHELF_SYNC_SCHEDULE", "")
	t.Setenv("COURSESHELF_WIFI_ONLY_DOWNLOADS", "1")

	store := New(db).WithDefaults(map[string]string{
		entities.PreferenceKeyAutoSyncEnabled:   "false",
		entities.PreferenceKeySyncSchedule:      "every day",
		entities.PreferenceKeyWifiOnlyDownloads: "false",
		entities.PreferenceKeyLastSync:          "2026-01-01T00:00:00Z",
		"theme":                                 "dark",
	})

	assert.False(t, store.GetAutoSyncEnabled())
	// invalid schedule keeps the built-in default
	assert.Equal(t, DefaultSyncSchedule, store.GetSyncSchedule())
	// environment still beats a configured default
	assert.True(t, store.GetWifiOnlyDownloads())
	assert.Nil(t, store.GetLastSync())

	require.NoError(t, store.SetAutoSyncEnabled(true))
	assert.True(t, store.GetAutoSyncEnabled())
}

func TestAll(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	t.Setenv("COURSESHELF_AUTO_SYNC", "")
	t.Setenv("COURSESHELF_SYNC_SCHEDULE", "")
	t.Setenv("COURSESHELF_WIFI_ONLY_DOWNLOADS", "")

	store := New(db)
	all := store.All()
	require.Len(t, all, 4)

	byKey := map[string]PreferenceInfo{}
	for _, p := range all {
		byKey[p.Key] = p
	}
	assert.Equal(t, "true", byKey[entities.PreferenceKeyAutoSyncEnabled].Value)
	assert.Equal(t, DefaultSyncSchedule, byKey[entities.PreferenceKeySyncSchedule].Value)
	assert.Equal(t, "", byKey[entities.PreferenceKeyLastSync].Value)
	assert.Equal(t, SourceDefault, byKey[entities.PreferenceKeyLastSync].Source)
}

func TestCatalogSyncConfigInfo(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	t.Setenv("COURSESHELF_AUTO_SYNC", "false")
	t.Setenv("COURSESHELF_SYNC_SCHEDULE", "")

	store := New(db)
	last := time.Date(2026, 2, 3, 4, 5, 6, 7, time.UTC)
	require.NoError(t, db.SetPreference(entities.PreferenceKeyLastSync, last.Format(time.RFC3339Nano)))

	cfg := store.GetCatalogSyncConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, DefaultSyncSchedule, cfg.Schedule)

	info := store.GetCatalogSyncConfigInfo()
	assert.Equal(t, SourceEnvironment, info.EnabledSource)
	assert.Equal(t, SourceDefault, info.ScheduleSource)
	assert.Equal(t, "Daily at 03:00", info.Description)
	require.NotNil(t, info.NextRunAt)
	assert.True(t, info.NextRunAt.After(time.Now()))
	require.NotNil(t, info.LastSyncAt)
	assert.True(t, last.Equal(*info.LastSyncAt))
}

func TestGetLastSync_Unparseable(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := New(db)
	assert.Nil(t, store.GetLastSync())

	require.NoError(t, db.SetPreference(entities.PreferenceKeyLastSync, "yesterday"))
	assert.Nil(t, store.GetLastSync())
}

func TestValidateCronSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		valid    bool
	}{
		{"0 * * * *", true},
		{"*/15 * * * *", true},
		{"0 3 * * *", true},
		{"0 0 * * 0", true},
		{"invalid", false},
		{"* * * *", false},
		{"60 * * * *", false},
		{"0 25 * * *", false},
	}

	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			err := ValidateCronSchedule(tt.schedule)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestGetCronDescription(t *testing.T) {
	tests := []struct {
		schedule    string
		description string
	}{
		{"0 * * * *", "Every hour at :00"},
		{"0 */6 * * *", "Every 6 hours"},
		{"0 0 * * *", "Daily at midnight"},
		{"0 3 * * *", "Daily at 03:00"},
		{"5 4 * * *", "Custom schedule: 5 4 * * *"},
	}

	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			assert.Equal(t, tt.description, GetCronDescription(tt.schedule))
		})
	}
}

func TestGetNextRunTime(t *testing.T) {
	next, err := GetNextRunTime("0 * * * *")
	require.NoError(t, err)
	assert.NotNil(t, next)
	assert.True(t, next.After(time.Now()))

	_, err = GetNextRunTime("invalid")
	assert.Error(t, err)
}
