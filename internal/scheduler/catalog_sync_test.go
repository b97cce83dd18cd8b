package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/courseshelf/internal/catalogsync"
	"github.com/mrlokans/courseshelf/internal/settingsstore"
)

type fakeSyncer struct {
	mu      sync.Mutex
	calls   []bool
	result  catalogsync.Result
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeSyncer) SyncCatalog(ctx context.Context, force bool) catalogsync.Result {
	f.mu.Lock()
	f.calls = append(f.calls, force)
	block, entered := f.block, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return catalogsync.Result{Message: ctx.Err().Error()}
		}
	}
	return f.result
}

func (f *fakeSyncer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type staticSettings settingsstore.CatalogSyncConfig

func (s staticSettings) GetCatalogSyncConfig() settingsstore.CatalogSyncConfig {
	return settingsstore.CatalogSyncConfig(s)
}

func newLogger() (*logrus.Logger, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log, hook
}

func hasMessage(hook *test.Hook, msg string) bool {
	for _, e := range hook.AllEntries() {
		if e.Message == msg {
			return true
		}
	}
	return false
}

func TestCatalogSyncScheduler_Disabled(t *testing.T) {
	log, hook := newLogger()
	s := NewCatalogSyncScheduler(&fakeSyncer{}, staticSettings{Enabled: false, Schedule: "0 * * * *"}, log)

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.GetNextRunTime())
	assert.True(t, hasMessage(hook, "Catalog sync scheduler: disabled"))
}

func TestCatalogSyncScheduler_InvalidSchedule(t *testing.T) {
	log, _ := newLogger()
	s := NewCatalogSyncScheduler(&fakeSyncer{}, staticSettings{Enabled: true, Schedule: "whenever"}, log)

	err := s.Start(context.Background())
	assert.ErrorContains(t, err, "invalid cron schedule")
	assert.False(t, s.IsRunning())
}

func TestCatalogSyncScheduler_StartStop(t *testing.T) {
	log, hook := newLogger()
	s := NewCatalogSyncScheduler(&fakeSyncer{}, staticSettings{Enabled: true, Schedule: "0 * * * *"}, log)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	next := s.GetNextRunTime()
	require.NotNil(t, next)
	assert.True(t, next.After(time.Now()))
	assert.Zero(t, next.Minute())

	// Starting twice is a no-op
	require.NoError(t, s.Start(context.Background()))

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.GetNextRunTime())
	assert.True(t, hasMessage(hook, "Catalog sync scheduler: stopped"))
}

func TestCatalogSyncScheduler_StopsOnContextCancel(t *testing.T) {
	log, _ := newLogger()
	s := NewCatalogSyncScheduler(&fakeSyncer{}, staticSettings{Enabled: true, Schedule: "0 * * * *"}, log)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, 2*time.Second, 10*time.Millisecond)
}

func TestCatalogSyncScheduler_RescheduleSurvivesOldWatcher(t *testing.T) {
	log, _ := newLogger()
	s := NewCatalogSyncScheduler(&fakeSyncer{}, staticSettings{Enabled: true, Schedule: "0 * * * *"}, log)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Reschedule(context.Background()))

	// Give the first run's watcher time to observe its cancelled context.
	time.Sleep(50 * time.Millisecond)
	assert.True(t, s.IsRunning())
	s.Stop()
}

func TestCatalogSyncScheduler_RunNowRecordsResult(t *testing.T) {
	log, hook := newLogger()
	syncer := &fakeSyncer{result: catalogsync.Result{Success: true, CoursesAdded: 2}}
	s := NewCatalogSyncScheduler(syncer, staticSettings{Enabled: false}, log)

	s.RunNow()
	require.Eventually(t, func() bool { return s.LastResult() != nil }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, s.LastResult().CoursesAdded)
	syncer.mu.Lock()
	assert.Equal(t, []bool{true}, syncer.calls)
	syncer.mu.Unlock()
	assert.Eventually(t, func() bool { return hasMessage(hook, "Catalog sync: completed") }, time.Second, 10*time.Millisecond)
}

func TestCatalogSyncScheduler_ScheduledRunSkippedWhenDisabled(t *testing.T) {
	log, hook := newLogger()
	syncer := &fakeSyncer{}
	s := NewCatalogSyncScheduler(syncer, staticSettings{Enabled: false}, log)

	s.runSync(false)
	assert.Equal(t, 0, syncer.callCount())
	assert.True(t, hasMessage(hook, "Catalog sync: skipped (disabled)"))
}

func TestCatalogSyncScheduler_SkipsWhileSyncing(t *testing.T) {
	log, hook := newLogger()
	syncer := &fakeSyncer{
		result:  catalogsync.Result{Success: true},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	s := NewCatalogSyncScheduler(syncer, staticSettings{Enabled: true}, log)

	done := make(chan struct{})
	go func() {
		s.runSync(true)
		close(done)
	}()
	<-syncer.entered
	assert.True(t, s.IsSyncing())

	s.runSync(true)
	assert.True(t, hasMessage(hook, "Catalog sync: skipped (already syncing)"))
	assert.Equal(t, 1, syncer.callCount())

	close(syncer.block)
	<-done
	assert.False(t, s.IsSyncing())
}

func TestCatalogSyncScheduler_LogsFailure(t *testing.T) {
	log, hook := newLogger()
	syncer := &fakeSyncer{result: catalogsync.Result{Message: catalogsync.MessageOffline}}
	s := NewCatalogSyncScheduler(syncer, staticSettings{Enabled: true}, log)

	s.runSync(false)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "Catalog sync: failed", entry.Message)
	assert.Equal(t, catalogsync.MessageOffline, entry.Data["reason"])
}

func TestStartupSync(t *testing.T) {
	t.Run("reports success", func(t *testing.T) {
		log, hook := newLogger()
		syncer := &fakeSyncer{result: catalogsync.Result{Success: true, CoursesAdded: 1}}

		err, ok := <-StartupSync(context.Background(), syncer, log)
		assert.True(t, ok)
		assert.NoError(t, err)
		assert.Equal(t, []bool{false}, syncer.calls)
		assert.True(t, hasMessage(hook, "Startup catalog sync completed"))
	})

	t.Run("reports failure and closes", func(t *testing.T) {
		log, _ := newLogger()
		syncer := &fakeSyncer{result: catalogsync.Result{Message: catalogsync.MessageOffline}}

		errc := StartupSync(context.Background(), syncer, log)
		err := <-errc
		assert.True(t, errors.Is(err, catalogsync.ErrSyncFailed))
		assert.ErrorContains(t, err, catalogsync.MessageOffline)

		_, open := <-errc
		assert.False(t, open)
	})

	t.Run("skipped run is not an error", func(t *testing.T) {
		log, _ := newLogger()
		syncer := &fakeSyncer{result: catalogsync.Result{Success: true, Skipped: true, Message: catalogsync.MessageUpToDate}}

		assert.NoError(t, <-StartupSync(context.Background(), syncer, log))
	})
}
