package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/courseshelf/internal/catalogsync"
	"github.com/mrlokans/courseshelf/internal/settingsstore"
)

// Syncer runs a full catalog sync. *catalogsync.Reconciler satisfies it.
type Syncer interface {
	SyncCatalog(ctx context.Context, force bool) catalogsync.Result
}

// SyncSettings supplies the effective schedule configuration.
type SyncSettings interface {
	GetCatalogSyncConfig() settingsstore.CatalogSyncConfig
}

// DefaultRunTimeout bounds a single scheduled sync.
const DefaultRunTimeout = 10 * time.Minute

// CatalogSyncScheduler runs periodic catalog syncs on a cron schedule. The
// reconciler's 24h gate still applies, so frequent schedules are cheap.
type CatalogSyncScheduler struct {
	syncer   Syncer
	settings SyncSettings
	log      logrus.FieldLogger
	timeout  time.Duration

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSyncing  bool
	baseCtx    context.Context
	cancelFunc context.CancelFunc
	lastResult *catalogsync.Result
}

func NewCatalogSyncScheduler(syncer Syncer, settings SyncSettings, log logrus.FieldLogger) *CatalogSyncScheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CatalogSyncScheduler{
		syncer:   syncer,
		settings: settings,
		log:      log.WithField("component", "scheduler"),
		timeout:  DefaultRunTimeout,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
		baseCtx:  context.Background(),
	}
}

// Start begins the scheduler if auto sync is enabled
func (s *CatalogSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	config := s.settings.GetCatalogSyncConfig()
	if !config.Enabled {
		s.log.Info("Catalog sync scheduler: disabled")
		return nil
	}

	if err := settingsstore.ValidateCronSchedule(config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", config.Schedule, err)
	}

	entryID, err := s.cron.AddFunc(config.Schedule, func() {
		s.runSync(false)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)
	s.baseCtx = cancelCtx

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := settingsstore.GetNextRunTime(config.Schedule)
	s.log.WithFields(logrus.Fields{
		"schedule":    config.Schedule,
		"description": settingsstore.GetCronDescription(config.Schedule),
		"next_run":    nextRun,
	}).Info("Catalog sync scheduler: started")

	go func() {
		<-cancelCtx.Done()
		s.stop(cancelCtx)
	}()

	return nil
}

// Stop waits for a running job and removes the scheduled entry.
func (s *CatalogSyncScheduler) Stop() {
	s.stop(nil)
}

// stop halts the scheduler. A non-nil runCtx only stops the run it belongs
// to, so a stale watcher cannot stop a rescheduled run.
func (s *CatalogSyncScheduler) stop(runCtx context.Context) {
	s.mu.Lock()
	if !s.isRunning || (runCtx != nil && runCtx != s.baseCtx) {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.cron.Remove(s.entryID)
	cancel := s.cancelFunc
	s.cancelFunc = nil
	s.baseCtx = context.Background()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	// The job may itself take s.mu, so wait outside the lock.
	<-s.cron.Stop().Done()

	s.log.Info("Catalog sync scheduler: stopped")
}

// Reschedule updates the schedule (call after settings change)
func (s *CatalogSyncScheduler) Reschedule(ctx context.Context) error {
	s.Stop()
	return s.Start(ctx)
}

// RunNow triggers an immediate forced sync in the background.
func (s *CatalogSyncScheduler) RunNow() {
	go s.runSync(true)
}

func (s *CatalogSyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *CatalogSyncScheduler) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSyncing
}

// LastResult returns the outcome of the last run started by the scheduler.
func (s *CatalogSyncScheduler) LastResult() *catalogsync.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastResult == nil {
		return nil
	}
	res := *s.lastResult
	return &res
}

// GetNextRunTime returns when the next sync will occur
func (s *CatalogSyncScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *CatalogSyncScheduler) runSync(force bool) {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		s.log.Info("Catalog sync: skipped (already syncing)")
		return
	}
	s.isSyncing = true
	base := s.baseCtx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	if !force && !s.settings.GetCatalogSyncConfig().Enabled {
		s.log.Info("Catalog sync: skipped (disabled)")
		return
	}

	ctx, cancel := context.WithTimeout(base, s.timeout)
	defer cancel()

	startTime := time.Now()
	result := s.syncer.SyncCatalog(ctx, force)

	s.mu.Lock()
	s.lastResult = &result
	s.mu.Unlock()

	entry := s.log.WithFields(logrus.Fields{
		"added":    result.CoursesAdded,
		"updated":  result.CoursesUpdated,
		"failed":   result.CoursesFailed,
		"duration": time.Since(startTime).Round(time.Millisecond),
	})
	switch {
	case result.Skipped:
		entry.Debug("Catalog sync: skipped (" + result.Message + ")")
	case result.Success:
		entry.Info("Catalog sync: completed")
	default:
		entry.WithField("reason", result.Message).Warn("Catalog sync: failed")
	}
}
