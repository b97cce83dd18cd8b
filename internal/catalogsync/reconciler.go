// Package catalogsync reconciles the local course table with the remote catalog.
//
// Records are merged by normalized course code. A remote update never touches
// the fields that describe local state: ID, bundled flag, local path,
// download flag and timestamps, last access and creation time.
package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/courseshelf/internal/catalog"
	"github.com/mrlokans/courseshelf/internal/entities"
	"github.com/mrlokans/courseshelf/internal/metrics"
)

// DefaultInterval is the minimum time between two unforced full syncs.
const DefaultInterval = 24 * time.Hour

const (
	MessageInProgress = "Sync already in progress"
	MessageOffline    = "No internet connection"
	MessageUpToDate   = "Catalog is up to date"
	MessageEmpty      = "Remote catalog is empty"
)

// Store is the part of the local database the reconciler writes to.
type Store interface {
	GetCourseByID(id string) (*entities.Course, error)
	GetCourseByCode(code string) (*entities.Course, error)
	InsertOrReplaceCourse(course *entities.Course) error
	UpdateCourse(course *entities.Course) (int64, error)
	RecomputeCategoryCounts() error
	GetPreference(key string) (*entities.Preference, error)
	SetPreference(key, value string) error
}

// Result describes one sync run. Connectivity problems and an in-flight sync
// are reported here rather than as errors.
type Result struct {
	Success        bool      `json:"success"`
	Skipped        bool      `json:"skipped"`
	Message        string    `json:"message"`
	CoursesAdded   int       `json:"courses_added"`
	CoursesUpdated int       `json:"courses_updated"`
	CoursesFailed  int       `json:"courses_failed"`
	SyncedAt       time.Time `json:"synced_at"`
}

type Reconciler struct {
	store    Store
	source   catalog.Source
	conn     catalog.Connectivity
	interval time.Duration
	now      func() time.Time
	log      logrus.FieldLogger

	syncing atomic.Bool

	mu       sync.Mutex
	lastSync *time.Time // nil until loaded from the store
}

type Option func(*Reconciler)

func WithInterval(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Reconciler) { r.log = log }
}

func NewReconciler(store Store, source catalog.Source, conn catalog.Connectivity, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:    store,
		source:   source,
		conn:     conn,
		interval: DefaultInterval,
		now:      time.Now,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.WithField("component", "catalogsync")
	return r
}

// IsSyncing reports whether any sync is running.
func (r *Reconciler) IsSyncing() bool {
	return r.syncing.Load()
}

// SyncCatalog fetches the whole catalog and merges it into the store. Unless
// force is set, it does nothing when the last full sync is younger than the
// sync interval.
func (r *Reconciler) SyncCatalog(ctx context.Context, force bool) Result {
	if !r.syncing.CompareAndSwap(false, true) {
		r.log.Info("Catalog sync: skipped (already syncing)")
		return Result{Success: false, Message: MessageInProgress}
	}
	defer r.syncing.Store(false)

	start := time.Now()

	if !r.conn.HasNetwork(ctx) {
		metrics.RecordSync("full", "offline", 0, 0, 0, 0)
		return Result{Success: false, Message: MessageOffline}
	}

	if !force && !r.ShouldSync(ctx) {
		return Result{Success: true, Skipped: true, Message: MessageUpToDate}
	}

	records, err := r.source.FetchAll(ctx)
	if err != nil {
		r.log.WithError(err).Error("Catalog sync: fetch failed")
		metrics.RecordSync("full", "error", 0, 0, 0, time.Since(start))
		return Result{Success: false, Message: fmt.Sprintf("Failed to fetch catalog: %v", err)}
	}

	if len(records) == 0 {
		r.log.Info("Catalog sync: remote catalog is empty")
		metrics.RecordSync("full", "empty", 0, 0, 0, time.Since(start))
		return Result{Success: true, Message: MessageEmpty, SyncedAt: r.now()}
	}

	result := r.mergeAll(ctx, records)
	if ctx.Err() != nil {
		metrics.RecordSync("full", "cancelled", result.CoursesAdded, result.CoursesUpdated, result.CoursesFailed, time.Since(start))
		return Result{Success: false, Message: fmt.Sprintf("Sync cancelled: %v", ctx.Err()),
			CoursesAdded: result.CoursesAdded, CoursesUpdated: result.CoursesUpdated, CoursesFailed: result.CoursesFailed}
	}

	syncedAt := r.now()
	if err := r.store.SetPreference(entities.PreferenceKeyLastSync, syncedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		r.log.WithError(err).Error("Catalog sync: failed to persist last sync time")
	} else {
		r.setLastSync(syncedAt)
	}

	result.Success = true
	result.SyncedAt = syncedAt
	result.Message = fmt.Sprintf("Synced %d courses (%d new, %d updated, %d failed)",
		result.CoursesAdded+result.CoursesUpdated, result.CoursesAdded, result.CoursesUpdated, result.CoursesFailed)

	r.log.WithFields(logrus.Fields{
		"added":    result.CoursesAdded,
		"updated":  result.CoursesUpdated,
		"failed":   result.CoursesFailed,
		"duration": time.Since(start),
	}).Info("Catalog sync: completed")
	metrics.RecordSync("full", "success", result.CoursesAdded, result.CoursesUpdated, result.CoursesFailed, time.Since(start))

	return result
}

// SyncCategory merges the catalog records of one category. It ignores the
// sync interval and leaves the last sync time alone.
func (r *Reconciler) SyncCategory(ctx context.Context, category entities.CourseCategory) Result {
	return r.syncPartial(ctx, "category", string(category), func(ctx context.Context) ([]catalog.Record, error) {
		return r.source.FetchByCategory(ctx, category)
	})
}

// SyncLevel merges the catalog records of one level.
func (r *Reconciler) SyncLevel(ctx context.Context, level entities.CourseLevel) Result {
	return r.syncPartial(ctx, "level", string(level), func(ctx context.Context) ([]catalog.Record, error) {
		return r.source.FetchByLevel(ctx, level)
	})
}

func (r *Reconciler) syncPartial(ctx context.Context, scope, value string, fetch func(context.Context) ([]catalog.Record, error)) Result {
	if !r.syncing.CompareAndSwap(false, true) {
		return Result{Success: false, Message: MessageInProgress}
	}
	defer r.syncing.Store(false)

	start := time.Now()
	log := r.log.WithField(scope, value)

	if !r.conn.HasNetwork(ctx) {
		metrics.RecordSync(scope, "offline", 0, 0, 0, 0)
		return Result{Success: false, Message: MessageOffline}
	}

	records, err := fetch(ctx)
	if err != nil {
		log.WithError(err).Error("Catalog sync: fetch failed")
		metrics.RecordSync(scope, "error", 0, 0, 0, time.Since(start))
		return Result{Success: false, Message: fmt.Sprintf("Failed to fetch %s %q: %v", scope, value, err)}
	}

	result := r.mergeAll(ctx, records)
	result.Success = ctx.Err() == nil
	result.SyncedAt = r.now()
	result.Message = fmt.Sprintf("Synced %d courses for %s %s", result.CoursesAdded+result.CoursesUpdated, scope, value)

	log.WithFields(logrus.Fields{
		"added":   result.CoursesAdded,
		"updated": result.CoursesUpdated,
		"failed":  result.CoursesFailed,
	}).Info("Catalog sync: partial sync completed")
	metrics.RecordSync(scope, "success", result.CoursesAdded, result.CoursesUpdated, result.CoursesFailed, time.Since(start))

	return result
}

// mergeAll applies every record, counting failures instead of aborting, then
// refreshes the category counts.
func (r *Reconciler) mergeAll(ctx context.Context, records []catalog.Record) Result {
	var result Result
	for _, rec := range records {
		if ctx.Err() != nil {
			break
		}
		added, err := r.merge(rec)
		switch {
		case err != nil:
			result.CoursesFailed++
			r.log.WithError(err).WithField("course_code", rec.CourseCode).Warn("Catalog sync: record failed")
		case added:
			result.CoursesAdded++
		default:
			result.CoursesUpdated++
		}
	}

	if err := r.store.RecomputeCategoryCounts(); err != nil {
		r.log.WithError(err).Error("Catalog sync: failed to recompute category counts")
	}
	return result
}

// merge inserts or updates one record. It reports whether a course was added.
func (r *Reconciler) merge(rec catalog.Record) (bool, error) {
	code := rec.NormalizedCode()
	if err := entities.ValidateCourseCode(code); err != nil {
		return false, err
	}
	title := strings.TrimSpace(rec.Title)
	if title == "" {
		return false, fmt.Errorf("course %s has no title", code)
	}
	if rec.FileSize < 0 {
		return false, fmt.Errorf("course %s has negative file size", code)
	}

	level, err := entities.ParseLevel(rec.Level)
	if err != nil {
		if level, err = entities.LevelFromCode(code); err != nil {
			return false, err
		}
	}

	var firebasePath *string
	if p := strings.TrimSpace(rec.FirebasePath); p != "" {
		firebasePath = &p
	}

	existing, err := r.store.GetCourseByCode(code)
	if err != nil {
		return false, err
	}

	if existing == nil {
		id, err := r.newCourseID(rec.ID)
		if err != nil {
			return false, err
		}
		now := r.now()
		course := &entities.Course{
			ID:           id,
			CourseCode:   code,
			Title:        title,
			Description:  rec.Description,
			Category:     entities.ParseCategory(rec.Category),
			Level:        level,
			FileSize:     rec.FileSize,
			FirebasePath: firebasePath,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return true, r.store.InsertOrReplaceCourse(course)
	}

	updated := *existing
	updated.Title = title
	updated.Description = rec.Description
	updated.Category = entities.ParseCategory(rec.Category)
	updated.Level = level
	updated.FileSize = rec.FileSize
	updated.FirebasePath = firebasePath

	n, err := r.store.UpdateCourse(&updated)
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, fmt.Errorf("course %s vanished during update", code)
	}
	return false, nil
}

// newCourseID prefers the remote key. A key already used by another course
// falls back to a fresh UUID so the insert cannot replace an unrelated row.
func (r *Reconciler) newCourseID(remoteID string) (string, error) {
	remoteID = strings.TrimSpace(remoteID)
	if remoteID == "" {
		return uuid.NewString(), nil
	}
	taken, err := r.store.GetCourseByID(remoteID)
	if err != nil {
		return "", err
	}
	if taken != nil {
		return uuid.NewString(), nil
	}
	return remoteID, nil
}

// LastSync returns the time of the last successful full sync, or the zero
// time when there has never been one.
func (r *Reconciler) LastSync(_ context.Context) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lastSync != nil {
		return *r.lastSync, nil
	}

	pref, err := r.store.GetPreference(entities.PreferenceKeyLastSync)
	if err != nil {
		return time.Time{}, err
	}
	var last time.Time
	if pref != nil && pref.Value != "" {
		last, err = time.Parse(time.RFC3339Nano, pref.Value)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse last sync %q: %w", pref.Value, err)
		}
	}
	r.lastSync = &last
	return last, nil
}

func (r *Reconciler) setLastSync(t time.Time) {
	r.mu.Lock()
	r.lastSync = &t
	r.mu.Unlock()
}

// ShouldSync is true when the last full sync is at least one interval old.
// A store error counts as due.
func (r *Reconciler) ShouldSync(ctx context.Context) bool {
	last, err := r.LastSync(ctx)
	if err != nil {
		r.log.WithError(err).Warn("Catalog sync: failed to read last sync time")
		return true
	}
	if last.IsZero() {
		return true
	}
	return r.now().Sub(last) >= r.interval
}

// TimeUntilNextSync returns how long until a full sync is due, zero when it
// is due now, and nil when the last sync time cannot be read.
func (r *Reconciler) TimeUntilNextSync(ctx context.Context) *time.Duration {
	last, err := r.LastSync(ctx)
	if err != nil {
		return nil
	}
	var remaining time.Duration
	if !last.IsZero() {
		remaining = last.Add(r.interval).Sub(r.now())
		if remaining < 0 {
			remaining = 0
		}
	}
	return &remaining
}

// ErrSyncFailed is returned by Err for unsuccessful results.
var ErrSyncFailed = errors.New("catalog sync failed")

// Err converts an unsuccessful result into an error for callers that only
// speak errors, such as task processors.
func (res Result) Err() error {
	if res.Success {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrSyncFailed, res.Message)
}
