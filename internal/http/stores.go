package http

import (
	"context"
	"time"

	"github.com/mrlokans/courseshelf/internal/catalogsync"
	"github.com/mrlokans/courseshelf/internal/database/history"
	"github.com/mrlokans/courseshelf/internal/downloads"
	"github.com/mrlokans/courseshelf/internal/entities"
	"github.com/mrlokans/courseshelf/internal/library"
	"github.com/mrlokans/courseshelf/internal/settingsstore"
)

// Each controller declares the narrow slice of a service it calls.

// Library is the read side of the course library.
type Library interface {
	Browse(ctx context.Context, opts library.BrowseOptions) ([]entities.Course, error)
	Search(ctx context.Context, query string) ([]entities.Course, error)
	Course(ctx context.Context, code string) (*entities.Course, error)
	Categories(ctx context.Context) ([]entities.Category, error)
	RecentSearches(ctx context.Context, limit int) ([]history.RecentSearch, error)
	ClearSearchHistory(ctx context.Context) error
	Stats(ctx context.Context) (*library.StorageStats, error)
}

// CatalogSyncer runs and reports on catalog syncs.
type CatalogSyncer interface {
	SyncCatalog(ctx context.Context, force bool) catalogsync.Result
	SyncCategory(ctx context.Context, category entities.CourseCategory) catalogsync.Result
	SyncLevel(ctx context.Context, level entities.CourseLevel) catalogsync.Result
	IsSyncing() bool
	LastSync(ctx context.Context) (time.Time, error)
	ShouldSync(ctx context.Context) bool
	TimeUntilNextSync(ctx context.Context) *time.Duration
}

// SyncSchedule exposes the background scheduler state.
type SyncSchedule interface {
	IsRunning() bool
	GetNextRunTime() *time.Time
	LastResult() *catalogsync.Result
	Reschedule(ctx context.Context) error
}

// DownloadManager is the download engine surface used by the API.
type DownloadManager interface {
	DownloadCourse(ctx context.Context, course *entities.Course) downloads.StartResult
	CancelDownload(courseID string) downloads.CancelResult
	DeleteDownload(ctx context.Context, course *entities.Course) error
	ClearAllDownloads(ctx context.Context) error
	Progress(courseID string) (entities.DownloadProgress, bool)
	AllProgress() []entities.DownloadProgress
	ActiveCount() int
	QueuedCount() int
	MaxConcurrent() int
}

// CourseLookup resolves a course code without recording an access, and reads
// the newest persisted download row of a course.
type CourseLookup interface {
	GetCourseByCode(code string) (*entities.Course, error)
	GetDownloadProgress(courseID string) (*entities.DownloadProgress, error)
}

// Preferences is the layered preference store.
type Preferences interface {
	Get(key string) (settingsstore.PreferenceInfo, error)
	Set(key, value string) error
	Clear(key string) error
	All() []settingsstore.PreferenceInfo
	GetCatalogSyncConfigInfo() settingsstore.CatalogSyncConfigInfo
}

// DBPinger checks the metadata database connection.
type DBPinger interface {
	Ping() error
}

// ReachabilityChecker probes the remote catalog.
type ReachabilityChecker interface {
	CheckReachable(ctx context.Context) error
}
