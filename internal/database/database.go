package database

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/courseshelf/internal/database/categories"
	"github.com/mrlokans/courseshelf/internal/database/courses"
	"github.com/mrlokans/courseshelf/internal/database/downloads"
	"github.com/mrlokans/courseshelf/internal/database/history"
	"github.com/mrlokans/courseshelf/internal/database/preferences"
	"github.com/mrlokans/courseshelf/internal/entities"
)

var (
	// ErrStorage wraps every failure of the underlying storage engine.
	ErrStorage = errors.New("storage error")
	// ErrCorrupt is returned when the database fails its integrity check.
	ErrCorrupt = errors.New("database corrupt")
)

type Database struct {
	DB *gorm.DB

	path        string
	log         logrus.FieldLogger
	courses     *courses.Repository
	categories  *categories.Repository
	downloads   *downloads.Repository
	preferences *preferences.Repository
	history     *history.Repository

	// pending tracks fire-and-forget history writes so Close can drain them.
	// No write is added once closed is set.
	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

type options struct {
	log   logrus.FieldLogger
	debug bool
}

// Option configures NewDatabase.
type Option func(*options)

// WithLogger sets the logger used for background write failures.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) { o.log = log }
}

// WithDebug enables SQL statement logging.
func WithDebug(debug bool) Option {
	return func(o *options) { o.debug = debug }
}

func NewDatabase(dbPath string, opts ...Option) (*Database, error) {
	o := options{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	logLevel := logger.Warn
	if o.debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		if isCorruption(err) {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		return nil, fmt.Errorf("%w: failed to connect to database: %w", ErrStorage, err)
	}

	// One connection: SQLite serializes writers anyway and this keeps the
	// store a single logical handle.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: get sql.DB: %w", ErrStorage, err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	database := &Database{
		DB:          db,
		path:        dbPath,
		log:         o.log.WithField("component", "database"),
		courses:     courses.NewRepository(db),
		categories:  categories.NewRepository(db),
		downloads:   downloads.NewRepository(db),
		preferences: preferences.NewRepository(db),
		history:     history.NewRepository(db),
	}

	if err := database.checkIntegrity(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	err = db.AutoMigrate(
		&entities.Course{},
		&entities.Category{},
		&entities.DownloadProgress{},
		&entities.Preference{},
		&entities.SearchHistoryEntry{},
	)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: failed to migrate database: %w", ErrCorrupt, err)
	}

	if err := database.categories.Seed(entities.AllCategories); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: failed to seed categories: %w", ErrStorage, err)
	}

	if n, err := database.downloads.FailInterruptedDownloads("interrupted by restart"); err != nil {
		database.log.WithError(err).Warn("Failed to reset interrupted downloads")
	} else if n > 0 {
		database.log.WithField("rows", n).Info("Marked interrupted downloads as failed")
	}

	database.log.WithField("path", dbPath).Info("Database initialized")

	return database, nil
}

func (d *Database) checkIntegrity() error {
	rows, err := d.DB.Raw("PRAGMA quick_check").Rows()
	if err != nil {
		return fmt.Errorf("%w: integrity check: %w", ErrCorrupt, err)
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return fmt.Errorf("%w: integrity check: %w", ErrCorrupt, err)
		}
		if line != "ok" {
			problems = append(problems, line)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: integrity check: %w", ErrCorrupt, err)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrCorrupt, strings.Join(problems, "; "))
	}
	return nil
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.path
}

// Close waits for pending background writes and closes the connection.
func (d *Database) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.pending.Wait()
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the connection.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// isCorruption reports whether err is SQLite refusing the file itself.
func isCorruption(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrCorrupt || sqliteErr.Code == sqlite3.ErrNotADB
	}
	return false
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// --- Courses ---

func (d *Database) InsertOrReplaceCourse(course *entities.Course) error {
	return storageErr("insert course", d.courses.InsertOrReplaceCourse(course))
}

// UpdateCourse returns the number of affected rows; zero means the ID is unknown.
func (d *Database) UpdateCourse(course *entities.Course) (int64, error) {
	n, err := d.courses.UpdateCourse(course)
	return n, storageErr("update course", err)
}

func (d *Database) GetCourseByID(id string) (*entities.Course, error) {
	c, err := d.courses.GetCourseByID(id)
	return c, storageErr("get course", err)
}

func (d *Database) GetCourseByCode(code string) (*entities.Course, error) {
	c, err := d.courses.GetCourseByCode(code)
	return c, storageErr("get course by code", err)
}

func (d *Database) ListCourses(filter courses.Filter) ([]entities.Course, error) {
	list, err := d.courses.ListCourses(filter)
	return list, storageErr("list courses", err)
}

// SearchCourses runs a ranked search and logs the query with its result count
// in the background. A failed history write never fails the search.
func (d *Database) SearchCourses(query string) ([]entities.Course, error) {
	results, err := d.courses.Search(query)
	if err != nil {
		return nil, storageErr("search courses", err)
	}

	if q := strings.TrimSpace(query); q != "" {
		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			return results, nil
		}
		d.pending.Add(1)
		d.mu.Unlock()

		count := len(results)
		go func() {
			defer d.pending.Done()
			if err := d.history.LogSearch(q, count, time.Now()); err != nil {
				d.log.WithError(err).WithField("query", q).Warn("Failed to log search")
			}
		}()
	}

	return results, nil
}

func (d *Database) MarkCourseDownloaded(id, localPath string, at time.Time) error {
	return storageErr("mark downloaded", d.courses.MarkCourseDownloaded(id, localPath, at))
}

func (d *Database) ClearCourseDownload(id string) error {
	return storageErr("clear download", d.courses.ClearCourseDownload(id))
}

func (d *Database) TouchCourseAccess(id string, at time.Time) error {
	return storageErr("touch course", d.courses.TouchCourseAccess(id, at))
}

func (d *Database) GetStats() (*entities.CourseStats, error) {
	stats, err := d.courses.GetStats()
	return stats, storageErr("stats", err)
}

// --- Categories ---

func (d *Database) ListCategories() ([]entities.Category, error) {
	list, err := d.categories.ListCategories()
	return list, storageErr("list categories", err)
}

func (d *Database) GetCategoryByName(name string) (*entities.Category, error) {
	c, err := d.categories.GetCategoryByName(name)
	return c, storageErr("get category", err)
}

func (d *Database) RecomputeCategoryCounts() error {
	return storageErr("recompute category counts", d.categories.RecomputeCategoryCounts())
}

// --- Download progress ---

func (d *Database) UpsertDownloadProgress(progress *entities.DownloadProgress) error {
	return storageErr("upsert download progress", d.downloads.UpsertDownloadProgress(progress))
}

func (d *Database) UpdateDownloadProgress(progress *entities.DownloadProgress) (int64, error) {
	n, err := d.downloads.UpdateDownloadProgress(progress)
	return n, storageErr("update download progress", err)
}

func (d *Database) GetDownloadProgress(courseID string) (*entities.DownloadProgress, error) {
	p, err := d.downloads.GetDownloadProgress(courseID)
	return p, storageErr("get download progress", err)
}

func (d *Database) ListDownloadProgress(statuses ...entities.DownloadStatus) ([]entities.DownloadProgress, error) {
	list, err := d.downloads.ListDownloadProgress(statuses...)
	return list, storageErr("list download progress", err)
}

func (d *Database) DeleteDownloadProgress(courseID string) error {
	return storageErr("delete download progress", d.downloads.DeleteDownloadProgress(courseID))
}

// --- Preferences ---

func (d *Database) GetPreference(key string) (*entities.Preference, error) {
	p, err := d.preferences.GetPreference(key)
	return p, storageErr("get preference", err)
}

func (d *Database) SetPreference(key, value string) error {
	return storageErr("set preference", d.preferences.SetPreference(key, value))
}

func (d *Database) DeletePreference(key string) error {
	return storageErr("delete preference", d.preferences.DeletePreference(key))
}

func (d *Database) AllPreferences() (map[string]string, error) {
	m, err := d.preferences.AllPreferences()
	return m, storageErr("list preferences", err)
}

// --- Search history ---

func (d *Database) RecentSearches(limit int) ([]history.RecentSearch, error) {
	list, err := d.history.RecentSearches(limit)
	return list, storageErr("recent searches", err)
}

func (d *Database) ClearSearchHistory() error {
	return storageErr("clear search history", d.history.ClearSearchHistory())
}

func (d *Database) CountSearchHistory() (int64, error) {
	n, err := d.history.CountEntries()
	return n, storageErr("count search history", err)
}
