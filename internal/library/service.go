// Package library is the read side of the course shelf: browsing, search,
// categories and storage statistics over the local store.
package library

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/courseshelf/internal/database/courses"
	"github.com/mrlokans/courseshelf/internal/database/history"
	"github.com/mrlokans/courseshelf/internal/entities"
	"github.com/mrlokans/courseshelf/internal/metrics"
)

// DefaultRecentSearches is the history length returned when no limit is given.
const DefaultRecentSearches = 10

type Store interface {
	ListCourses(filter courses.Filter) ([]entities.Course, error)
	SearchCourses(query string) ([]entities.Course, error)
	GetCourseByCode(code string) (*entities.Course, error)
	TouchCourseAccess(id string, at time.Time) error
	ListCategories() ([]entities.Category, error)
	RecentSearches(limit int) ([]history.RecentSearch, error)
	ClearSearchHistory() error
	GetStats() (*entities.CourseStats, error)
}

// DirectorySizer reports the bytes held in the download directory.
type DirectorySizer interface {
	DirectorySize() (int64, error)
}

type SortOrder string

const (
	SortByCode   SortOrder = "code"
	SortByTitle  SortOrder = "title"
	SortByLevel  SortOrder = "level"
	SortByRecent SortOrder = "recent"
)

// ParseSortOrder accepts the sort names used by the API; empty means by code.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortByCode:
		return SortByCode, nil
	case SortByTitle:
		return SortByTitle, nil
	case SortByLevel:
		return SortByLevel, nil
	case SortByRecent:
		return SortByRecent, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

type BrowseOptions struct {
	Category       entities.CourseCategory
	Level          entities.CourseLevel
	DownloadedOnly bool
	BundledOnly    bool
	Sort           SortOrder
}

// StorageStats extends the store counters with the measured size of the
// download directory.
type StorageStats struct {
	entities.CourseStats
	DirectoryBytes int64 `json:"directory_bytes"`
}

type Service struct {
	store Store
	dir   DirectorySizer
	now   func() time.Time
	log   logrus.FieldLogger
}

func NewService(store Store, dir DirectorySizer, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		store: store,
		dir:   dir,
		now:   time.Now,
		log:   log.WithField("component", "library"),
	}
}

// Browse lists courses. The store filters on the most selective option and
// the remaining options narrow the result here.
func (s *Service) Browse(ctx context.Context, opts BrowseOptions) ([]entities.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var filter courses.Filter
	switch {
	case opts.DownloadedOnly:
		filter = courses.DownloadedOnly()
	case opts.BundledOnly:
		filter = courses.BundledOnly()
	case opts.Category != "":
		filter = courses.ByCategory(opts.Category)
	case opts.Level != "":
		filter = courses.ByLevel(opts.Level)
	default:
		filter = courses.All()
	}

	list, err := s.store.ListCourses(filter)
	if err != nil {
		return nil, err
	}

	narrowed := list[:0]
	for _, c := range list {
		if opts.Category != "" && c.Category != opts.Category {
			continue
		}
		if opts.Level != "" && c.Level != opts.Level {
			continue
		}
		if opts.BundledOnly && !c.IsBundled {
			continue
		}
		if opts.DownloadedOnly && !c.IsDownloaded {
			continue
		}
		narrowed = append(narrowed, c)
	}

	// Downloaded-only listings keep the store's newest-first order by default.
	if opts.Sort != "" || !opts.DownloadedOnly {
		SortCourses(narrowed, opts.Sort)
	}
	return narrowed, nil
}

// SortCourses orders courses in place. Ties always fall back to course code.
func SortCourses(list []entities.Course, order SortOrder) {
	byCode := func(a, b entities.Course) bool { return a.CourseCode < b.CourseCode }

	var less func(a, b entities.Course) bool
	switch order {
	case SortByTitle:
		less = func(a, b entities.Course) bool {
			ta, tb := strings.ToLower(a.Title), strings.ToLower(b.Title)
			if ta != tb {
				return ta < tb
			}
			return byCode(a, b)
		}
	case SortByLevel:
		less = func(a, b entities.Course) bool {
			if a.Level.Ordinal() != b.Level.Ordinal() {
				return a.Level.Ordinal() < b.Level.Ordinal()
			}
			return byCode(a, b)
		}
	case SortByRecent:
		less = func(a, b entities.Course) bool {
			ra, rb := recency(a), recency(b)
			if !ra.Equal(rb) {
				return ra.After(rb)
			}
			return byCode(a, b)
		}
	default:
		less = byCode
	}

	sort.SliceStable(list, func(i, j int) bool { return less(list[i], list[j]) })
}

// recency is the last time the user touched a course: opened or downloaded.
func recency(c entities.Course) time.Time {
	var t time.Time
	if c.LastAccessedAt != nil {
		t = *c.LastAccessedAt
	}
	if c.DownloadedAt != nil && c.DownloadedAt.After(t) {
		t = *c.DownloadedAt
	}
	return t
}

// Search runs a ranked search. The store logs the query to search history.
func (s *Service) Search(ctx context.Context, query string) ([]entities.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results, err := s.store.SearchCourses(query)
	if err != nil {
		return nil, err
	}
	metrics.SearchesTotal.Inc()
	return results, nil
}

// Course returns a course by code and records the access. It returns nil
// when the code is unknown.
func (s *Service) Course(ctx context.Context, code string) (*entities.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	course, err := s.store.GetCourseByCode(code)
	if err != nil || course == nil {
		return course, err
	}

	now := s.now()
	if err := s.store.TouchCourseAccess(course.ID, now); err != nil {
		s.log.WithError(err).WithField("course_code", course.CourseCode).Warn("Failed to record course access")
	} else {
		course.LastAccessedAt = &now
	}
	return course, nil
}

func (s *Service) Categories(ctx context.Context) ([]entities.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListCategories()
}

func (s *Service) RecentSearches(ctx context.Context, limit int) ([]history.RecentSearch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRecentSearches
	}
	return s.store.RecentSearches(limit)
}

func (s *Service) ClearSearchHistory(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.ClearSearchHistory()
}

func (s *Service) Stats(ctx context.Context) (*StorageStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stats, err := s.store.GetStats()
	if err != nil {
		return nil, err
	}
	result := &StorageStats{CourseStats: *stats}
	if s.dir != nil {
		size, err := s.dir.DirectorySize()
		if err != nil {
			return nil, fmt.Errorf("scan download directory: %w", err)
		}
		result.DirectoryBytes = size
	}
	return result, nil
}
