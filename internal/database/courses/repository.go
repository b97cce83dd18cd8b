// Package courses provides database operations for course records.
//
// # Usage
//
//	repo := courses.NewRepository(db)
//	course, err := repo.GetCourseByCode("CIT101")
//	list, err := repo.ListCourses(courses.ByCategory(entities.CategoryPhysics))
package courses

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/courseshelf/internal/entities"
)

// FilterKind selects which subset of courses ListCourses returns.
type FilterKind int

const (
	FilterNone FilterKind = iota
	FilterByCategory
	FilterByLevel
	FilterDownloadedOnly
	FilterBundledOnly
)

// Filter is a course listing filter. Build it with the helper constructors.
type Filter struct {
	Kind     FilterKind
	Category entities.CourseCategory
	Level    entities.CourseLevel
}

func All() Filter { return Filter{Kind: FilterNone} }

func ByCategory(c entities.CourseCategory) Filter {
	return Filter{Kind: FilterByCategory, Category: c}
}

func ByLevel(l entities.CourseLevel) Filter {
	return Filter{Kind: FilterByLevel, Level: l}
}

func DownloadedOnly() Filter { return Filter{Kind: FilterDownloadedOnly} }

func BundledOnly() Filter { return Filter{Kind: FilterBundledOnly} }

// Repository handles all course database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new courses repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// InsertOrReplaceCourse writes the full record, replacing any row that
// conflicts on the primary key or on the course code.
func (r *Repository) InsertOrReplaceCourse(course *entities.Course) error {
	now := time.Now()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	if course.UpdatedAt.IsZero() {
		course.UpdatedAt = now
	}
	return r.db.Clauses(clause.Insert{Modifier: "OR REPLACE"}).Create(course).Error
}

// UpdateCourse overwrites every column of the row with the course's ID.
// It returns the number of affected rows; zero means the ID does not exist.
func (r *Repository) UpdateCourse(course *entities.Course) (int64, error) {
	course.UpdatedAt = time.Now()
	result := r.db.Model(&entities.Course{}).
		Where("id = ?", course.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(course)
	return result.RowsAffected, result.Error
}

// GetCourseByID returns nil without an error when no course matches.
func (r *Repository) GetCourseByID(id string) (*entities.Course, error) {
	var course entities.Course
	err := r.db.Where("id = ?", id).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// GetCourseByCode normalizes the code before lookup and returns nil
// without an error when no course matches.
func (r *Repository) GetCourseByCode(code string) (*entities.Course, error) {
	var course entities.Course
	err := r.db.Where("course_code = ?", entities.NormalizeCourseCode(code)).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// ListCourses returns courses matching the filter ordered by course code,
// except downloaded-only listings which are newest download first.
func (r *Repository) ListCourses(filter Filter) ([]entities.Course, error) {
	query := r.db.Model(&entities.Course{})
	order := "course_code ASC"

	switch filter.Kind {
	case FilterByCategory:
		query = query.Where("category = ?", filter.Category)
	case FilterByLevel:
		query = query.Where("level = ?", filter.Level)
	case FilterDownloadedOnly:
		query = query.Where("is_downloaded = ?", true)
		order = "downloaded_at DESC, course_code ASC"
	case FilterBundledOnly:
		query = query.Where("is_bundled = ?", true)
	}

	var list []entities.Course
	err := query.Order(order).Find(&list).Error
	return list, err
}

// Search performs a case-insensitive substring match over code, title and
// description. Results are ranked: exact code, code prefix, title prefix,
// everything else; ties are broken by course code.
func (r *Repository) Search(query string) ([]entities.Course, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []entities.Course{}, nil
	}

	lower := escapeLike(strings.ToLower(query))
	code := entities.NormalizeCourseCode(query)
	escapedCode := escapeLike(code)
	contains := "%" + lower + "%"

	var list []entities.Course
	err := r.db.Model(&entities.Course{}).
		Where(`LOWER(course_code) LIKE ? ESCAPE '\' OR course_code LIKE ? ESCAPE '\' OR LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`,
			contains, "%"+escapedCode+"%", contains, contains).
		Clauses(clause.OrderBy{
			Expression: clause.Expr{
				SQL: `CASE WHEN course_code = ? THEN 1 WHEN course_code LIKE ? ESCAPE '\' THEN 2 WHEN LOWER(title) LIKE ? ESCAPE '\' THEN 3 ELSE 4 END, course_code ASC`,
				Vars: []any{code, escapedCode + "%", lower + "%"},
				WithoutParentheses: true,
			},
		}).
		Find(&list).Error
	return list, err
}

// MarkCourseDownloaded records a materialized file for the course.
func (r *Repository) MarkCourseDownloaded(id, localPath string, at time.Time) error {
	return r.db.Model(&entities.Course{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_downloaded": true,
			"local_path":    localPath,
			"downloaded_at": at,
			"updated_at":    time.Now(),
		}).Error
}

// ClearCourseDownload resets the download fields of a course.
func (r *Repository) ClearCourseDownload(id string) error {
	return r.db.Model(&entities.Course{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_downloaded": false,
			"local_path":    nil,
			"downloaded_at": nil,
			"updated_at":    time.Now(),
		}).Error
}

// TouchCourseAccess sets the last access time of a course.
func (r *Repository) TouchCourseAccess(id string, at time.Time) error {
	return r.db.Model(&entities.Course{}).
		Where("id = ?", id).
		UpdateColumn("last_accessed_at", at).Error
}

// CountCourses returns the number of stored courses.
func (r *Repository) CountCourses() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Course{}).Count(&count).Error
	return count, err
}

// GetStats returns aggregate counts and the byte total of every course that
// occupies local storage (downloaded or bundled).
func (r *Repository) GetStats() (*entities.CourseStats, error) {
	var stats entities.CourseStats

	if err := r.db.Model(&entities.Course{}).Count(&stats.TotalCourses).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&entities.Course{}).Where("is_downloaded = ?", true).Count(&stats.DownloadedCourses).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&entities.Course{}).Where("is_bundled = ?", true).Count(&stats.BundledCourses).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&entities.Course{}).
		Where("is_downloaded = ? OR is_bundled = ?", true, true).
		Select("COALESCE(SUM(file_size), 0)").
		Scan(&stats.StorageBytes).Error; err != nil {
		return nil, err
	}

	return &stats, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
