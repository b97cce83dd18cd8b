package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mrlokans/courseshelf/internal/entities"
)

// SeedCourse is one record of the bundled course list shipped with the app.
// AssetPath points at the PDF inside the bundle.
type SeedCourse struct {
	CourseCode  string `yaml:"course_code" json:"course_code"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Category    string `yaml:"category" json:"category"`
	Level       string `yaml:"level" json:"level"`
	FileSize    int64  `yaml:"file_size" json:"file_size"`
	AssetPath   string `yaml:"asset_path" json:"asset_path"`
}

// LoadSeedFile parses a bundled seed document. YAML is a superset of JSON,
// so both .json and .yaml files go through the same decoder.
func LoadSeedFile(path string) ([]SeedCourse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) ([]SeedCourse, error) {
	var records []SeedCourse
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return records, nil
}

// SeedBundledCourses inserts the bundled records when the courses table is
// empty. It returns the number of inserted rows; invalid records are skipped.
func (d *Database) SeedBundledCourses(records []SeedCourse, assetRoot string) (int, error) {
	count, err := d.courses.CountCourses()
	if err != nil {
		return 0, storageErr("count courses", err)
	}
	if count > 0 {
		return 0, nil
	}

	now := time.Now()
	inserted := 0
	for _, rec := range records {
		course, err := rec.toCourse(assetRoot, now)
		if err != nil {
			d.log.WithError(err).WithField("course_code", rec.CourseCode).Warn("Skipping bundled course")
			continue
		}
		if err := d.courses.InsertOrReplaceCourse(course); err != nil {
			return inserted, storageErr("seed course", err)
		}
		inserted++
	}

	if inserted > 0 {
		if err := d.RecomputeCategoryCounts(); err != nil {
			return inserted, err
		}
	}
	if err := d.SetPreference(entities.PreferenceKeyBundledSeeded, now.UTC().Format(time.RFC3339)); err != nil {
		return inserted, err
	}

	d.log.WithField("count", inserted).Info("Seeded bundled courses")
	return inserted, nil
}

func (rec SeedCourse) toCourse(assetRoot string, now time.Time) (*entities.Course, error) {
	code := entities.NormalizeCourseCode(rec.CourseCode)
	if err := entities.ValidateCourseCode(code); err != nil {
		return nil, err
	}

	level, err := entities.ParseLevel(rec.Level)
	if err != nil {
		if level, err = entities.LevelFromCode(code); err != nil {
			return nil, err
		}
	}

	course := &entities.Course{
		ID:           uuid.NewString(),
		CourseCode:   code,
		Title:        strings.TrimSpace(rec.Title),
		Description:  rec.Description,
		Category:     entities.ParseCategory(rec.Category),
		Level:        level,
		FileSize:     rec.FileSize,
		IsBundled:    true,
		IsDownloaded: true,
		DownloadedAt: &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if rec.AssetPath != "" {
		p := rec.AssetPath
		if assetRoot != "" && !filepath.IsAbs(p) {
			p = filepath.Join(assetRoot, p)
		}
		course.LocalPath = &p
	}
	if err := course.Validate(); err != nil {
		return nil, err
	}
	return course, nil
}
