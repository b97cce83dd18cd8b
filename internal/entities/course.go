package entities

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

type CourseCategory string

const (
	CategoryComputerScience    CourseCategory = "Computer Science"
	CategoryMathematics        CourseCategory = "Mathematics"
	CategoryPhysics            CourseCategory = "Physics"
	CategoryChemistry          CourseCategory = "Chemistry"
	CategoryBiology            CourseCategory = "Biology"
	CategoryGeneralStudies     CourseCategory = "General Studies"
	CategoryManagementSciences CourseCategory = "Management Sciences"
	CategoryEducation          CourseCategory = "Education"
	CategoryOther              CourseCategory = "Other"
)

// CategoryInfo describes one of the fixed categories. IconName is a symbolic
// key resolved by the client into an icon.
type CategoryInfo struct {
	Name        CourseCategory
	Description string
	IconName    string
}

// AllCategories lists the fixed category set in display order.
var AllCategories = []CategoryInfo{
	{Name: CategoryComputerScience, Description: "Programming, systems and information technology", IconName: "computer"},
	{Name: CategoryMathematics, Description: "Pure and applied mathematics, statistics", IconName: "calculate"},
	{Name: CategoryPhysics, Description: "Mechanics, electromagnetism and modern physics", IconName: "science"},
	{Name: CategoryChemistry, Description: "Organic, inorganic and physical chemistry", IconName: "biotech"},
	{Name: CategoryBiology, Description: "Life sciences and ecology", IconName: "eco"},
	{Name: CategoryGeneralStudies, Description: "General studies and communication skills", IconName: "menu_book"},
	{Name: CategoryManagementSciences, Description: "Business, accounting and administration", IconName: "business"},
	{Name: CategoryEducation, Description: "Teaching methods and educational foundations", IconName: "school"},
	{Name: CategoryOther, Description: "Courses outside the main faculties", IconName: "folder"},
}

// ParseCategory maps a free-form category name onto the fixed set.
// Matching is case-insensitive; unknown names map to CategoryOther.
func ParseCategory(name string) CourseCategory {
	name = strings.TrimSpace(name)
	for _, c := range AllCategories {
		if strings.EqualFold(string(c.Name), name) {
			return c.Name
		}
	}
	return CategoryOther
}

// IsValid reports whether c is one of the fixed categories.
func (c CourseCategory) IsValid() bool {
	for _, info := range AllCategories {
		if info.Name == c {
			return true
		}
	}
	return false
}

type CourseLevel string

const (
	Level100 CourseLevel = "100 Level"
	Level200 CourseLevel = "200 Level"
	Level300 CourseLevel = "300 Level"
	Level400 CourseLevel = "400 Level"
)

var AllLevels = []CourseLevel{Level100, Level200, Level300, Level400}

// Ordinal returns 1..4 for valid levels and 0 otherwise.
func (l CourseLevel) Ordinal() int {
	for i, lvl := range AllLevels {
		if lvl == l {
			return i + 1
		}
	}
	return 0
}

func (l CourseLevel) IsValid() bool {
	return l.Ordinal() > 0
}

// ParseLevel accepts "100 Level", "100", "100L" and similar spellings.
func ParseLevel(raw string) (CourseLevel, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimSuffix(s, "LEVEL")
	s = strings.TrimSuffix(strings.TrimSpace(s), "L")
	switch strings.TrimSpace(s) {
	case "100", "1":
		return Level100, nil
	case "200", "2":
		return Level200, nil
	case "300", "3":
		return Level300, nil
	case "400", "4":
		return Level400, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLevel, raw)
}

var (
	ErrInvalidCourseCode = errors.New("invalid course code")
	ErrInvalidLevel      = errors.New("invalid course level")
)

var (
	courseCodePattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{3}$`)
	codeSpaces        = regexp.MustCompile(`[\s\-_]+`)
)

// NormalizeCourseCode uppercases a code and removes separators,
// so "cit 101" and "CIT-101" both become "CIT101".
func NormalizeCourseCode(code string) string {
	return codeSpaces.ReplaceAllString(strings.ToUpper(strings.TrimSpace(code)), "")
}

// ValidateCourseCode checks a normalized code against the 3 letters + 3 digits format.
func ValidateCourseCode(code string) error {
	if !courseCodePattern.MatchString(code) {
		return fmt.Errorf("%w: %q", ErrInvalidCourseCode, code)
	}
	return nil
}

// LevelFromCode derives the level from the first digit of the numeric part.
// Digits above 4 are treated as final-year courses.
func LevelFromCode(code string) (CourseLevel, error) {
	code = NormalizeCourseCode(code)
	if err := ValidateCourseCode(code); err != nil {
		return "", err
	}
	switch d := code[3]; {
	case d == '1':
		return Level100, nil
	case d == '2':
		return Level200, nil
	case d == '3':
		return Level300, nil
	case d >= '4':
		return Level400, nil
	}
	return "", fmt.Errorf("%w: %q has no level digit", ErrInvalidLevel, code)
}

type Course struct {
	ID             string         `gorm:"primaryKey;size:64" json:"id"`
	CourseCode     string         `gorm:"uniqueIndex;size:16;not null" json:"course_code"`
	Title          string         `gorm:"size:512;not null" json:"title"`
	Description    string         `gorm:"type:text" json:"description"`
	Category       CourseCategory `gorm:"index;size:64" json:"category"`
	Level          CourseLevel    `gorm:"index;size:16" json:"level"`
	FileSize       int64          `gorm:"not null;default:0" json:"file_size"`
	IsBundled      bool           `gorm:"not null;default:false" json:"is_bundled"`
	FirebasePath   *string        `gorm:"size:1024" json:"firebase_path,omitempty"`
	LocalPath      *string        `gorm:"size:1024" json:"local_path,omitempty"`
	IsDownloaded   bool           `gorm:"index;not null;default:false" json:"is_downloaded"`
	DownloadedAt   *time.Time     `json:"downloaded_at,omitempty"`
	LastAccessedAt *time.Time     `json:"last_accessed_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (Course) TableName() string {
	return "courses"
}

// IsAvailable reports whether the material can be opened without a download.
func (c *Course) IsAvailable() bool {
	return c.IsBundled || c.IsDownloaded
}

// HasRemoteLocator reports whether the course points at a downloadable file.
func (c *Course) HasRemoteLocator() bool {
	return c.FirebasePath != nil && strings.TrimSpace(*c.FirebasePath) != ""
}

// CanDownload is false for bundled, already downloaded and locator-less courses.
func (c *Course) CanDownload() bool {
	return !c.IsBundled && !c.IsDownloaded && c.HasRemoteLocator()
}

// CanDelete is true only for downloaded, non-bundled courses.
func (c *Course) CanDelete() bool {
	return !c.IsBundled && c.IsDownloaded
}

// Validate checks the invariants the store relies on.
func (c *Course) Validate() error {
	if err := ValidateCourseCode(c.CourseCode); err != nil {
		return err
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("course %s: title is required", c.CourseCode)
	}
	if c.FileSize < 0 {
		return fmt.Errorf("course %s: negative file size %d", c.CourseCode, c.FileSize)
	}
	if !c.Level.IsValid() {
		return fmt.Errorf("%w: %q for %s", ErrInvalidLevel, c.Level, c.CourseCode)
	}
	return nil
}

type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	IconName    string    `gorm:"size:64" json:"icon_name"`
	CourseCount int       `gorm:"not null;default:0" json:"course_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}

// CourseStats aggregates counts for storage reporting.
type CourseStats struct {
	TotalCourses      int64 `json:"total_courses"`
	DownloadedCourses int64 `json:"downloaded_courses"`
	BundledCourses    int64 `json:"bundled_courses"`
	StorageBytes      int64 `json:"storage_bytes"`
}
