// Package catalog talks to the remote course catalog.
//
// The catalog is a Firebase Realtime Database holding one record per course
// under /courses. Course files live in object storage and are addressed by a
// path that a Resolver turns into a fetchable URL.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/mrlokans/courseshelf/internal/entities"
)

var (
	// ErrUnreachable is returned when the catalog cannot be contacted.
	ErrUnreachable = errors.New("catalog unreachable")
	// ErrUnresolvable is returned when a file path cannot be turned into a URL.
	ErrUnresolvable = errors.New("download locator cannot be resolved")
)

// Record is one course as stored in the remote catalog. ID is the record key
// and is not part of the JSON body.
type Record struct {
	ID           string `json:"-"`
	CourseCode   string `json:"course_code"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Level        string `json:"level"`
	FileSize     int64  `json:"file_size"`
	FirebasePath string `json:"firebase_path"`
}

// NormalizedCode returns the record's course code in canonical form.
func (r Record) NormalizedCode() string {
	return entities.NormalizeCourseCode(r.CourseCode)
}

type Source interface {
	FetchAll(ctx context.Context) ([]Record, error)
	FetchByCategory(ctx context.Context, category entities.CourseCategory) ([]Record, error)
	FetchByLevel(ctx context.Context, level entities.CourseLevel) ([]Record, error)
	// ResolveDownloadLocator turns a stored file path into a fetchable URL.
	ResolveDownloadLocator(ctx context.Context, firebasePath string) (string, error)
	CheckReachable(ctx context.Context) error
}

func isHTTPURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
