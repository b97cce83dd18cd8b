// Package downloads provides database operations for download progress rows.
//
// A course has at most one non-terminal progress row. Updates never touch
// rows in a terminal state, so a late checkpoint cannot resurrect a finished
// or failed transfer.
package downloads

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/courseshelf/internal/entities"
)

// Repository handles all download progress database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new download progress repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpsertDownloadProgress overwrites the course's non-terminal row, or inserts
// a new row when the course has none.
func (r *Repository) UpsertDownloadProgress(progress *entities.DownloadProgress) error {
	var existing entities.DownloadProgress
	err := r.db.Where("course_id = ? AND status NOT IN ?", progress.CourseID, entities.TerminalDownloadStatuses).
		Order("id DESC").
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		progress.ID = 0
		return r.db.Create(progress).Error
	}
	if err != nil {
		return err
	}

	progress.ID = existing.ID
	return r.db.Save(progress).Error
}

// UpdateDownloadProgress writes the progress fields onto the course's
// non-terminal row. It returns the number of affected rows, which is zero when
// the course has no row or the row is already terminal.
func (r *Repository) UpdateDownloadProgress(progress *entities.DownloadProgress) (int64, error) {
	result := r.db.Model(&entities.DownloadProgress{}).
		Where("course_id = ? AND status NOT IN ?", progress.CourseID, entities.TerminalDownloadStatuses).
		Updates(map[string]any{
			"status":           progress.Status,
			"total_bytes":      progress.TotalBytes,
			"downloaded_bytes": progress.DownloadedBytes,
			"progress":         progress.Progress,
			"error_message":    progress.ErrorMessage,
			"completed_at":     progress.CompletedAt,
		})
	return result.RowsAffected, result.Error
}

// GetDownloadProgress returns the newest row for a course, or nil when none exists.
func (r *Repository) GetDownloadProgress(courseID string) (*entities.DownloadProgress, error) {
	var progress entities.DownloadProgress
	err := r.db.Where("course_id = ?", courseID).Order("id DESC").First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// ListDownloadProgress returns rows with the given statuses, newest first.
// With no statuses every row is returned.
func (r *Repository) ListDownloadProgress(statuses ...entities.DownloadStatus) ([]entities.DownloadProgress, error) {
	query := r.db.Model(&entities.DownloadProgress{})
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var list []entities.DownloadProgress
	err := query.Order("id DESC").Find(&list).Error
	return list, err
}

// DeleteDownloadProgress removes every row of a course.
func (r *Repository) DeleteDownloadProgress(courseID string) error {
	return r.db.Where("course_id = ?", courseID).Delete(&entities.DownloadProgress{}).Error
}

// FailInterruptedDownloads marks rows left in a running state by a previous
// process as failed. It returns the number of rows changed.
func (r *Repository) FailInterruptedDownloads(message string) (int64, error) {
	result := r.db.Model(&entities.DownloadProgress{}).
		Where("status IN ?", []entities.DownloadStatus{entities.DownloadStatusDownloading, entities.DownloadStatusQueued}).
		Updates(map[string]any{
			"status":        entities.DownloadStatusFailed,
			"error_message": message,
		})
	return result.RowsAffected, result.Error
}
