package entities

import (
	"time"
)

type DownloadStatus string

const (
	DownloadStatusQueued      DownloadStatus = "queued"
	DownloadStatusDownloading DownloadStatus = "downloading"
	DownloadStatusCompleted   DownloadStatus = "completed"
	DownloadStatusFailed      DownloadStatus = "failed"
	DownloadStatusCancelled   DownloadStatus = "cancelled"
	DownloadStatusPaused      DownloadStatus = "paused"
)

// TerminalDownloadStatuses are never overwritten by a progress update.
var TerminalDownloadStatuses = []DownloadStatus{
	DownloadStatusCompleted,
	DownloadStatusFailed,
	DownloadStatusCancelled,
}

func (s DownloadStatus) IsTerminal() bool {
	for _, t := range TerminalDownloadStatuses {
		if s == t {
			return true
		}
	}
	return false
}

type DownloadProgress struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	CourseID        string         `gorm:"index;size:64;not null" json:"course_id"`
	CourseCode      string         `gorm:"size:16" json:"course_code"`
	Title           string         `gorm:"size:512" json:"title"`
	Status          DownloadStatus `gorm:"index;size:20" json:"status"`
	TotalBytes      int64          `json:"total_bytes"`
	DownloadedBytes int64          `json:"downloaded_bytes"`
	Progress        float64        `json:"progress"`
	ErrorMessage    *string        `gorm:"type:text" json:"error_message,omitempty"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
}

func (DownloadProgress) TableName() string {
	return "download_progress"
}

// SetBytes records a byte count and recomputes the fraction when the total is known.
func (p *DownloadProgress) SetBytes(downloaded, total int64) {
	p.DownloadedBytes = downloaded
	if total > 0 {
		p.TotalBytes = total
		p.Progress = float64(downloaded) / float64(total)
		if p.Progress > 1 {
			p.Progress = 1
		}
	}
}

// Percent returns the integer percentage of the transfer.
func (p *DownloadProgress) Percent() int {
	return int(p.Progress * 100)
}
