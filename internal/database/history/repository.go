// Package history provides database operations for the search history log.
package history

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/courseshelf/internal/entities"
)

// RecentSearch is one distinct query from the history log.
type RecentSearch struct {
	Query          string    `json:"query"`
	ResultCount    int       `json:"result_count"`
	LastSearchedAt time.Time `json:"last_searched_at"`
}

// Repository handles all search history database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new search history repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LogSearch appends an entry to the history log.
func (r *Repository) LogSearch(query string, resultCount int, at time.Time) error {
	entry := entities.SearchHistoryEntry{
		Query:       query,
		ResultCount: resultCount,
		SearchedAt:  at,
	}
	return r.db.Create(&entry).Error
}

// RecentSearches returns distinct queries, most recently searched first.
func (r *Repository) RecentSearches(limit int) ([]RecentSearch, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []struct {
		Query       string
		ResultCount int
		LastAt      string
	}
	err := r.db.Model(&entities.SearchHistoryEntry{}).
		Select("query, MAX(result_count) AS result_count, MAX(searched_at) AS last_at").
		Group("query").
		Order("last_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]RecentSearch, 0, len(rows))
	for _, row := range rows {
		result = append(result, RecentSearch{
			Query:          row.Query,
			ResultCount:    row.ResultCount,
			LastSearchedAt: parseSQLiteTime(row.LastAt),
		})
	}
	return result, nil
}

// CountEntries returns the number of raw history entries.
func (r *Repository) CountEntries() (int64, error) {
	var count int64
	err := r.db.Model(&entities.SearchHistoryEntry{}).Count(&count).Error
	return count, err
}

// ClearSearchHistory truncates the log.
func (r *Repository) ClearSearchHistory() error {
	return r.db.Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&entities.SearchHistoryEntry{}).Error
}

// MAX() over a datetime column loses the column type, so the driver hands
// back the stored text.
var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func parseSQLiteTime(s string) time.Time {
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
