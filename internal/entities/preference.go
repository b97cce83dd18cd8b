package entities

import (
	"time"
)

type Preference struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100;not null" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Preference) TableName() string {
	return "user_preferences"
}

// Known preference keys
const (
	PreferenceKeyLastSync          = "last_sync"
	PreferenceKeyWifiOnlyDownloads = "wifi_only_downloads"
	PreferenceKeyAutoSyncEnabled   = "auto_sync_enabled"
	PreferenceKeySyncSchedule      = "sync_schedule"
	PreferenceKeyBundledSeeded     = "bundled_seeded"
)

type SearchHistoryEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Query       string    `gorm:"index;size:256;not null" json:"query"`
	ResultCount int       `json:"result_count"`
	SearchedAt  time.Time `gorm:"index" json:"searched_at"`
}

func (SearchHistoryEntry) TableName() string {
	return "search_history"
}
