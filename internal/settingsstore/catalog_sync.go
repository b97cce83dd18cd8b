package settingsstore

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/courseshelf/internal/entities"
)

// DefaultSyncSchedule runs the periodic catalog check daily at 03:00. The
// reconciler's own 24h gate still decides whether a fetch happens.
const DefaultSyncSchedule = "0 3 * * *"

// CatalogSyncConfig is the effective configuration for scheduled sync.
type CatalogSyncConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule"`
}

// CatalogSyncConfigInfo includes source information for each field
type CatalogSyncConfigInfo struct {
	Enabled        bool       `json:"enabled"`
	EnabledSource  string     `json:"enabled_source"`
	Schedule       string     `json:"schedule"`
	ScheduleSource string     `json:"schedule_source"`
	Description    string     `json:"description"`
	NextRunAt      *time.Time `json:"next_run_at,omitempty"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
}

func (s *SettingsStore) GetAutoSyncEnabled() bool {
	return s.boolValue(entities.PreferenceKeyAutoSyncEnabled)
}

func (s *SettingsStore) SetAutoSyncEnabled(enabled bool) error {
	return s.Set(entities.PreferenceKeyAutoSyncEnabled, boolString(enabled))
}

func (s *SettingsStore) GetSyncSchedule() string {
	value, _ := s.resolve(entities.PreferenceKeySyncSchedule, preferenceSpecs[entities.PreferenceKeySyncSchedule])
	return value
}

// SetSyncSchedule saves the schedule after validating it.
func (s *SettingsStore) SetSyncSchedule(schedule string) error {
	return s.Set(entities.PreferenceKeySyncSchedule, schedule)
}

func (s *SettingsStore) GetCatalogSyncConfig() CatalogSyncConfig {
	return CatalogSyncConfig{
		Enabled:  s.GetAutoSyncEnabled(),
		Schedule: s.GetSyncSchedule(),
	}
}

func (s *SettingsStore) GetCatalogSyncConfigInfo() CatalogSyncConfigInfo {
	enabled, _ := s.Get(entities.PreferenceKeyAutoSyncEnabled)
	schedule, _ := s.Get(entities.PreferenceKeySyncSchedule)

	info := CatalogSyncConfigInfo{
		Enabled:        s.GetAutoSyncEnabled(),
		EnabledSource:  enabled.Source,
		Schedule:       schedule.Value,
		ScheduleSource: schedule.Source,
		Description:    GetCronDescription(schedule.Value),
		LastSyncAt:     s.GetLastSync(),
	}
	if next, err := GetNextRunTime(schedule.Value); err == nil {
		info.NextRunAt = next
	}
	return info
}

// GetLastSync returns the last successful full sync, or nil if none.
func (s *SettingsStore) GetLastSync() *time.Time {
	pref, err := s.db.GetPreference(entities.PreferenceKeyLastSync)
	if err != nil || pref == nil || pref.Value == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339Nano, pref.Value)
	if err != nil {
		return nil
	}
	return &ts
}

// ValidateCronSchedule validates a cron schedule string
func ValidateCronSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	return err
}

// GetCronDescription returns a human-readable description of a cron schedule
func GetCronDescription(schedule string) string {
	switch schedule {
	case "0 * * * *":
		return "Every hour at :00"
	case "0 */6 * * *":
		return "Every 6 hours"
	case "0 */12 * * *":
		return "Every 12 hours"
	case "0 0 * * *":
		return "Daily at midnight"
	case DefaultSyncSchedule:
		return "Daily at 03:00"
	case "0 0 * * 0":
		return "Weekly on Sunday at midnight"
	default:
		return "Custom schedule: " + schedule
	}
}

// GetNextRunTime calculates when the next sync will run based on the schedule
func GetNextRunTime(schedule string) (*time.Time, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, err
	}
	next := sched.Next(time.Now())
	return &next, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
