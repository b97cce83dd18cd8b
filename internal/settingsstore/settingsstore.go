package settingsstore

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mrlokans/courseshelf/internal/entities"
)

const (
	SourceDatabase    = "database"
	SourceEnvironment = "environment"
	SourceDefault     = "default"
)

var (
	// ErrUnknownKey is returned for preference keys the store does not manage.
	ErrUnknownKey = errors.New("unknown preference key")
	// ErrReadOnly is returned when writing a preference owned by the sync engine.
	ErrReadOnly = errors.New("preference is read-only")
)

type Store interface {
	GetPreference(key string) (*entities.Preference, error)
	SetPreference(key, value string) error
	DeletePreference(key string) error
}

// preferenceSpec describes how one key is resolved and validated.
type preferenceSpec struct {
	env      string
	def      string
	readOnly bool
	validate func(string) (string, error)
}

var preferenceSpecs = map[string]preferenceSpec{
	entities.PreferenceKeyWifiOnlyDownloads: {env: "COURSESHELF_WIFI_ONLY_DOWNLOADS", def: "false", validate: normalizeBool},
	entities.PreferenceKeyAutoSyncEnabled:   {env: "COURSESHELF_AUTO_SYNC", def: "true", validate: normalizeBool},
	entities.PreferenceKeySyncSchedule:      {env: "COURSESHELF_SYNC_SCHEDULE", def: DefaultSyncSchedule, validate: normalizeSchedule},
	entities.PreferenceKeyLastSync:          {readOnly: true},
}

// Priority: database > environment > default
type SettingsStore struct {
	db       Store
	defaults map[string]string
}

func New(db Store) *SettingsStore {
	return &SettingsStore{db: db, defaults: map[string]string{}}
}

// WithDefaults replaces built-in defaults, typically with values from the
// process configuration. Unknown keys and invalid values are ignored.
func (s *SettingsStore) WithDefaults(defaults map[string]string) *SettingsStore {
	for key, value := range defaults {
		spec, ok := preferenceSpecs[key]
		if !ok || spec.readOnly {
			continue
		}
		if normalized, err := spec.validate(value); err == nil {
			s.defaults[key] = normalized
		}
	}
	return s
}

type PreferenceInfo struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Source string `json:"source"` // "database", "environment", or "default"
}

// Keys lists the managed preference keys in a stable order.
func Keys() []string {
	return []string{
		entities.PreferenceKeyAutoSyncEnabled,
		entities.PreferenceKeyLastSync,
		entities.PreferenceKeySyncSchedule,
		entities.PreferenceKeyWifiOnlyDownloads,
	}
}

// Get returns the effective value of a preference and where it came from.
func (s *SettingsStore) Get(key string) (PreferenceInfo, error) {
	spec, ok := preferenceSpecs[key]
	if !ok {
		return PreferenceInfo{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	value, source := s.resolve(key, spec)
	return PreferenceInfo{Key: key, Value: value, Source: source}, nil
}

// Set validates and stores a database override.
func (s *SettingsStore) Set(key, value string) error {
	spec, ok := preferenceSpecs[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if spec.readOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, key)
	}
	normalized, err := spec.validate(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return s.db.SetPreference(key, normalized)
}

// Clear removes the database override so the environment or default applies.
func (s *SettingsStore) Clear(key string) error {
	spec, ok := preferenceSpecs[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if spec.readOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, key)
	}
	return s.db.DeletePreference(key)
}

// All returns every managed preference.
func (s *SettingsStore) All() []PreferenceInfo {
	out := make([]PreferenceInfo, 0, len(preferenceSpecs))
	for _, key := range Keys() {
		value, source := s.resolve(key, preferenceSpecs[key])
		out = append(out, PreferenceInfo{Key: key, Value: value, Source: source})
	}
	return out
}

func (s *SettingsStore) resolve(key string, spec preferenceSpec) (string, string) {
	// Try database first
	pref, err := s.db.GetPreference(key)
	if err == nil && pref != nil && pref.Value != "" {
		return pref.Value, SourceDatabase
	}

	// Try environment variable
	if spec.env != "" {
		if envVal := os.Getenv(spec.env); envVal != "" {
			if normalized, err := spec.validate(envVal); err == nil {
				return normalized, SourceEnvironment
			}
		}
	}

	if def, ok := s.defaults[key]; ok {
		return def, SourceDefault
	}
	return spec.def, SourceDefault
}

func (s *SettingsStore) boolValue(key string) bool {
	value, _ := s.resolve(key, preferenceSpecs[key])
	b, err := strconv.ParseBool(value)
	return err == nil && b
}

func normalizeBool(v string) (string, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return "", fmt.Errorf("expected a boolean, got %q", v)
	}
	return strconv.FormatBool(b), nil
}

func normalizeSchedule(v string) (string, error) {
	v = strings.TrimSpace(v)
	if err := ValidateCronSchedule(v); err != nil {
		return "", err
	}
	return v, nil
}
