// Package preferences provides database operations for user preferences.
//
// # Usage
//
//	repo := preferences.NewRepository(db)
//	err := repo.SetPreference("wifi_only_downloads", "true")
package preferences

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/courseshelf/internal/entities"
)

// Repository handles all preference database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new preferences repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetPreference retrieves a preference by key, or nil when it was never set.
func (r *Repository) GetPreference(key string) (*entities.Preference, error) {
	var pref entities.Preference
	err := r.db.Where("key = ?", key).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

// SetPreference creates or updates a preference.
func (r *Repository) SetPreference(key, value string) error {
	pref := entities.Preference{Key: key, Value: value, UpdatedAt: time.Now()}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&pref).Error
}

// DeletePreference removes a preference by key.
func (r *Repository) DeletePreference(key string) error {
	return r.db.Where("key = ?", key).Delete(&entities.Preference{}).Error
}

// AllPreferences returns every stored preference keyed by name.
func (r *Repository) AllPreferences() (map[string]string, error) {
	var prefs []entities.Preference
	if err := r.db.Find(&prefs).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string, len(prefs))
	for _, p := range prefs {
		result[p.Key] = p.Value
	}
	return result, nil
}
