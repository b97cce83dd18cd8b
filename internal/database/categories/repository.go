// Package categories provides database operations for course categories.
package categories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/courseshelf/internal/entities"
)

// Repository handles all category database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new categories repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Seed creates any missing category from the fixed set. Existing rows keep
// their counts.
func (r *Repository) Seed(infos []entities.CategoryInfo) error {
	for _, info := range infos {
		category := entities.Category{
			Name:        string(info.Name),
			Description: info.Description,
			IconName:    info.IconName,
		}
		if err := r.db.Where("name = ?", category.Name).FirstOrCreate(&category).Error; err != nil {
			return err
		}
	}
	return nil
}

// ListCategories returns every category ordered by name.
func (r *Repository) ListCategories() ([]entities.Category, error) {
	var list []entities.Category
	err := r.db.Order("name ASC").Find(&list).Error
	return list, err
}

// GetCategoryByName returns nil without an error when the name is unknown.
func (r *Repository) GetCategoryByName(name string) (*entities.Category, error) {
	var category entities.Category
	err := r.db.Where("name = ?", name).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// RecomputeCategoryCounts sets every category's course_count to the number of
// courses whose category column equals the category name.
func (r *Repository) RecomputeCategoryCounts() error {
	return r.db.Exec(`UPDATE categories SET
		course_count = (SELECT COUNT(*) FROM courses WHERE courses.category = categories.name),
		updated_at = ?`, time.Now()).Error
}
