package postgres

import (
	"errors"

	"github.com/frahmantamala/access-management/internal/feature"
	"gorm.io/gorm"
)

// FeatureRepository implements the feature.Repository interface using GORM
type FeatureRepository struct {
	db *gorm.DB
}

func NewFeatureRepository(db *gorm.DB) feature.Repository {
	return &FeatureRepository{db: db}
}

func (r *FeatureRepository) Create(f *feature.Feature) error {
	return r.db.Create(f).Error
}

func (r *FeatureRepository) Update(f *feature.Feature) error {
	return r.db.Save(f).Error
}

func (r *FeatureRepository) GetByID(id int64) (*feature.Feature, error) {
	var f feature.Feature
	err := r.db.Where("id = ?", id).First(&f).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, feature.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *FeatureRepository) GetByCode(code string) (*feature.Feature, error) {
	var f feature.Feature
	err := r.db.Where("code = ?", code).First(&f).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, feature.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *FeatureRepository) ListRoots() ([]feature.Feature, error) {
	var features []feature.Feature
	err := r.db.Where("parent_id IS NULL").
		Order("display_order, code").
		Find(&features).Error
	return features, err
}

func (r *FeatureRepository) ListChildren(parentID int64) ([]feature.Feature, error) {
	var features []feature.Feature
	err := r.db.Where("parent_id = ?", parentID).
		Order("display_order, code").
		Find(&features).Error
	return features, err
}

func (r *FeatureRepository) List() ([]feature.Feature, error) {
	var features []feature.Feature
	err := r.db.Order("display_order, code").Find(&features).Error
	return features, err
}

func (r *FeatureRepository) Delete(id int64) error {
	return r.db.Delete(&feature.Feature{}, id).Error
}

func (r *FeatureRepository) CountChildren(id int64) (int64, error) {
	var count int64
	err := r.db.Model(&feature.Feature{}).
		Where("parent_id = ?", id).
		Count(&count).Error
	return count, err
}

func (r *FeatureRepository) CountPermissions(id int64) (int64, error) {
	var count int64
	err := r.db.Table("permissions").
		Where("feature_id = ?", id).
		Count(&count).Error
	return count, err
}
