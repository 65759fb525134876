package postgres

import (
	"errors"

	"github.com/frahmantamala/access-management/internal/permission"
	"gorm.io/gorm"
)

// PermissionRepository implements the permission.Repository interface using GORM
type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) permission.Repository {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) Create(p *permission.Permission) error {
	if err := r.db.Create(p).Error; err != nil {
		return err
	}
	return r.loadFeatureCode(p)
}

func (r *PermissionRepository) Update(p *permission.Permission) error {
	return r.db.Save(p).Error
}

func (r *PermissionRepository) GetByID(id int64) (*permission.Permission, error) {
	var p permission.Permission
	err := r.db.Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, permission.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadFeatureCode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PermissionRepository) GetByFeatureAndAction(featureID int64, action permission.Action) (*permission.Permission, error) {
	var p permission.Permission
	err := r.db.Where("feature_id = ? AND action = ?", featureID, action).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, permission.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadFeatureCode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PermissionRepository) ListByFeature(featureID int64) ([]permission.Permission, error) {
	var perms []permission.Permission
	err := r.db.Where("feature_id = ?", featureID).
		Order("action").
		Find(&perms).Error
	if err != nil {
		return nil, err
	}
	if err := r.loadFeatureCodes(perms); err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *PermissionRepository) List() ([]permission.Permission, error) {
	var perms []permission.Permission
	err := r.db.Order("feature_id, action").Find(&perms).Error
	if err != nil {
		return nil, err
	}
	if err := r.loadFeatureCodes(perms); err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *PermissionRepository) Delete(id int64) error {
	return r.db.Delete(&permission.Permission{}, id).Error
}

func (r *PermissionRepository) CountRolesHolding(permissionID int64) (int64, error) {
	var count int64
	err := r.db.Table("role_permissions").
		Where("permission_id = ?", permissionID).
		Count(&count).Error
	return count, err
}

func (r *PermissionRepository) loadFeatureCode(p *permission.Permission) error {
	var code string
	err := r.db.Table("features").
		Select("code").
		Where("id = ?", p.FeatureID).
		Scan(&code).Error
	if err != nil {
		return err
	}
	p.FeatureCode = code
	return nil
}

// loadFeatureCodes resolves feature codes for a batch; the authority string
// depends on the code, not the surrogate id.
func (r *PermissionRepository) loadFeatureCodes(perms []permission.Permission) error {
	if len(perms) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.FeatureID)
	}

	type featureCode struct {
		ID   int64
		Code string
	}
	var codes []featureCode
	err := r.db.Table("features").
		Select("id, code").
		Where("id IN ?", ids).
		Scan(&codes).Error
	if err != nil {
		return err
	}

	byID := make(map[int64]string, len(codes))
	for _, fc := range codes {
		byID[fc.ID] = fc.Code
	}
	for i := range perms {
		perms[i].FeatureCode = byID[perms[i].FeatureID]
	}
	return nil
}
