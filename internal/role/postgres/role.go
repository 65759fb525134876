package postgres

import (
	"errors"

	"github.com/frahmantamala/access-management/internal/permission"
	"github.com/frahmantamala/access-management/internal/role"
	"gorm.io/gorm"
)

// RoleRepository implements the role.Repository interface using GORM
type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) role.Repository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) Create(ro *role.Role) error {
	return r.db.Create(ro).Error
}

func (r *RoleRepository) Update(ro *role.Role) error {
	return r.db.Save(ro).Error
}

func (r *RoleRepository) GetByID(id int64) (*role.Role, error) {
	var ro role.Role
	err := r.db.Where("id = ?", id).First(&ro).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, role.ErrNotFound
		}
		return nil, err
	}
	return &ro, nil
}

func (r *RoleRepository) GetByCode(code string) (*role.Role, error) {
	var ro role.Role
	err := r.db.Where("code = ?", code).First(&ro).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, role.ErrNotFound
		}
		return nil, err
	}
	return &ro, nil
}

func (r *RoleRepository) List() ([]role.Role, error) {
	var roles []role.Role
	err := r.db.Order("priority DESC, code").Find(&roles).Error
	return roles, err
}

func (r *RoleRepository) ListDefault() ([]role.Role, error) {
	var roles []role.Role
	err := r.db.Where("default_role = ?", true).
		Order("priority DESC, code").
		Find(&roles).Error
	return roles, err
}

func (r *RoleRepository) Delete(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&role.RolePermission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&role.Role{}, id).Error
	})
}

func (r *RoleRepository) CountChildren(id int64) (int64, error) {
	var count int64
	err := r.db.Model(&role.Role{}).
		Where("parent_id = ?", id).
		Count(&count).Error
	return count, err
}

// AddPermission is idempotent; re-adding an existing pair is a no-op.
func (r *RoleRepository) AddPermission(roleID, permissionID int64) error {
	var count int64
	err := r.db.Model(&role.RolePermission{}).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.db.Create(&role.RolePermission{RoleID: roleID, PermissionID: permissionID}).Error
}

func (r *RoleRepository) RemovePermission(roleID, permissionID int64) error {
	return r.db.Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Delete(&role.RolePermission{}).Error
}

func (r *RoleRepository) ListPermissions(roleID int64) ([]permission.Permission, error) {
	var perms []permission.Permission
	err := r.db.Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.feature_id, permissions.action").
		Find(&perms).Error
	if err != nil {
		return nil, err
	}
	if err := r.loadFeatureCodes(perms); err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *RoleRepository) RolesForPermission(permissionID int64) ([]role.Role, error) {
	var roles []role.Role
	err := r.db.Table("roles").
		Joins("JOIN role_permissions ON role_permissions.role_id = roles.id").
		Where("role_permissions.permission_id = ?", permissionID).
		Order("roles.priority DESC, roles.code").
		Find(&roles).Error
	return roles, err
}

func (r *RoleRepository) CountNonTerminalAssignments(roleID int64) (int64, error) {
	var count int64
	err := r.db.Table("user_roles").
		Where("role_id = ? AND status IN ?", roleID, []string{"PENDING", "ACTIVE"}).
		Count(&count).Error
	return count, err
}

func (r *RoleRepository) loadFeatureCodes(perms []permission.Permission) error {
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
