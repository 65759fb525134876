package postgres

import (
	"errors"

	"github.com/frahmantamala/access-management/internal/permission"
	"github.com/frahmantamala/access-management/internal/user"
	"gorm.io/gorm"
)

// UserRepository implements the user.Repository interface using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(u *user.User) error {
	return r.db.Create(u).Error
}

func (r *UserRepository) Update(u *user.User) error {
	return r.db.Save(u).Error
}

func (r *UserRepository) GetByID(id int64) (*user.User, error) {
	var u user.User
	err := r.db.Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(email string) (*user.User, error) {
	var u user.User
	err := r.db.Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) List() ([]user.User, error) {
	var users []user.User
	err := r.db.Order("email").Find(&users).Error
	return users, err
}

func (r *UserRepository) Delete(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&user.UserPermission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user.User{}, id).Error
	})
}

// GrantPermission is idempotent; re-granting an existing pair is a no-op.
func (r *UserRepository) GrantPermission(userID, permissionID int64) error {
	var count int64
	err := r.db.Model(&user.UserPermission{}).
		Where("user_id = ? AND permission_id = ?", userID, permissionID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.db.Create(&user.UserPermission{UserID: userID, PermissionID: permissionID}).Error
}

func (r *UserRepository) RevokePermission(userID, permissionID int64) error {
	return r.db.Where("user_id = ? AND permission_id = ?", userID, permissionID).
		Delete(&user.UserPermission{}).Error
}

func (r *UserRepository) ListPermissions(userID int64) ([]permission.Permission, error) {
	var perms []permission.Permission
	err := r.db.Table("permissions").
		Joins("JOIN user_permissions ON user_permissions.permission_id = permissions.id").
		Where("user_permissions.user_id = ?", userID).
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

func (r *UserRepository) loadFeatureCodes(perms []permission.Permission) error {
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
