package postgres

import (
	"errors"
	"time"

	"github.com/frahmantamala/access-management/internal/userrole"
	"gorm.io/gorm"
)

// UserRoleRepository implements the userrole.Repository interface using GORM
type UserRoleRepository struct {
	db *gorm.DB
}

func NewUserRoleRepository(db *gorm.DB) userrole.Repository {
	return &UserRoleRepository{db: db}
}

func (r *UserRoleRepository) Create(ur *userrole.UserRole) error {
	return r.db.Create(ur).Error
}

func (r *UserRoleRepository) Update(ur *userrole.UserRole) error {
	return r.db.Save(ur).Error
}

func (r *UserRoleRepository) GetByID(id int64) (*userrole.UserRole, error) {
	var ur userrole.UserRole
	err := r.db.Where("id = ?", id).First(&ur).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, userrole.ErrNotFound
		}
		return nil, err
	}
	return &ur, nil
}

func (r *UserRoleRepository) GetNonTerminal(userID, roleID int64) (*userrole.UserRole, error) {
	var ur userrole.UserRole
	err := r.db.Where("user_id = ? AND role_id = ? AND status IN ?",
		userID, roleID, []string{string(userrole.StatusPending), string(userrole.StatusActive)}).
		First(&ur).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, userrole.ErrNotFound
		}
		return nil, err
	}
	return &ur, nil
}

func (r *UserRoleRepository) ListByUser(userID int64) ([]userrole.UserRole, error) {
	var assignments []userrole.UserRole
	err := r.db.Where("user_id = ?", userID).
		Order("assigned_at DESC").
		Find(&assignments).Error
	return assignments, err
}

func (r *UserRoleRepository) ListByRole(roleID int64) ([]userrole.UserRole, error) {
	var assignments []userrole.UserRole
	err := r.db.Where("role_id = ?", roleID).
		Order("assigned_at DESC").
		Find(&assignments).Error
	return assignments, err
}

func (r *UserRoleRepository) ListByStatus(status userrole.Status) ([]userrole.UserRole, error) {
	var assignments []userrole.UserRole
	err := r.db.Where("status = ?", string(status)).
		Order("assigned_at").
		Find(&assignments).Error
	return assignments, err
}

func (r *UserRoleRepository) ListExpiringBefore(cutoff time.Time) ([]userrole.UserRole, error) {
	var assignments []userrole.UserRole
	err := r.db.Where("status = ? AND valid_to IS NOT NULL AND valid_to <= ?",
		string(userrole.StatusActive), cutoff).
		Order("valid_to").
		Find(&assignments).Error
	return assignments, err
}

func (r *UserRoleRepository) ListOverdue(now time.Time) ([]userrole.UserRole, error) {
	var assignments []userrole.UserRole
	err := r.db.Where("status = ? AND valid_to IS NOT NULL AND valid_to <= ?",
		string(userrole.StatusActive), now).
		Find(&assignments).Error
	return assignments, err
}

func (r *UserRoleRepository) Delete(id int64) error {
	return r.db.Delete(&userrole.UserRole{}, id).Error
}
