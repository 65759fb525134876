package user

import (
	"time"

	"github.com/frahmantamala/access-management/internal"
	"github.com/frahmantamala/access-management/internal/permission"
)

// User is an account that can authenticate and hold role assignments.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"column:email"`
	Name         string    `json:"name" gorm:"column:name"`
	PasswordHash string    `json:"-" gorm:"column:password_hash"`
	IsActive     bool      `json:"is_active" gorm:"column:is_active"`
	IsLocked     bool      `json:"is_locked" gorm:"column:is_locked"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserPermission is a direct per-user grant that bypasses roles. Sparingly
// used; the resolver unions these with role-derived permissions.
type UserPermission struct {
	UserID       int64     `json:"user_id" gorm:"column:user_id"`
	PermissionID int64     `json:"permission_id" gorm:"column:permission_id"`
	CreatedAt    time.Time `json:"created_at"`
}

func (UserPermission) TableName() string {
	return "user_permissions"
}

// Repository is the persistence boundary for user accounts.
type Repository interface {
	Create(u *User) error
	Update(u *User) error
	GetByID(id int64) (*User, error)
	GetByEmail(email string) (*User, error)
	List() ([]User, error)
	Delete(id int64) error
	GrantPermission(userID, permissionID int64) error
	RevokePermission(userID, permissionID int64) error
	ListPermissions(userID int64) ([]permission.Permission, error)
}

var (
	ErrNotFound       = internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)
	ErrDuplicateEmail = internal.NewConflictError("a user with this email already exists", internal.ErrCodeDuplicateCode)
)
