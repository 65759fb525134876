package role

import (
	"time"

	"github.com/frahmantamala/access-management/internal"
	"github.com/frahmantamala/access-management/internal/permission"
)

// Role is a named authority container. Roles form a hierarchy through
// ParentID; a child inherits every permission of its ancestors.
type Role struct {
	ID          int64      `json:"id" gorm:"primaryKey"`
	Code        string     `json:"code" gorm:"column:code"`
	Name        string     `json:"name" gorm:"column:name"`
	Description string     `json:"description" gorm:"column:description"`
	Priority    int        `json:"priority" gorm:"column:priority"`
	SystemRole  bool       `json:"system_role" gorm:"column:system_role"`
	DefaultRole bool       `json:"default_role" gorm:"column:default_role"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" gorm:"column:expires_at"`
	ParentID    *int64     `json:"parent_id,omitempty" gorm:"column:parent_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Role) TableName() string {
	return "roles"
}

// RolePermission is the join row backing the permission set and the
// permission → roles inverse index.
type RolePermission struct {
	RoleID       int64     `json:"role_id" gorm:"column:role_id"`
	PermissionID int64     `json:"permission_id" gorm:"column:permission_id"`
	CreatedAt    time.Time `json:"created_at"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}

// Repository is the persistence boundary for roles and their permission set.
type Repository interface {
	Create(r *Role) error
	Update(r *Role) error
	GetByID(id int64) (*Role, error)
	GetByCode(code string) (*Role, error)
	List() ([]Role, error)
	ListDefault() ([]Role, error)
	Delete(id int64) error
	CountChildren(id int64) (int64, error)

	// AddPermission and RemovePermission are idempotent.
	AddPermission(roleID, permissionID int64) error
	RemovePermission(roleID, permissionID int64) error
	ListPermissions(roleID int64) ([]permission.Permission, error)
	// RolesForPermission is the inverse index used by in-use checks.
	RolesForPermission(permissionID int64) ([]Role, error)

	// CountNonTerminalAssignments backs the delete guard: a role with
	// pending or active assignments cannot be removed.
	CountNonTerminalAssignments(roleID int64) (int64, error)
}

var (
	ErrNotFound        = internal.NewNotFoundError("role not found", internal.ErrCodeRoleNotFound)
	ErrDuplicateCode   = internal.NewConflictError("a role with this code already exists", internal.ErrCodeDuplicateCode)
	ErrInUse           = internal.NewConflictError("role still has children or assignments", internal.ErrCodeInUse)
	ErrSystemImmutable = internal.NewForbiddenError("system roles cannot be modified or deleted", internal.ErrCodeSystemRoleImmutable)
)
