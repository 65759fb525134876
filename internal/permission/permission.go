package permission

import (
	"strings"
	"time"

	"github.com/frahmantamala/access-management/internal"
)

// Action is the closed vocabulary of operations a permission can grant on a
// feature. It is not an entity; unknown values are rejected at the boundary.
type Action string

const (
	ActionView       Action = "VIEW"
	ActionList       Action = "LIST"
	ActionCreate     Action = "CREATE"
	ActionUpdate     Action = "UPDATE"
	ActionDelete     Action = "DELETE"
	ActionExport     Action = "EXPORT"
	ActionImport     Action = "IMPORT"
	ActionApprove    Action = "APPROVE"
	ActionReject     Action = "REJECT"
	ActionAssignRole Action = "ASSIGN_ROLE"
)

var allActions = []Action{
	ActionView, ActionList, ActionCreate, ActionUpdate, ActionDelete,
	ActionExport, ActionImport, ActionApprove, ActionReject, ActionAssignRole,
}

// Actions returns the full vocabulary in declaration order.
func Actions() []Action {
	out := make([]Action, len(allActions))
	copy(out, allActions)
	return out
}

// ParseAction maps a case-insensitive name onto the vocabulary.
func ParseAction(name string) (Action, error) {
	candidate := Action(strings.ToUpper(strings.TrimSpace(name)))
	for _, a := range allActions {
		if a == candidate {
			return a, nil
		}
	}
	return "", internal.NewValidationError("unknown action: "+name, internal.ErrCodeValidationFailed)
}

// Permission grants one Action on one Feature. Identity is the
// (feature, action) pair; the surrogate id exists only for persistence.
type Permission struct {
	ID               int64     `json:"id" gorm:"primaryKey"`
	FeatureID        int64     `json:"feature_id" gorm:"column:feature_id"`
	Action           Action    `json:"action" gorm:"column:action"`
	RequiresApproval bool      `json:"requires_approval" gorm:"column:requires_approval"`
	ConstraintPolicy string    `json:"constraint_policy,omitempty" gorm:"column:constraint_policy"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// FeatureCode is resolved through the feature join; it is what the
	// authority string is built from.
	FeatureCode string `json:"feature_code" gorm:"-"`
}

func (Permission) TableName() string {
	return "permissions"
}

// Same reports (feature, action) identity, ignoring surrogate ids.
func (p Permission) Same(other Permission) bool {
	return p.FeatureID == other.FeatureID && p.Action == other.Action
}

// Authority renders the runtime permission-check token, also used verbatim
// as the JWT roles claim payload.
func (p Permission) Authority() string {
	return Authority(p.FeatureCode, p.Action)
}

// Authority formats "<featureCode>:<ACTION>".
func Authority(featureCode string, action Action) string {
	return featureCode + ":" + strings.ToUpper(string(action))
}

// Repository is the persistence boundary for permissions.
type Repository interface {
	Create(p *Permission) error
	Update(p *Permission) error
	GetByID(id int64) (*Permission, error)
	GetByFeatureAndAction(featureID int64, action Action) (*Permission, error)
	ListByFeature(featureID int64) ([]Permission, error)
	List() ([]Permission, error)
	Delete(id int64) error
	// CountRolesHolding is the inverse index used by the in-use guard.
	CountRolesHolding(permissionID int64) (int64, error)
}

var (
	ErrNotFound  = internal.NewNotFoundError("permission not found", internal.ErrCodePermissionNotFound)
	ErrDuplicate = internal.NewConflictError("a permission already exists for this feature and action", internal.ErrCodeDuplicatePermission)
	ErrInUse     = internal.NewConflictError("permission is still held by one or more roles", internal.ErrCodeInUse)
)
