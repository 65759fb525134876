package feature

import (
	"time"

	"github.com/frahmantamala/access-management/internal"
)

// Feature is a named capability area. Features form a tree through ParentID;
// the parent chain must stay acyclic.
type Feature struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Code         string    `json:"code" gorm:"column:code"`
	Name         string    `json:"name" gorm:"column:name"`
	Description  string    `json:"description" gorm:"column:description"`
	DisplayOrder int       `json:"display_order" gorm:"column:display_order"`
	Enabled      bool      `json:"enabled" gorm:"column:enabled"`
	ParentID     *int64    `json:"parent_id,omitempty" gorm:"column:parent_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Feature) TableName() string {
	return "features"
}

func (f *Feature) IsRoot() bool {
	return f.ParentID == nil
}

// Repository is the persistence boundary for the feature tree.
type Repository interface {
	Create(f *Feature) error
	Update(f *Feature) error
	GetByID(id int64) (*Feature, error)
	GetByCode(code string) (*Feature, error)
	ListRoots() ([]Feature, error)
	ListChildren(parentID int64) ([]Feature, error)
	List() ([]Feature, error)
	Delete(id int64) error
	CountChildren(id int64) (int64, error)
	CountPermissions(id int64) (int64, error)
}

var (
	ErrNotFound      = internal.NewNotFoundError("feature not found", internal.ErrCodeFeatureNotFound)
	ErrDuplicateCode = internal.NewConflictError("a feature with this code already exists", internal.ErrCodeDuplicateCode)
	ErrInUse         = internal.NewConflictError("feature still has children or permissions", internal.ErrCodeInUse)
)
