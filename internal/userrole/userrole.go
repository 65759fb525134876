package userrole

import (
	"time"

	"github.com/frahmantamala/access-management/internal"
)

// Status is the lifecycle state of a role assignment.
// PENDING and ACTIVE are live; REJECTED, REVOKED and EXPIRED are terminal.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusActive   Status = "ACTIVE"
	StatusRejected Status = "REJECTED"
	StatusRevoked  Status = "REVOKED"
	StatusExpired  Status = "EXPIRED"
)

func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusRevoked || s == StatusExpired
}

// UserRole links a user to a role with full lifecycle and audit metadata.
// It is created by Assign and afterwards mutated only through the transition
// methods below; each lifecycle operation is the single writer for its
// transition.
type UserRole struct {
	ID     int64 `json:"id" gorm:"primaryKey"`
	UserID int64 `json:"user_id" gorm:"column:user_id"`
	RoleID int64 `json:"role_id" gorm:"column:role_id"`

	AssignedAt       time.Time `json:"assigned_at" gorm:"column:assigned_at"`
	AssignedBy       *int64    `json:"assigned_by,omitempty" gorm:"column:assigned_by"`
	AssignmentReason string    `json:"assignment_reason,omitempty" gorm:"column:assignment_reason"`

	ValidFrom time.Time  `json:"valid_from" gorm:"column:valid_from"`
	ValidTo   *time.Time `json:"valid_to,omitempty" gorm:"column:valid_to"`

	Status Status `json:"status" gorm:"column:status"`
	Active bool   `json:"active" gorm:"column:active"`

	InheritPermissions bool   `json:"inherit_permissions" gorm:"column:inherit_permissions"`
	Restrictions       string `json:"restrictions,omitempty" gorm:"column:restrictions"`

	ApprovedBy    *int64     `json:"approved_by,omitempty" gorm:"column:approved_by"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty" gorm:"column:approved_at"`
	ApproverNotes string     `json:"approver_notes,omitempty" gorm:"column:approver_notes"`

	RejectionReason string     `json:"rejection_reason,omitempty" gorm:"column:rejection_reason"`
	RejectionDate   *time.Time `json:"rejection_date,omitempty" gorm:"column:rejection_date"`

	RevokedBy        *int64     `json:"revoked_by,omitempty" gorm:"column:revoked_by"`
	RevocationReason string     `json:"revocation_reason,omitempty" gorm:"column:revocation_reason"`
	RevocationDate   *time.Time `json:"revocation_date,omitempty" gorm:"column:revocation_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

// IsValidAt is the validity predicate: the assignment grants authority iff it
// is active, in ACTIVE status, and now falls inside [ValidFrom, ValidTo).
// Evaluated at read time, never cached as a stored flag.
func (ur *UserRole) IsValidAt(now time.Time) bool {
	if !ur.Active || ur.Status != StatusActive {
		return false
	}
	if now.Before(ur.ValidFrom) {
		return false
	}
	if ur.ValidTo != nil && !now.Before(*ur.ValidTo) {
		return false
	}
	return true
}

// Approve transitions PENDING → ACTIVE.
func (ur *UserRole) Approve(approverID int64, notes string, now time.Time) error {
	if ur.Status != StatusPending {
		return internal.ErrInvalidState
	}
	ur.Status = StatusActive
	ur.ApprovedBy = &approverID
	ur.ApprovedAt = &now
	ur.ApproverNotes = notes
	return nil
}

// Reject transitions PENDING → REJECTED (terminal).
func (ur *UserRole) Reject(rejectorID int64, reason string, now time.Time) error {
	if ur.Status != StatusPending {
		return internal.ErrInvalidState
	}
	ur.Status = StatusRejected
	ur.Active = false
	ur.RejectionReason = reason
	ur.RejectionDate = &now
	_ = rejectorID // recorded in the audit log, not on the row
	return nil
}

// Revoke transitions ACTIVE → REVOKED (terminal).
func (ur *UserRole) Revoke(revokerID int64, reason string, now time.Time) error {
	if ur.Status != StatusActive {
		return internal.ErrInvalidState
	}
	ur.Status = StatusRevoked
	ur.Active = false
	ur.RevokedBy = &revokerID
	ur.RevocationReason = reason
	ur.RevocationDate = &now
	return nil
}

// Expire is the sweep transition ACTIVE → EXPIRED; no actor is recorded.
func (ur *UserRole) Expire(now time.Time) error {
	if ur.Status != StatusActive {
		return internal.ErrInvalidState
	}
	if ur.ValidTo == nil || now.Before(*ur.ValidTo) {
		return internal.ErrInvalidState
	}
	ur.Status = StatusExpired
	ur.Active = false
	return nil
}

// ExtendValidity pushes ValidTo forward on an ACTIVE assignment. The new
// date must be in the future and later than the current ValidTo if one is set.
func (ur *UserRole) ExtendValidity(newValidTo time.Time, now time.Time) error {
	if ur.Status != StatusActive {
		return internal.ErrInvalidState
	}
	if !newValidTo.After(now) {
		return internal.NewValidationError("new expiry date must be in the future", internal.ErrCodeInvalidValidityRange)
	}
	if ur.ValidTo != nil && !newValidTo.After(*ur.ValidTo) {
		return internal.NewValidationError("new expiry date must be later than the current expiry date", internal.ErrCodeInvalidValidityRange)
	}
	ur.ValidTo = &newValidTo
	return nil
}

// Repository is the persistence boundary for assignments.
type Repository interface {
	Create(ur *UserRole) error
	Update(ur *UserRole) error
	GetByID(id int64) (*UserRole, error)
	// GetNonTerminal returns the live assignment for a (user, role) pair,
	// backing the duplicate-assignment guard.
	GetNonTerminal(userID, roleID int64) (*UserRole, error)
	ListByUser(userID int64) ([]UserRole, error)
	ListByRole(roleID int64) ([]UserRole, error)
	ListByStatus(status Status) ([]UserRole, error)
	ListExpiringBefore(cutoff time.Time) ([]UserRole, error)
	// ListOverdue returns ACTIVE assignments whose ValidTo has passed.
	ListOverdue(now time.Time) ([]UserRole, error)
	Delete(id int64) error
}

var ErrNotFound = internal.NewNotFoundError("user role assignment not found", internal.ErrCodeAssignmentNotFound)
