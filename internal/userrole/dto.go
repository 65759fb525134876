package userrole

import (
	"net/http"
	"time"
)

// AssignRoleDTO is the transport shape for granting a role to a user.
type AssignRoleDTO struct {
	UserID             int64      `json:"user_id"`
	RoleID             int64      `json:"role_id"`
	AssignmentReason   string     `json:"assignment_reason"`
	ValidFrom          *time.Time `json:"valid_from"`
	ValidTo            *time.Time `json:"valid_to"`
	InheritPermissions *bool      `json:"inherit_permissions"`
	Restrictions       string     `json:"restrictions"`
}

type ApproveDTO struct {
	ApproverNotes string `json:"approver_notes"`
}

type RejectDTO struct {
	RejectionReason string `json:"rejection_reason"`
}

type RevokeDTO struct {
	RevocationReason string `json:"revocation_reason"`
}

type ExtendValidityDTO struct {
	ValidTo time.Time `json:"valid_to"`
}

// ValidationError represents a simple validation error from DTO validation.
type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

func (v ValidationError) StatusCode() int { return http.StatusBadRequest }

func (d AssignRoleDTO) Validate() error {
	if d.UserID <= 0 {
		return ValidationError{Msg: "user_id is required"}
	}
	if d.RoleID <= 0 {
		return ValidationError{Msg: "role_id is required"}
	}
	if d.ValidFrom != nil && d.ValidTo != nil && !d.ValidTo.After(*d.ValidFrom) {
		return ValidationError{Msg: "valid_to must be after valid_from"}
	}
	return nil
}

func (d RejectDTO) Validate() error {
	if d.RejectionReason == "" {
		return ValidationError{Msg: "rejection_reason is required"}
	}
	return nil
}

func (d RevokeDTO) Validate() error {
	if d.RevocationReason == "" {
		return ValidationError{Msg: "revocation_reason is required"}
	}
	return nil
}

func (d ExtendValidityDTO) Validate() error {
	if d.ValidTo.IsZero() {
		return ValidationError{Msg: "valid_to is required"}
	}
	return nil
}
