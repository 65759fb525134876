package role

import (
	"net/http"
	"time"
)

// CreateRoleDTO is the transport shape for creating a role.
type CreateRoleDTO struct {
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Priority    int        `json:"priority"`
	DefaultRole bool       `json:"default_role"`
	ExpiresAt   *time.Time `json:"expires_at"`
	ParentID    *int64     `json:"parent_id"`
}

// UpdateRoleDTO mutates display metadata; Code is immutable and absent here.
type UpdateRoleDTO struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Priority    int        `json:"priority"`
	DefaultRole bool       `json:"default_role"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// SetParentDTO reparents a role. A nil parent detaches it from the hierarchy.
type SetParentDTO struct {
	ParentID *int64 `json:"parent_id"`
}

// ValidationError represents a simple validation error from DTO validation.
type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

func (v ValidationError) StatusCode() int { return http.StatusBadRequest }

func (d CreateRoleDTO) Validate() error {
	if d.Code == "" {
		return ValidationError{Msg: "code is required"}
	}
	if d.Name == "" {
		return ValidationError{Msg: "name is required"}
	}
	return nil
}

func (d UpdateRoleDTO) Validate() error {
	if d.Name == "" {
		return ValidationError{Msg: "name is required"}
	}
	return nil
}
