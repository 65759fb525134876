package permission

import "net/http"

// CreatePermissionDTO is the transport shape for registering a permission.
type CreatePermissionDTO struct {
	FeatureID        int64  `json:"feature_id"`
	Action           string `json:"action"`
	RequiresApproval bool   `json:"requires_approval"`
	ConstraintPolicy string `json:"constraint_policy"`
}

// UpdatePermissionDTO mutates the annotations only; (feature, action)
// identity is immutable.
type UpdatePermissionDTO struct {
	RequiresApproval bool   `json:"requires_approval"`
	ConstraintPolicy string `json:"constraint_policy"`
}

// ValidationError represents a simple validation error from DTO validation.
type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

func (v ValidationError) StatusCode() int { return http.StatusBadRequest }

func (d CreatePermissionDTO) Validate() error {
	if d.FeatureID <= 0 {
		return ValidationError{Msg: "feature_id is required"}
	}
	if d.Action == "" {
		return ValidationError{Msg: "action is required"}
	}
	return nil
}
