package feature

import "net/http"

// CreateFeatureDTO is the transport shape for registering a feature.
type CreateFeatureDTO struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"display_order"`
	ParentID     *int64 `json:"parent_id"`
}

// UpdateFeatureDTO mutates display metadata; Code is immutable.
type UpdateFeatureDTO struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"display_order"`
	Enabled      bool   `json:"enabled"`
}

// SetParentDTO reparents a feature. A nil parent makes it a root.
type SetParentDTO struct {
	ParentID *int64 `json:"parent_id"`
}

// ValidationError represents a simple validation error from DTO validation.
type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

func (v ValidationError) StatusCode() int { return http.StatusBadRequest }

func (d CreateFeatureDTO) Validate() error {
	if d.Code == "" {
		return ValidationError{Msg: "code is required"}
	}
	if d.Name == "" {
		return ValidationError{Msg: "name is required"}
	}
	return nil
}

func (d UpdateFeatureDTO) Validate() error {
	if d.Name == "" {
		return ValidationError{Msg: "name is required"}
	}
	return nil
}
