package postgres

import (
	"errors"

	"github.com/frahmantamala/access-management/internal"
	"github.com/frahmantamala/access-management/internal/auth"
	"gorm.io/gorm"
)

// CredentialsRepository implements auth.CredentialsRepository using GORM
type CredentialsRepository struct {
	db *gorm.DB
}

func NewCredentialsRepository(db *gorm.DB) auth.CredentialsRepository {
	return &CredentialsRepository{db: db}
}

func (r *CredentialsRepository) GetByEmail(email string) (*auth.UserCredentials, error) {
	var row struct {
		ID           int64
		Email        string
		PasswordHash string
		IsActive     bool
		IsLocked     bool
	}
	err := r.db.Table("users").
		Select("id, email, password_hash, is_active, is_locked").
		Where("email = ?", email).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)
		}
		return nil, err
	}

	return &auth.UserCredentials{
		UserID:       row.ID,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		IsActive:     row.IsActive,
		IsLocked:     row.IsLocked,
	}, nil
}
