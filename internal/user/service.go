package user

import (
	"log/slog"

	"github.com/frahmantamala/access-management/internal/permission"
	"golang.org/x/crypto/bcrypt"
)

type CacheInvalidator interface {
	InvalidateAll()
}

type ServiceAPI interface {
	Create(dto CreateUserDTO) (*User, error)
	Update(id int64, dto UpdateUserDTO) (*User, error)
	GetByID(id int64) (*User, error)
	List() ([]User, error)
	Activate(id int64) (*User, error)
	Deactivate(id int64) (*User, error)
	Unlock(id int64) (*User, error)
	GrantPermission(userID, permissionID int64) error
	RevokePermission(userID, permissionID int64) error
	ListPermissions(userID int64) ([]permission.Permission, error)
}

type Service struct {
	repo        Repository
	invalidator CacheInvalidator
	logger      *slog.Logger
	bcryptCost  int
}

func NewService(repo Repository, invalidator CacheInvalidator, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		invalidator: invalidator,
		logger:      logger,
		bcryptCost:  bcryptCost,
	}
}

func (s *Service) Create(dto CreateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetByEmail(dto.Email); err == nil && existing != nil {
		return nil, ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Email:        dto.Email,
		Name:         dto.Name,
		PasswordHash: string(hash),
		IsActive:     true,
	}

	if err := s.repo.Create(u); err != nil {
		s.logger.Error("failed to create user", "email", dto.Email, "error", err)
		return nil, err
	}

	s.logger.Info("user created", "user_id", u.ID)
	return u, nil
}

func (s *Service) Update(id int64, dto UpdateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	u.Name = dto.Name
	if err := s.repo.Update(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) GetByID(id int64) (*User, error) {
	return s.repo.GetByID(id)
}

func (s *Service) List() ([]User, error) {
	return s.repo.List()
}

func (s *Service) Activate(id int64) (*User, error) {
	return s.setActive(id, true)
}

// Deactivate blocks future logins. Already-issued tokens keep validating
// until they expire or are revoked; callers who need an immediate cutoff
// revoke the user's session as well.
func (s *Service) Deactivate(id int64) (*User, error) {
	return s.setActive(id, false)
}

func (s *Service) setActive(id int64, active bool) (*User, error) {
	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	u.IsActive = active
	if err := s.repo.Update(u); err != nil {
		return nil, err
	}

	s.logger.Info("user active flag changed", "user_id", id, "active", active)
	return u, nil
}

func (s *Service) Unlock(id int64) (*User, error) {
	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	u.IsLocked = false
	if err := s.repo.Update(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) GrantPermission(userID, permissionID int64) error {
	if _, err := s.repo.GetByID(userID); err != nil {
		return err
	}

	if err := s.repo.GrantPermission(userID, permissionID); err != nil {
		return err
	}

	s.logger.Info("direct permission granted", "user_id", userID, "permission_id", permissionID)
	s.invalidator.InvalidateAll()
	return nil
}

func (s *Service) RevokePermission(userID, permissionID int64) error {
	if _, err := s.repo.GetByID(userID); err != nil {
		return err
	}

	if err := s.repo.RevokePermission(userID, permissionID); err != nil {
		return err
	}

	s.logger.Info("direct permission revoked", "user_id", userID, "permission_id", permissionID)
	s.invalidator.InvalidateAll()
	return nil
}

func (s *Service) ListPermissions(userID int64) ([]permission.Permission, error) {
	if _, err := s.repo.GetByID(userID); err != nil {
		return nil, err
	}
	return s.repo.ListPermissions(userID)
}
