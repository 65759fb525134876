package permission

import (
	"log/slog"
)

// CacheInvalidator is implemented by the permission resolver; every graph
// mutation flushes resolved sets before it returns.
type CacheInvalidator interface {
	InvalidateAll()
}

type ServiceAPI interface {
	Create(dto CreatePermissionDTO) (*Permission, error)
	Update(id int64, dto UpdatePermissionDTO) (*Permission, error)
	GetByID(id int64) (*Permission, error)
	ListByFeature(featureID int64) ([]Permission, error)
	List() ([]Permission, error)
	Delete(id int64) error
}

type Service struct {
	repo        Repository
	invalidator CacheInvalidator
	logger      *slog.Logger
}

func NewService(repo Repository, invalidator CacheInvalidator, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		invalidator: invalidator,
		logger:      logger,
	}
}

func (s *Service) Create(dto CreatePermissionDTO) (*Permission, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	action, err := ParseAction(dto.Action)
	if err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetByFeatureAndAction(dto.FeatureID, action); err == nil && existing != nil {
		return nil, ErrDuplicate
	}

	perm := &Permission{
		FeatureID:        dto.FeatureID,
		Action:           action,
		RequiresApproval: dto.RequiresApproval,
		ConstraintPolicy: dto.ConstraintPolicy,
	}

	if err := s.repo.Create(perm); err != nil {
		s.logger.Error("failed to create permission", "feature_id", dto.FeatureID, "action", action, "error", err)
		return nil, err
	}

	s.invalidator.InvalidateAll()
	return perm, nil
}

func (s *Service) Update(id int64, dto UpdatePermissionDTO) (*Permission, error) {
	perm, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	perm.RequiresApproval = dto.RequiresApproval
	perm.ConstraintPolicy = dto.ConstraintPolicy

	if err := s.repo.Update(perm); err != nil {
		return nil, err
	}

	s.invalidator.InvalidateAll()
	return perm, nil
}

func (s *Service) GetByID(id int64) (*Permission, error) {
	return s.repo.GetByID(id)
}

func (s *Service) ListByFeature(featureID int64) ([]Permission, error) {
	return s.repo.ListByFeature(featureID)
}

func (s *Service) List() ([]Permission, error) {
	return s.repo.List()
}

func (s *Service) Delete(id int64) error {
	if _, err := s.repo.GetByID(id); err != nil {
		return err
	}

	holders, err := s.repo.CountRolesHolding(id)
	if err != nil {
		return err
	}
	if holders > 0 {
		return ErrInUse
	}

	if err := s.repo.Delete(id); err != nil {
		return err
	}

	s.invalidator.InvalidateAll()
	return nil
}
