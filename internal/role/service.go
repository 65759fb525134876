package role

import (
	"log/slog"
	"sync"

	"github.com/frahmantamala/access-management/internal"
	"github.com/frahmantamala/access-management/internal/permission"
)

type CacheInvalidator interface {
	InvalidateAll()
}

type ServiceAPI interface {
	Create(dto CreateRoleDTO) (*Role, error)
	Update(id int64, dto UpdateRoleDTO) (*Role, error)
	SetParent(id int64, dto SetParentDTO) (*Role, error)
	GetByID(id int64) (*Role, error)
	GetByCode(code string) (*Role, error)
	List() ([]Role, error)
	Delete(id int64) error
	AddPermission(roleID, permissionID int64) error
	RemovePermission(roleID, permissionID int64) error
	ListPermissions(roleID int64) ([]permission.Permission, error)
	RolesForPermission(permissionID int64) ([]Role, error)
}

type Service struct {
	repo        Repository
	invalidator CacheInvalidator
	logger      *slog.Logger

	// Hierarchy writes are read-modify-write against shared graph state and
	// must be serialized to keep the acyclicity check sound when two
	// administrative requests race on the same chain.
	hierarchyMu sync.Mutex
}

func NewService(repo Repository, invalidator CacheInvalidator, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		invalidator: invalidator,
		logger:      logger,
	}
}

func (s *Service) Create(dto CreateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetByCode(dto.Code); err == nil && existing != nil {
		return nil, ErrDuplicateCode
	}

	if dto.ParentID != nil {
		if _, err := s.repo.GetByID(*dto.ParentID); err != nil {
			return nil, err
		}
	}

	r := &Role{
		Code:        dto.Code,
		Name:        dto.Name,
		Description: dto.Description,
		Priority:    dto.Priority,
		DefaultRole: dto.DefaultRole,
		ExpiresAt:   dto.ExpiresAt,
		ParentID:    dto.ParentID,
	}

	if err := s.repo.Create(r); err != nil {
		s.logger.Error("failed to create role", "code", dto.Code, "error", err)
		return nil, err
	}

	s.invalidator.InvalidateAll()
	return r, nil
}

func (s *Service) Update(id int64, dto UpdateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	r, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if r.SystemRole {
		return nil, ErrSystemImmutable
	}

	r.Name = dto.Name
	r.Description = dto.Description
	r.Priority = dto.Priority
	r.DefaultRole = dto.DefaultRole
	r.ExpiresAt = dto.ExpiresAt

	if err := s.repo.Update(r); err != nil {
		return nil, err
	}

	s.invalidator.InvalidateAll()
	return r, nil
}

// SetParent reparents a role after checking the prospective ancestor chain
// for the role itself. The walk keeps a visited set so a corrupt chain fails
// with CycleDetected instead of spinning.
func (s *Service) SetParent(id int64, dto SetParentDTO) (*Role, error) {
	s.hierarchyMu.Lock()
	defer s.hierarchyMu.Unlock()

	r, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if dto.ParentID != nil {
		if *dto.ParentID == id {
			return nil, internal.ErrCycleDetected
		}
		if err := s.checkAncestry(id, *dto.ParentID); err != nil {
			return nil, err
		}
	}

	r.ParentID = dto.ParentID
	if err := s.repo.Update(r); err != nil {
		return nil, err
	}

	s.invalidator.InvalidateAll()
	return r, nil
}

func (s *Service) checkAncestry(nodeID, startID int64) error {
	visited := map[int64]bool{}
	currentID := startID

	for {
		if currentID == nodeID {
			return internal.ErrCycleDetected
		}
		if visited[currentID] {
			return internal.ErrCycleDetected
		}
		visited[currentID] = true

		current, err := s.repo.GetByID(currentID)
		if err != nil {
			return err
		}
		if current.ParentID == nil {
			return nil
		}
		currentID = *current.ParentID
	}
}

func (s *Service) GetByID(id int64) (*Role, error) {
	return s.repo.GetByID(id)
}

func (s *Service) GetByCode(code string) (*Role, error) {
	return s.repo.GetByCode(code)
}

func (s *Service) List() ([]Role, error) {
	return s.repo.List()
}

func (s *Service) Delete(id int64) error {
	r, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if r.SystemRole {
		return ErrSystemImmutable
	}

	children, err := s.repo.CountChildren(id)
	if err != nil {
		return err
	}
	if children > 0 {
		return ErrInUse
	}

	assignments, err := s.repo.CountNonTerminalAssignments(id)
	if err != nil {
		return err
	}
	if assignments > 0 {
		return ErrInUse
	}

	if err := s.repo.Delete(id); err != nil {
		return err
	}

	s.invalidator.InvalidateAll()
	return nil
}

func (s *Service) AddPermission(roleID, permissionID int64) error {
	if _, err := s.repo.GetByID(roleID); err != nil {
		return err
	}

	if err := s.repo.AddPermission(roleID, permissionID); err != nil {
		return err
	}

	s.invalidator.InvalidateAll()
	return nil
}

func (s *Service) RemovePermission(roleID, permissionID int64) error {
	if _, err := s.repo.GetByID(roleID); err != nil {
		return err
	}

	if err := s.repo.RemovePermission(roleID, permissionID); err != nil {
		return err
	}

	s.invalidator.InvalidateAll()
	return nil
}

func (s *Service) ListPermissions(roleID int64) ([]permission.Permission, error) {
	if _, err := s.repo.GetByID(roleID); err != nil {
		return nil, err
	}
	return s.repo.ListPermissions(roleID)
}

func (s *Service) RolesForPermission(permissionID int64) ([]Role, error) {
	return s.repo.RolesForPermission(permissionID)
}
