package feature

import (
	"log/slog"
	"sync"

	"github.com/frahmantamala/access-management/internal"
)

type CacheInvalidator interface {
	InvalidateAll()
}

type ServiceAPI interface {
	Create(dto CreateFeatureDTO) (*Feature, error)
	Update(id int64, dto UpdateFeatureDTO) (*Feature, error)
	SetParent(id int64, dto SetParentDTO) (*Feature, error)
	GetByID(id int64) (*Feature, error)
	ListRoots() ([]Feature, error)
	ListChildren(parentID int64) ([]Feature, error)
	List() ([]Feature, error)
	Delete(id int64) error
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

func (s *Service) Create(dto CreateFeatureDTO) (*Feature, error) {
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

	f := &Feature{
		Code:         dto.Code,
		Name:         dto.Name,
		Description:  dto.Description,
		DisplayOrder: dto.DisplayOrder,
		Enabled:      true,
		ParentID:     dto.ParentID,
	}

	if err := s.repo.Create(f); err != nil {
		s.logger.Error("failed to create feature", "code", dto.Code, "error", err)
		return nil, err
	}

	s.invalidator.InvalidateAll()
	return f, nil
}

func (s *Service) Update(id int64, dto UpdateFeatureDTO) (*Feature, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	f, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	f.Name = dto.Name
	f.Description = dto.Description
	f.DisplayOrder = dto.DisplayOrder
	f.Enabled = dto.Enabled

	if err := s.repo.Update(f); err != nil {
		return nil, err
	}

	s.invalidator.InvalidateAll()
	return f, nil
}

// SetParent reparents a feature after walking the prospective ancestor chain.
// The walk tracks visited ids so an already-corrupt cycle in storage fails
// instead of looping forever.
func (s *Service) SetParent(id int64, dto SetParentDTO) (*Feature, error) {
	s.hierarchyMu.Lock()
	defer s.hierarchyMu.Unlock()

	f, err := s.repo.GetByID(id)
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

	f.ParentID = dto.ParentID
	if err := s.repo.Update(f); err != nil {
		return nil, err
	}

	s.invalidator.InvalidateAll()
	return f, nil
}

// checkAncestry fails with CycleDetected when nodeID appears anywhere in the
// ancestor chain starting at startID, or when the chain itself revisits a node.
func (s *Service) checkAncestry(nodeID, startID int64) error {
	visited := map[int64]bool{}
	currentID := startID

	for {
		if currentID == nodeID {
			return internal.ErrCycleDetected
		}
		if visited[currentID] {
			// storage already holds a cycle; refuse to make it worse
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

func (s *Service) GetByID(id int64) (*Feature, error) {
	return s.repo.GetByID(id)
}

func (s *Service) ListRoots() ([]Feature, error) {
	return s.repo.ListRoots()
}

func (s *Service) ListChildren(parentID int64) ([]Feature, error) {
	return s.repo.ListChildren(parentID)
}

func (s *Service) List() ([]Feature, error) {
	return s.repo.List()
}

func (s *Service) Delete(id int64) error {
	if _, err := s.repo.GetByID(id); err != nil {
		return err
	}

	children, err := s.repo.CountChildren(id)
	if err != nil {
		return err
	}
	if children > 0 {
		return ErrInUse
	}

	perms, err := s.repo.CountPermissions(id)
	if err != nil {
		return err
	}
	if perms > 0 {
		return ErrInUse
	}

	if err := s.repo.Delete(id); err != nil {
		return err
	}

	s.invalidator.InvalidateAll()
	return nil
}
