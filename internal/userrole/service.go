package userrole

import (
	"log/slog"
	"time"

	"github.com/frahmantamala/access-management/internal"
	"github.com/frahmantamala/access-management/internal/permission"
	"github.com/frahmantamala/access-management/internal/role"
)

type CacheInvalidator interface {
	InvalidateAll()
}

// RoleStore is the slice of the role repository the lifecycle needs: existence
// checks and the approval-gate lookup on the role's permissions.
type RoleStore interface {
	GetByID(id int64) (*role.Role, error)
	ListPermissions(roleID int64) ([]permission.Permission, error)
}

type ServiceAPI interface {
	Assign(actorID int64, dto AssignRoleDTO) (*UserRole, error)
	Approve(id, approverID int64, dto ApproveDTO) (*UserRole, error)
	Reject(id, rejectorID int64, dto RejectDTO) (*UserRole, error)
	Revoke(id, revokerID int64, dto RevokeDTO) (*UserRole, error)
	ExtendValidity(id int64, dto ExtendValidityDTO) (*UserRole, error)
	GetByID(id int64) (*UserRole, error)
	ListByUser(userID int64) ([]UserRole, error)
	ListPending() ([]UserRole, error)
	ListExpiring(within time.Duration) ([]UserRole, error)
	ExpireOverdue() (int, error)
	Remove(id int64) error
}

type Service struct {
	repo        Repository
	roles       RoleStore
	invalidator CacheInvalidator
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(repo Repository, roles RoleStore, invalidator CacheInvalidator, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		roles:       roles,
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// Assign creates an assignment for a (user, role) pair. At most one live
// assignment per pair may exist; a second request fails with
// DuplicateAssignment. The initial status is PENDING when any permission of
// the role is approval-gated, ACTIVE otherwise.
func (s *Service) Assign(actorID int64, dto AssignRoleDTO) (*UserRole, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.roles.GetByID(dto.RoleID); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetNonTerminal(dto.UserID, dto.RoleID); err == nil && existing != nil {
		return nil, internal.ErrDuplicateAssignment
	}

	needsApproval, err := s.requiresApproval(dto.RoleID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	status := StatusActive
	if needsApproval {
		status = StatusPending
	}

	validFrom := now
	if dto.ValidFrom != nil {
		validFrom = *dto.ValidFrom
	}
	inherit := true
	if dto.InheritPermissions != nil {
		inherit = *dto.InheritPermissions
	}

	ur := &UserRole{
		UserID:             dto.UserID,
		RoleID:             dto.RoleID,
		AssignedAt:         now,
		AssignedBy:         &actorID,
		AssignmentReason:   dto.AssignmentReason,
		ValidFrom:          validFrom,
		ValidTo:            dto.ValidTo,
		Status:             status,
		Active:             true,
		InheritPermissions: inherit,
		Restrictions:       dto.Restrictions,
	}

	if err := s.repo.Create(ur); err != nil {
		s.logger.Error("failed to create role assignment",
			"user_id", dto.UserID, "role_id", dto.RoleID, "error", err)
		return nil, err
	}

	s.logger.Info("role assigned",
		"assignment_id", ur.ID, "user_id", ur.UserID, "role_id", ur.RoleID,
		"status", ur.Status, "assigned_by", actorID)

	s.invalidator.InvalidateAll()
	return ur, nil
}

func (s *Service) requiresApproval(roleID int64) (bool, error) {
	perms, err := s.roles.ListPermissions(roleID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p.RequiresApproval {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) Approve(id, approverID int64, dto ApproveDTO) (*UserRole, error) {
	ur, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if err := ur.Approve(approverID, dto.ApproverNotes, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ur); err != nil {
		return nil, err
	}

	s.logger.Info("role assignment approved",
		"assignment_id", ur.ID, "user_id", ur.UserID, "role_id", ur.RoleID,
		"approved_by", approverID)

	s.invalidator.InvalidateAll()
	return ur, nil
}

func (s *Service) Reject(id, rejectorID int64, dto RejectDTO) (*UserRole, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	ur, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if err := ur.Reject(rejectorID, dto.RejectionReason, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ur); err != nil {
		return nil, err
	}

	s.logger.Info("role assignment rejected",
		"assignment_id", ur.ID, "user_id", ur.UserID, "role_id", ur.RoleID,
		"rejected_by", rejectorID)

	s.invalidator.InvalidateAll()
	return ur, nil
}

func (s *Service) Revoke(id, revokerID int64, dto RevokeDTO) (*UserRole, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	ur, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if err := ur.Revoke(revokerID, dto.RevocationReason, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ur); err != nil {
		return nil, err
	}

	s.logger.Info("role assignment revoked",
		"assignment_id", ur.ID, "user_id", ur.UserID, "role_id", ur.RoleID,
		"revoked_by", revokerID)

	s.invalidator.InvalidateAll()
	return ur, nil
}

func (s *Service) ExtendValidity(id int64, dto ExtendValidityDTO) (*UserRole, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	ur, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if err := ur.ExtendValidity(dto.ValidTo, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ur); err != nil {
		return nil, err
	}

	s.invalidator.InvalidateAll()
	return ur, nil
}

func (s *Service) GetByID(id int64) (*UserRole, error) {
	return s.repo.GetByID(id)
}

func (s *Service) ListByUser(userID int64) ([]UserRole, error) {
	return s.repo.ListByUser(userID)
}

func (s *Service) ListPending() ([]UserRole, error) {
	return s.repo.ListByStatus(StatusPending)
}

func (s *Service) ListExpiring(within time.Duration) ([]UserRole, error) {
	return s.repo.ListExpiringBefore(s.now().Add(within))
}

// ExpireOverdue sweeps ACTIVE assignments whose ValidTo has passed into
// EXPIRED. It runs on a ticker from the server process; expired assignments
// also stop granting authority immediately through IsValidAt regardless of
// when the sweep lands.
func (s *Service) ExpireOverdue() (int, error) {
	now := s.now()
	overdue, err := s.repo.ListOverdue(now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range overdue {
		ur := &overdue[i]
		if err := ur.Expire(now); err != nil {
			// raced with a revoke; nothing to do for this row
			continue
		}
		if err := s.repo.Update(ur); err != nil {
			s.logger.Error("failed to expire assignment",
				"assignment_id", ur.ID, "error", err)
			continue
		}
		expired++
	}

	if expired > 0 {
		s.logger.Info("expired overdue role assignments", "count", expired)
		s.invalidator.InvalidateAll()
	}
	return expired, nil
}

// Remove hard-deletes an assignment row. Terminal rows only; live
// assignments must go through revoke so the audit trail survives.
func (s *Service) Remove(id int64) error {
	ur, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if !ur.Status.Terminal() {
		return internal.ErrInvalidState
	}

	if err := s.repo.Delete(id); err != nil {
		return err
	}

	s.invalidator.InvalidateAll()
	return nil
}
