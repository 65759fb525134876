package role_test

import (
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/access-management/internal"
	"github.com/frahmantamala/access-management/internal/permission"
	"github.com/frahmantamala/access-management/internal/role"
)

func TestRoleService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Role Service Suite")
}

// Mock repository for testing
type mockRoleRepository struct {
	roles            map[int64]*role.Role
	byCode           map[string]*role.Role
	permissions      map[int64][]permission.Permission
	assignmentCounts map[int64]int64
	nextID           int64
	deleteCalled     bool
}

func newMockRoleRepository() *mockRoleRepository {
	return &mockRoleRepository{
		roles:            make(map[int64]*role.Role),
		byCode:           make(map[string]*role.Role),
		permissions:      make(map[int64][]permission.Permission),
		assignmentCounts: make(map[int64]int64),
		nextID:           1,
	}
}

func (m *mockRoleRepository) Create(r *role.Role) error {
	r.ID = m.nextID
	m.nextID++
	m.roles[r.ID] = r
	m.byCode[r.Code] = r
	return nil
}

func (m *mockRoleRepository) Update(r *role.Role) error {
	m.roles[r.ID] = r
	return nil
}

func (m *mockRoleRepository) GetByID(id int64) (*role.Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return nil, role.ErrNotFound
	}
	return r, nil
}

func (m *mockRoleRepository) GetByCode(code string) (*role.Role, error) {
	r, ok := m.byCode[code]
	if !ok {
		return nil, role.ErrNotFound
	}
	return r, nil
}

func (m *mockRoleRepository) List() ([]role.Role, error) {
	var out []role.Role
	for _, r := range m.roles {
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockRoleRepository) ListDefault() ([]role.Role, error) {
	var out []role.Role
	for _, r := range m.roles {
		if r.DefaultRole {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockRoleRepository) Delete(id int64) error {
	m.deleteCalled = true
	delete(m.roles, id)
	return nil
}

func (m *mockRoleRepository) CountChildren(id int64) (int64, error) {
	var count int64
	for _, r := range m.roles {
		if r.ParentID != nil && *r.ParentID == id {
			count++
		}
	}
	return count, nil
}

func (m *mockRoleRepository) AddPermission(roleID, permissionID int64) error {
	for _, p := range m.permissions[roleID] {
		if p.ID == permissionID {
			return nil
		}
	}
	m.permissions[roleID] = append(m.permissions[roleID], permission.Permission{ID: permissionID})
	return nil
}

func (m *mockRoleRepository) RemovePermission(roleID, permissionID int64) error {
	perms := m.permissions[roleID]
	for i, p := range perms {
		if p.ID == permissionID {
			m.permissions[roleID] = append(perms[:i], perms[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockRoleRepository) ListPermissions(roleID int64) ([]permission.Permission, error) {
	return m.permissions[roleID], nil
}

func (m *mockRoleRepository) RolesForPermission(permissionID int64) ([]role.Role, error) {
	var out []role.Role
	for roleID, perms := range m.permissions {
		for _, p := range perms {
			if p.ID == permissionID {
				out = append(out, *m.roles[roleID])
			}
		}
	}
	return out, nil
}

func (m *mockRoleRepository) CountNonTerminalAssignments(roleID int64) (int64, error) {
	return m.assignmentCounts[roleID], nil
}

type mockInvalidator struct {
	calls int
}

func (m *mockInvalidator) InvalidateAll() { m.calls++ }

var _ = Describe("RoleService", func() {
	var (
		svc         *role.Service
		mockRepo    *mockRoleRepository
		invalidator *mockInvalidator
	)

	BeforeEach(func() {
		mockRepo = newMockRoleRepository()
		invalidator = &mockInvalidator{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = role.NewService(mockRepo, invalidator, logger)
	})

	createRole := func(code string, parentID *int64) *role.Role {
		r, err := svc.Create(role.CreateRoleDTO{Code: code, Name: code, ParentID: parentID})
		Expect(err).ToNot(HaveOccurred())
		return r
	}

	Describe("Create", func() {
		It("should create a role and flush the resolver cache", func() {
			r := createRole("MANAGER", nil)

			Expect(r.ID).ToNot(BeZero())
			Expect(invalidator.calls).To(Equal(1))
		})

		It("should reject a duplicate code", func() {
			createRole("MANAGER", nil)

			_, err := svc.Create(role.CreateRoleDTO{Code: "MANAGER", Name: "again"})

			Expect(err).To(MatchError(role.ErrDuplicateCode))
		})
	})

	Describe("Update", func() {
		It("should refuse to modify a system role", func() {
			r := createRole("ADMIN", nil)
			r.SystemRole = true

			_, err := svc.Update(r.ID, role.UpdateRoleDTO{Name: "renamed"})

			Expect(err).To(MatchError(role.ErrSystemImmutable))
		})
	})

	Describe("SetParent", func() {
		It("should reject making a role its own parent", func() {
			r := createRole("MANAGER", nil)

			_, err := svc.SetParent(r.ID, role.SetParentDTO{ParentID: &r.ID})

			Expect(err).To(MatchError(internal.ErrCycleDetected))
		})

		It("should reject a parent that is a descendant", func() {
			admin := createRole("ADMIN", nil)
			manager := createRole("MANAGER", &admin.ID)
			clerk := createRole("CLERK", &manager.ID)

			_, err := svc.SetParent(admin.ID, role.SetParentDTO{ParentID: &clerk.ID})

			Expect(err).To(MatchError(internal.ErrCycleDetected))
		})

		It("should allow reparenting onto a sibling chain", func() {
			admin := createRole("ADMIN", nil)
			manager := createRole("MANAGER", &admin.ID)
			clerk := createRole("CLERK", nil)

			updated, err := svc.SetParent(clerk.ID, role.SetParentDTO{ParentID: &manager.ID})

			Expect(err).ToNot(HaveOccurred())
			Expect(*updated.ParentID).To(Equal(manager.ID))
		})
	})

	Describe("Delete", func() {
		It("should refuse to delete a system role", func() {
			r := createRole("ADMIN", nil)
			r.SystemRole = true

			Expect(svc.Delete(r.ID)).To(MatchError(role.ErrSystemImmutable))
		})

		It("should refuse to delete a role with child roles", func() {
			parent := createRole("ADMIN", nil)
			createRole("MANAGER", &parent.ID)

			Expect(svc.Delete(parent.ID)).To(MatchError(role.ErrInUse))
			Expect(mockRepo.deleteCalled).To(BeFalse())
		})

		It("should refuse to delete a role with live assignments", func() {
			r := createRole("MANAGER", nil)
			mockRepo.assignmentCounts[r.ID] = 3

			Expect(svc.Delete(r.ID)).To(MatchError(role.ErrInUse))
		})

		It("should delete an unused role", func() {
			r := createRole("MANAGER", nil)

			Expect(svc.Delete(r.ID)).To(Succeed())
			Expect(mockRepo.deleteCalled).To(BeTrue())
		})
	})

	Describe("Permissions", func() {
		It("should attach a permission and flush the cache", func() {
			r := createRole("MANAGER", nil)
			before := invalidator.calls

			Expect(svc.AddPermission(r.ID, 42)).To(Succeed())

			perms, err := svc.ListPermissions(r.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(perms).To(HaveLen(1))
			Expect(invalidator.calls).To(Equal(before + 1))
		})

		It("should detach a permission", func() {
			r := createRole("MANAGER", nil)
			Expect(svc.AddPermission(r.ID, 42)).To(Succeed())

			Expect(svc.RemovePermission(r.ID, 42)).To(Succeed())

			perms, err := svc.ListPermissions(r.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(perms).To(BeEmpty())
		})
	})
})
