package permission_test

import (
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/access-management/internal/permission"
)

func TestPermissionService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Permission Service Suite")
}

// Mock permission repository for testing
type mockPermissionRepository struct {
	permissions map[int64]*permission.Permission
	holders     map[int64]int64
	nextID      int64
}

func newMockPermissionRepository() *mockPermissionRepository {
	return &mockPermissionRepository{
		permissions: make(map[int64]*permission.Permission),
		holders:     make(map[int64]int64),
		nextID:      1,
	}
}

func (m *mockPermissionRepository) Create(p *permission.Permission) error {
	p.ID = m.nextID
	m.nextID++
	stored := *p
	m.permissions[p.ID] = &stored
	return nil
}

func (m *mockPermissionRepository) Update(p *permission.Permission) error {
	stored := *p
	m.permissions[p.ID] = &stored
	return nil
}

func (m *mockPermissionRepository) GetByID(id int64) (*permission.Permission, error) {
	p, ok := m.permissions[id]
	if !ok {
		return nil, permission.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockPermissionRepository) GetByFeatureAndAction(featureID int64, action permission.Action) (*permission.Permission, error) {
	for _, p := range m.permissions {
		if p.FeatureID == featureID && p.Action == action {
			copied := *p
			return &copied, nil
		}
	}
	return nil, permission.ErrNotFound
}

func (m *mockPermissionRepository) ListByFeature(featureID int64) ([]permission.Permission, error) {
	var out []permission.Permission
	for _, p := range m.permissions {
		if p.FeatureID == featureID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockPermissionRepository) List() ([]permission.Permission, error) {
	var out []permission.Permission
	for _, p := range m.permissions {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockPermissionRepository) Delete(id int64) error {
	delete(m.permissions, id)
	return nil
}

func (m *mockPermissionRepository) CountRolesHolding(permissionID int64) (int64, error) {
	return m.holders[permissionID], nil
}

type mockInvalidator struct {
	calls int
}

func (m *mockInvalidator) InvalidateAll() { m.calls++ }

var _ = Describe("PermissionService", func() {
	var (
		svc         *permission.Service
		repo        *mockPermissionRepository
		invalidator *mockInvalidator
	)

	BeforeEach(func() {
		repo = newMockPermissionRepository()
		invalidator = &mockInvalidator{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = permission.NewService(repo, invalidator, logger)
	})

	Describe("Create", func() {
		It("should register a permission and flush the resolver cache", func() {
			created, err := svc.Create(permission.CreatePermissionDTO{
				FeatureID: 1,
				Action:    "create",
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(created.Action).To(Equal(permission.ActionCreate))
			Expect(invalidator.calls).To(Equal(1))
		})

		It("should reject an unknown action", func() {
			_, err := svc.Create(permission.CreatePermissionDTO{
				FeatureID: 1,
				Action:    "OBLITERATE",
			})

			Expect(err).To(HaveOccurred())
			Expect(invalidator.calls).To(BeZero())
		})

		It("should reject a duplicate feature and action pair", func() {
			_, err := svc.Create(permission.CreatePermissionDTO{FeatureID: 1, Action: "VIEW"})
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.Create(permission.CreatePermissionDTO{FeatureID: 1, Action: "view"})

			Expect(err).To(MatchError(permission.ErrDuplicate))
		})

		It("should allow the same action on another feature", func() {
			_, err := svc.Create(permission.CreatePermissionDTO{FeatureID: 1, Action: "VIEW"})
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.Create(permission.CreatePermissionDTO{FeatureID: 2, Action: "VIEW"})

			Expect(err).ToNot(HaveOccurred())
		})
	})

	Describe("Update", func() {
		It("should mutate the annotations but never the identity", func() {
			created, err := svc.Create(permission.CreatePermissionDTO{FeatureID: 1, Action: "EXPORT"})
			Expect(err).ToNot(HaveOccurred())

			updated, err := svc.Update(created.ID, permission.UpdatePermissionDTO{
				RequiresApproval: true,
				ConstraintPolicy: "business-hours-only",
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.RequiresApproval).To(BeTrue())
			Expect(updated.Action).To(Equal(permission.ActionExport))
			Expect(updated.FeatureID).To(Equal(int64(1)))
		})
	})

	Describe("Delete", func() {
		It("should refuse while a role still holds the permission", func() {
			created, err := svc.Create(permission.CreatePermissionDTO{FeatureID: 1, Action: "DELETE"})
			Expect(err).ToNot(HaveOccurred())
			repo.holders[created.ID] = 2

			err = svc.Delete(created.ID)

			Expect(err).To(MatchError(permission.ErrInUse))
		})

		It("should delete an unreferenced permission and flush the cache", func() {
			created, err := svc.Create(permission.CreatePermissionDTO{FeatureID: 1, Action: "DELETE"})
			Expect(err).ToNot(HaveOccurred())
			before := invalidator.calls

			Expect(svc.Delete(created.ID)).To(Succeed())

			_, err = svc.GetByID(created.ID)
			Expect(err).To(MatchError(permission.ErrNotFound))
			Expect(invalidator.calls).To(Equal(before + 1))
		})
	})

	Describe("ParseAction", func() {
		It("should accept any case and surrounding whitespace", func() {
			action, err := permission.ParseAction("  assign_role ")

			Expect(err).ToNot(HaveOccurred())
			Expect(action).To(Equal(permission.ActionAssignRole))
		})
	})

	Describe("Authority", func() {
		It("should render feature code and action separated by a colon", func() {
			p := permission.Permission{FeatureCode: "billing", Action: permission.ActionApprove}

			Expect(p.Authority()).To(Equal("billing:APPROVE"))
		})
	})
})
