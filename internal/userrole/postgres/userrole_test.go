package postgres

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/frahmantamala/access-management/internal/userrole"
)

func TestUserRoleRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "UserRole Repository Suite")
}

var _ = Describe("UserRoleRepository", func() {
	var (
		db   *gorm.DB
		repo userrole.Repository
	)

	BeforeEach(func() {
		var err error

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&userrole.UserRole{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewUserRoleRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		err = sqlDB.Close()
		Expect(err).NotTo(HaveOccurred())
	})

	create := func(userID, roleID int64, status userrole.Status, validTo *time.Time) *userrole.UserRole {
		ur := &userrole.UserRole{
			UserID:             userID,
			RoleID:             roleID,
			AssignedAt:         time.Now(),
			ValidFrom:          time.Now().Add(-time.Hour),
			ValidTo:            validTo,
			Status:             status,
			Active:             !status.Terminal(),
			InheritPermissions: true,
		}
		Expect(repo.Create(ur)).To(Succeed())
		return ur
	}

	Describe("GetNonTerminal", func() {
		It("should find a pending assignment for the pair", func() {
			created := create(1, 10, userrole.StatusPending, nil)

			found, err := repo.GetNonTerminal(1, 10)

			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal(created.ID))
		})

		It("should ignore terminal assignments", func() {
			create(1, 10, userrole.StatusRevoked, nil)
			create(1, 10, userrole.StatusRejected, nil)
			create(1, 10, userrole.StatusExpired, nil)

			_, err := repo.GetNonTerminal(1, 10)

			Expect(err).To(MatchError(userrole.ErrNotFound))
		})

		It("should not match a different role", func() {
			create(1, 10, userrole.StatusActive, nil)

			_, err := repo.GetNonTerminal(1, 11)

			Expect(err).To(MatchError(userrole.ErrNotFound))
		})
	})

	Describe("ListOverdue", func() {
		It("should return active assignments past their expiry only", func() {
			past := time.Now().Add(-time.Minute)
			future := time.Now().Add(time.Hour)

			overdue := create(1, 10, userrole.StatusActive, &past)
			create(2, 10, userrole.StatusActive, &future)
			create(3, 10, userrole.StatusActive, nil)
			create(4, 10, userrole.StatusRevoked, &past)

			found, err := repo.ListOverdue(time.Now())

			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(1))
			Expect(found[0].ID).To(Equal(overdue.ID))
		})
	})

	Describe("ListByStatus", func() {
		It("should filter by status", func() {
			create(1, 10, userrole.StatusPending, nil)
			create(2, 10, userrole.StatusPending, nil)
			create(3, 10, userrole.StatusActive, nil)

			pending, err := repo.ListByStatus(userrole.StatusPending)

			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(HaveLen(2))
		})
	})

	Describe("Update", func() {
		It("should persist a state transition", func() {
			ur := create(1, 10, userrole.StatusPending, nil)

			approver := int64(9)
			now := time.Now()
			Expect(ur.Approve(approver, "ok", now)).To(Succeed())
			Expect(repo.Update(ur)).To(Succeed())

			reloaded, err := repo.GetByID(ur.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.Status).To(Equal(userrole.StatusActive))
			Expect(*reloaded.ApprovedBy).To(Equal(approver))
		})
	})

	Describe("ListByUser", func() {
		It("should return every assignment for the user", func() {
			create(1, 10, userrole.StatusActive, nil)
			create(1, 11, userrole.StatusRevoked, nil)
			create(2, 10, userrole.StatusActive, nil)

			found, err := repo.ListByUser(1)

			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(2))
		})
	})
})
