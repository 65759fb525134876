package feature_test

import (
	"log/slog"
	"os"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/access-management/internal"
	"github.com/frahmantamala/access-management/internal/feature"
)

func TestFeatureService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Feature Service Suite")
}

// Mock repository for testing
type mockFeatureRepository struct {
	features     map[int64]*feature.Feature
	byCode       map[string]*feature.Feature
	permCounts   map[int64]int64
	nextID       int64
	createError  error
	updateError  error
	deleteCalled bool
}

func newMockFeatureRepository() *mockFeatureRepository {
	return &mockFeatureRepository{
		features:   make(map[int64]*feature.Feature),
		byCode:     make(map[string]*feature.Feature),
		permCounts: make(map[int64]int64),
		nextID:     1,
	}
}

func (m *mockFeatureRepository) Create(f *feature.Feature) error {
	if m.createError != nil {
		return m.createError
	}
	f.ID = m.nextID
	m.nextID++
	m.features[f.ID] = f
	m.byCode[f.Code] = f
	return nil
}

func (m *mockFeatureRepository) Update(f *feature.Feature) error {
	if m.updateError != nil {
		return m.updateError
	}
	m.features[f.ID] = f
	return nil
}

func (m *mockFeatureRepository) GetByID(id int64) (*feature.Feature, error) {
	f, ok := m.features[id]
	if !ok {
		return nil, feature.ErrNotFound
	}
	return f, nil
}

func (m *mockFeatureRepository) GetByCode(code string) (*feature.Feature, error) {
	f, ok := m.byCode[code]
	if !ok {
		return nil, feature.ErrNotFound
	}
	return f, nil
}

func (m *mockFeatureRepository) ListRoots() ([]feature.Feature, error) {
	var out []feature.Feature
	for _, f := range m.features {
		if f.ParentID == nil {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (m *mockFeatureRepository) ListChildren(parentID int64) ([]feature.Feature, error) {
	var out []feature.Feature
	for _, f := range m.features {
		if f.ParentID != nil && *f.ParentID == parentID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (m *mockFeatureRepository) List() ([]feature.Feature, error) {
	var out []feature.Feature
	for _, f := range m.features {
		out = append(out, *f)
	}
	return out, nil
}

func (m *mockFeatureRepository) Delete(id int64) error {
	m.deleteCalled = true
	delete(m.features, id)
	return nil
}

func (m *mockFeatureRepository) CountChildren(id int64) (int64, error) {
	children, _ := m.ListChildren(id)
	return int64(len(children)), nil
}

func (m *mockFeatureRepository) CountPermissions(id int64) (int64, error) {
	return m.permCounts[id], nil
}

type mockInvalidator struct {
	calls int
}

func (m *mockInvalidator) InvalidateAll() { m.calls++ }

var _ = Describe("FeatureService", func() {
	var (
		svc         *feature.Service
		mockRepo    *mockFeatureRepository
		invalidator *mockInvalidator
	)

	BeforeEach(func() {
		mockRepo = newMockFeatureRepository()
		invalidator = &mockInvalidator{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = feature.NewService(mockRepo, invalidator, logger)
	})

	createFeature := func(code string, parentID *int64) *feature.Feature {
		f, err := svc.Create(feature.CreateFeatureDTO{Code: code, Name: code, ParentID: parentID})
		Expect(err).ToNot(HaveOccurred())
		return f
	}

	Describe("Create", func() {
		It("should create a feature and flush the resolver cache", func() {
			// When
			f := createFeature("billing", nil)

			// Then
			Expect(f.ID).ToNot(BeZero())
			Expect(f.Enabled).To(BeTrue())
			Expect(invalidator.calls).To(Equal(1))
		})

		It("should reject a duplicate code", func() {
			createFeature("billing", nil)

			_, err := svc.Create(feature.CreateFeatureDTO{Code: "billing", Name: "billing"})

			Expect(err).To(MatchError(feature.ErrDuplicateCode))
		})

		It("should reject an unknown parent", func() {
			missing := int64(99)
			_, err := svc.Create(feature.CreateFeatureDTO{Code: "child", Name: "child", ParentID: &missing})

			Expect(err).To(MatchError(feature.ErrNotFound))
		})
	})

	Describe("SetParent", func() {
		It("should reparent a feature under a valid ancestor", func() {
			root := createFeature("root", nil)
			leaf := createFeature("leaf", nil)

			updated, err := svc.SetParent(leaf.ID, feature.SetParentDTO{ParentID: &root.ID})

			Expect(err).ToNot(HaveOccurred())
			Expect(*updated.ParentID).To(Equal(root.ID))
		})

		It("should reject making a feature its own parent", func() {
			f := createFeature("root", nil)

			_, err := svc.SetParent(f.ID, feature.SetParentDTO{ParentID: &f.ID})

			Expect(err).To(MatchError(internal.ErrCycleDetected))
		})

		It("should reject a parent that is a descendant", func() {
			// Given root <- mid <- leaf
			root := createFeature("root", nil)
			mid := createFeature("mid", &root.ID)
			leaf := createFeature("leaf", &mid.ID)

			// When root is reparented under leaf
			_, err := svc.SetParent(root.ID, feature.SetParentDTO{ParentID: &leaf.ID})

			// Then the cycle is refused
			Expect(err).To(MatchError(internal.ErrCycleDetected))
		})

		It("should fail on a chain that storage has already corrupted", func() {
			// two nodes pointing at each other, created behind the service's back
			a := createFeature("a", nil)
			b := createFeature("b", &a.ID)
			mockRepo.features[a.ID].ParentID = &b.ID

			c := createFeature("c", nil)
			_, err := svc.SetParent(c.ID, feature.SetParentDTO{ParentID: &a.ID})

			Expect(err).To(MatchError(internal.ErrCycleDetected))
		})

		It("should let exactly one of two opposing reparents win", func() {
			a := createFeature("a", nil)
			b := createFeature("b", nil)

			var wg sync.WaitGroup
			errs := make([]error, 2)
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, errs[0] = svc.SetParent(a.ID, feature.SetParentDTO{ParentID: &b.ID})
			}()
			go func() {
				defer wg.Done()
				_, errs[1] = svc.SetParent(b.ID, feature.SetParentDTO{ParentID: &a.ID})
			}()
			wg.Wait()

			Expect(errs).To(ContainElement(MatchError(internal.ErrCycleDetected)))

			// whichever write landed, the stored graph stayed acyclic
			bothParented := mockRepo.features[a.ID].ParentID != nil &&
				mockRepo.features[b.ID].ParentID != nil
			Expect(bothParented).To(BeFalse())
		})

		It("should detach a feature when parent is nil", func() {
			root := createFeature("root", nil)
			child := createFeature("child", &root.ID)

			updated, err := svc.SetParent(child.ID, feature.SetParentDTO{ParentID: nil})

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.ParentID).To(BeNil())
		})
	})

	Describe("Delete", func() {
		It("should refuse to delete a feature with children", func() {
			root := createFeature("root", nil)
			createFeature("child", &root.ID)

			err := svc.Delete(root.ID)

			Expect(err).To(MatchError(feature.ErrInUse))
			Expect(mockRepo.deleteCalled).To(BeFalse())
		})

		It("should refuse to delete a feature with permissions", func() {
			f := createFeature("billing", nil)
			mockRepo.permCounts[f.ID] = 2

			err := svc.Delete(f.ID)

			Expect(err).To(MatchError(feature.ErrInUse))
		})

		It("should delete a leaf feature and flush the cache", func() {
			f := createFeature("billing", nil)
			before := invalidator.calls

			err := svc.Delete(f.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(mockRepo.deleteCalled).To(BeTrue())
			Expect(invalidator.calls).To(Equal(before + 1))
		})
	})
})
