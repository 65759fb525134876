package auth_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/access-management/internal"
	"github.com/frahmantamala/access-management/internal/auth"
)

// In-memory token store for service tests
type memoryTokenStore struct {
	mu    sync.Mutex
	slots map[string]string
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{slots: make(map[string]string)}
}

func (s *memoryTokenStore) Set(_ context.Context, key, jti string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = jti
	return nil
}

func (s *memoryTokenStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jti, ok := s.slots[key]
	if !ok {
		return "", auth.ErrJTINotFound
	}
	return jti, nil
}

func (s *memoryTokenStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.slots, key)
	}
	return nil
}

func (s *memoryTokenStore) CompareAndSwap(_ context.Context, key, old, new string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slots[key] != old {
		return false, nil
	}
	s.slots[key] = new
	return true, nil
}

// Mock credentials repository
type mockCredentialsRepository struct {
	users map[string]*auth.UserCredentials
}

func (m *mockCredentialsRepository) GetByEmail(email string) (*auth.UserCredentials, error) {
	creds, ok := m.users[email]
	if !ok {
		return nil, internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)
	}
	return creds, nil
}

// Mock authority resolver
type mockAuthorityResolver struct {
	authorities map[int64][]string
	err         error
}

func (m *mockAuthorityResolver) UserAuthorities(userID int64) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.authorities[userID], nil
}

var _ = Describe("AuthService", func() {
	var (
		svc      *auth.Service
		creds    *mockCredentialsRepository
		resolver *mockAuthorityResolver
		manager  *auth.TokenManager
		ctx      context.Context
	)

	const (
		userID   = int64(42)
		email    = "user@mail.com"
		password = "correct-horse"
	)

	BeforeEach(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		Expect(err).ToNot(HaveOccurred())

		creds = &mockCredentialsRepository{users: map[string]*auth.UserCredentials{
			email: {UserID: userID, Email: email, PasswordHash: string(hash), IsActive: true},
		}}
		resolver = &mockAuthorityResolver{authorities: map[int64][]string{
			userID: {"billing:APPROVE"},
		}}

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		manager = auth.NewTokenManager(testSecret, testIssuer, 15*time.Minute, 24*time.Hour, newMemoryTokenStore(), logger)
		svc = auth.NewService(creds, resolver, manager, logger)
		ctx = context.Background()
	})

	Describe("Authenticate", func() {
		It("should issue a pair carrying the resolved authorities", func() {
			pair, err := svc.Authenticate(ctx, auth.LoginDTO{Email: email, Password: password})

			Expect(err).ToNot(HaveOccurred())
			claims, err := svc.ValidateAccessToken(ctx, pair.AccessToken)
			Expect(err).ToNot(HaveOccurred())
			Expect(claims.UserID).To(Equal(userID))
			Expect(claims.AuthorityList()).To(Equal([]string{"billing:APPROVE"}))
		})

		It("should reject a wrong password", func() {
			_, err := svc.Authenticate(ctx, auth.LoginDTO{Email: email, Password: "wrong"})

			Expect(err).To(MatchError(internal.ErrInvalidCredentials))
		})

		It("should answer an unknown email the same as a wrong password", func() {
			_, err := svc.Authenticate(ctx, auth.LoginDTO{Email: "nobody@mail.com", Password: password})

			Expect(err).To(MatchError(internal.ErrInvalidCredentials))
		})

		It("should reject an inactive account even with the right password", func() {
			creds.users[email].IsActive = false

			_, err := svc.Authenticate(ctx, auth.LoginDTO{Email: email, Password: password})

			Expect(err).To(MatchError(internal.ErrUserInactive))
		})

		It("should reject a locked account", func() {
			creds.users[email].IsLocked = true

			_, err := svc.Authenticate(ctx, auth.LoginDTO{Email: email, Password: password})

			Expect(err).To(MatchError(internal.ErrUserLocked))
		})
	})

	Describe("RefreshTokens", func() {
		It("should re-resolve authorities so permission changes take effect", func() {
			pair, err := svc.Authenticate(ctx, auth.LoginDTO{Email: email, Password: password})
			Expect(err).ToNot(HaveOccurred())

			// permissions changed since login
			resolver.authorities[userID] = []string{"billing:APPROVE", "users:DELETE"}

			rotated, err := svc.RefreshTokens(ctx, auth.RefreshDTO{RefreshToken: pair.RefreshToken})
			Expect(err).ToNot(HaveOccurred())

			claims, err := svc.ValidateAccessToken(ctx, rotated.AccessToken)
			Expect(err).ToNot(HaveOccurred())
			Expect(claims.AuthorityList()).To(ContainElement("users:DELETE"))
		})

		It("should reject an access token used as a refresh token", func() {
			pair, _ := svc.Authenticate(ctx, auth.LoginDTO{Email: email, Password: password})

			_, err := svc.RefreshTokens(ctx, auth.RefreshDTO{RefreshToken: pair.AccessToken})

			Expect(err).To(MatchError(internal.ErrWrongTokenType))
		})

		It("should reject a refresh token that was already rotated", func() {
			pair, _ := svc.Authenticate(ctx, auth.LoginDTO{Email: email, Password: password})
			_, err := svc.RefreshTokens(ctx, auth.RefreshDTO{RefreshToken: pair.RefreshToken})
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.RefreshTokens(ctx, auth.RefreshDTO{RefreshToken: pair.RefreshToken})

			Expect(err).To(MatchError(internal.ErrTokenRevoked))
		})
	})

	Describe("Logout", func() {
		It("should invalidate the whole session", func() {
			pair, _ := svc.Authenticate(ctx, auth.LoginDTO{Email: email, Password: password})

			Expect(svc.Logout(ctx, userID)).To(Succeed())

			_, err := svc.ValidateAccessToken(ctx, pair.AccessToken)
			Expect(err).To(MatchError(internal.ErrTokenRevoked))
			_, err = svc.RefreshTokens(ctx, auth.RefreshDTO{RefreshToken: pair.RefreshToken})
			Expect(err).To(MatchError(internal.ErrTokenRevoked))
		})
	})

	Describe("PrincipalFromClaims", func() {
		It("should build the principal straight from claims", func() {
			pair, _ := svc.Authenticate(ctx, auth.LoginDTO{Email: email, Password: password})
			claims, err := svc.ValidateAccessToken(ctx, pair.AccessToken)
			Expect(err).ToNot(HaveOccurred())

			principal := auth.PrincipalFromClaims(claims)

			Expect(principal.UserID).To(Equal(userID))
			Expect(principal.Email).To(Equal(email))
			Expect(principal.HasAuthority("billing:APPROVE")).To(BeTrue())
			Expect(principal.HasAuthority("users:DELETE")).To(BeFalse())
		})
	})
})
