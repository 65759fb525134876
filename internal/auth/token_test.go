package auth_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"github.com/frahmantamala/access-management/internal"
	"github.com/frahmantamala/access-management/internal/auth"
	authredis "github.com/frahmantamala/access-management/internal/auth/redis"
)

func TestAuth(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Module Suite")
}

const (
	testSecret = "0123456789abcdef0123456789abcdef"
	testIssuer = "access-management-test"
)

var _ = Describe("TokenManager", func() {
	var (
		mr      *miniredis.Miniredis
		client  *redis.Client
		store   auth.TokenStore
		manager *auth.TokenManager
		ctx     context.Context
	)

	const (
		userID = int64(42)
		email  = "user@mail.com"
	)

	authorities := []string{"billing:APPROVE", "reports:VIEW"}

	BeforeEach(func() {
		var err error
		mr, err = miniredis.Run()
		Expect(err).ToNot(HaveOccurred())

		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		store = authredis.NewTokenStore(client)
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		manager = auth.NewTokenManager(testSecret, testIssuer, 15*time.Minute, 24*time.Hour, store, logger)
		ctx = context.Background()
	})

	AfterEach(func() {
		client.Close()
		mr.Close()
	})

	// signExpired crafts a token with the manager's secret but an expiry in
	// the past, something the manager itself will never hand out.
	signExpired := func(tokenType auth.TokenType) string {
		claims := auth.Claims{
			UserID:    userID,
			TokenType: tokenType,
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        "expired-jti",
				Subject:   email,
				Issuer:    testIssuer,
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		Expect(err).ToNot(HaveOccurred())
		return signed
	}

	Describe("Issue and Parse", func() {
		It("should issue a pair whose tokens validate as their own types", func() {
			pair, err := manager.Issue(ctx, userID, email, authorities)
			Expect(err).ToNot(HaveOccurred())

			accessClaims, err := manager.Parse(ctx, pair.AccessToken, auth.TokenTypeAccess)
			Expect(err).ToNot(HaveOccurred())
			Expect(accessClaims.UserID).To(Equal(userID))
			Expect(accessClaims.Subject).To(Equal(email))
			Expect(accessClaims.AuthorityList()).To(Equal(authorities))

			refreshClaims, err := manager.Parse(ctx, pair.RefreshToken, auth.TokenTypeRefresh)
			Expect(err).ToNot(HaveOccurred())
			Expect(refreshClaims.TokenType).To(Equal(auth.TokenTypeRefresh))
		})

		It("should write the typ claim as Access and Refresh verbatim", func() {
			pair, err := manager.Issue(ctx, userID, email, authorities)
			Expect(err).ToNot(HaveOccurred())

			// other token consumers match the claim byte for byte, so the
			// wire value is pinned here rather than the Go constant
			typOf := func(raw string) string {
				parts := strings.Split(raw, ".")
				Expect(parts).To(HaveLen(3))
				payload, err := base64.RawURLEncoding.DecodeString(parts[1])
				Expect(err).ToNot(HaveOccurred())
				var body map[string]any
				Expect(json.Unmarshal(payload, &body)).To(Succeed())
				typ, _ := body["typ"].(string)
				return typ
			}

			Expect(typOf(pair.AccessToken)).To(Equal("Access"))
			Expect(typOf(pair.RefreshToken)).To(Equal("Refresh"))
		})

		It("should give access and refresh tokens distinct jtis", func() {
			pair, err := manager.Issue(ctx, userID, email, authorities)
			Expect(err).ToNot(HaveOccurred())

			accessClaims, _ := manager.Parse(ctx, pair.AccessToken, auth.TokenTypeAccess)
			refreshClaims, _ := manager.Parse(ctx, pair.RefreshToken, auth.TokenTypeRefresh)

			Expect(accessClaims.ID).ToNot(Equal(refreshClaims.ID))
		})

		It("should reject an access token presented as a refresh token", func() {
			pair, _ := manager.Issue(ctx, userID, email, authorities)

			_, err := manager.Parse(ctx, pair.AccessToken, auth.TokenTypeRefresh)

			Expect(err).To(MatchError(internal.ErrWrongTokenType))
		})

		It("should reject a refresh token presented as an access token", func() {
			pair, _ := manager.Issue(ctx, userID, email, authorities)

			_, err := manager.Parse(ctx, pair.RefreshToken, auth.TokenTypeAccess)

			Expect(err).To(MatchError(internal.ErrWrongTokenType))
		})

		It("should reject a token signed with a different secret", func() {
			other := auth.NewTokenManager("another-secret-another-secret-32", testIssuer, time.Minute, time.Hour, store, slog.Default())
			pair, _ := other.Issue(ctx, userID, email, authorities)

			_, err := manager.Parse(ctx, pair.AccessToken, auth.TokenTypeAccess)

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidToken))
		})

		It("should report an expired access token as expired", func() {
			_, err := manager.Parse(ctx, signExpired(auth.TokenTypeAccess), auth.TokenTypeAccess)

			Expect(err).To(MatchError(internal.ErrTokenExpired))
		})

		It("should report an expired refresh token as invalid, not expired", func() {
			_, err := manager.Parse(ctx, signExpired(auth.TokenTypeRefresh), auth.TokenTypeRefresh)

			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})
	})

	Describe("single active session", func() {
		It("should invalidate the previous pair when a new one is issued", func() {
			first, err := manager.Issue(ctx, userID, email, authorities)
			Expect(err).ToNot(HaveOccurred())

			second, err := manager.Issue(ctx, userID, email, authorities)
			Expect(err).ToNot(HaveOccurred())

			_, err = manager.Parse(ctx, first.AccessToken, auth.TokenTypeAccess)
			Expect(err).To(MatchError(internal.ErrTokenRevoked))
			_, err = manager.Parse(ctx, first.RefreshToken, auth.TokenTypeRefresh)
			Expect(err).To(MatchError(internal.ErrTokenRevoked))

			_, err = manager.Parse(ctx, second.AccessToken, auth.TokenTypeAccess)
			Expect(err).ToNot(HaveOccurred())
		})

		It("should not affect another user's session", func() {
			pair, _ := manager.Issue(ctx, userID, email, authorities)
			_, err := manager.Issue(ctx, userID+1, "other@mail.com", nil)
			Expect(err).ToNot(HaveOccurred())

			_, err = manager.Parse(ctx, pair.AccessToken, auth.TokenTypeAccess)
			Expect(err).ToNot(HaveOccurred())
		})
	})

	Describe("Rotate", func() {
		It("should supersede the old pair with the new one", func() {
			pair, _ := manager.Issue(ctx, userID, email, authorities)
			refreshClaims, err := manager.Parse(ctx, pair.RefreshToken, auth.TokenTypeRefresh)
			Expect(err).ToNot(HaveOccurred())

			rotated, err := manager.Rotate(ctx, refreshClaims, authorities)
			Expect(err).ToNot(HaveOccurred())

			// old tokens are dead
			_, err = manager.Parse(ctx, pair.RefreshToken, auth.TokenTypeRefresh)
			Expect(err).To(MatchError(internal.ErrTokenRevoked))
			_, err = manager.Parse(ctx, pair.AccessToken, auth.TokenTypeAccess)
			Expect(err).To(MatchError(internal.ErrTokenRevoked))

			// new ones live
			_, err = manager.Parse(ctx, rotated.AccessToken, auth.TokenTypeAccess)
			Expect(err).ToNot(HaveOccurred())
			_, err = manager.Parse(ctx, rotated.RefreshToken, auth.TokenTypeRefresh)
			Expect(err).ToNot(HaveOccurred())
		})

		It("should carry updated authorities into the new pair", func() {
			pair, _ := manager.Issue(ctx, userID, email, authorities)
			refreshClaims, _ := manager.Parse(ctx, pair.RefreshToken, auth.TokenTypeRefresh)

			rotated, err := manager.Rotate(ctx, refreshClaims, []string{"users:DELETE"})
			Expect(err).ToNot(HaveOccurred())

			newClaims, err := manager.Parse(ctx, rotated.AccessToken, auth.TokenTypeAccess)
			Expect(err).ToNot(HaveOccurred())
			Expect(newClaims.AuthorityList()).To(Equal([]string{"users:DELETE"}))
		})

		It("should let exactly one of two rotations with the same token win", func() {
			pair, _ := manager.Issue(ctx, userID, email, authorities)
			refreshClaims, _ := manager.Parse(ctx, pair.RefreshToken, auth.TokenTypeRefresh)

			_, firstErr := manager.Rotate(ctx, refreshClaims, authorities)
			_, secondErr := manager.Rotate(ctx, refreshClaims, authorities)

			Expect(firstErr).ToNot(HaveOccurred())
			Expect(secondErr).To(MatchError(internal.ErrTokenRevoked))
		})
	})

	Describe("Revoke", func() {
		It("should kill both tokens immediately", func() {
			pair, _ := manager.Issue(ctx, userID, email, authorities)

			Expect(manager.Revoke(ctx, userID)).To(Succeed())

			_, err := manager.Parse(ctx, pair.AccessToken, auth.TokenTypeAccess)
			Expect(err).To(MatchError(internal.ErrTokenRevoked))
			_, err = manager.Parse(ctx, pair.RefreshToken, auth.TokenTypeRefresh)
			Expect(err).To(MatchError(internal.ErrTokenRevoked))
		})
	})

	Describe("TokenStore", func() {
		It("should expire slots on their own TTL", func() {
			Expect(store.Set(ctx, "auth:access:user:7", "some-jti", time.Minute)).To(Succeed())

			mr.FastForward(2 * time.Minute)

			_, err := store.Get(ctx, "auth:access:user:7")
			Expect(err).To(MatchError(auth.ErrJTINotFound))
		})

		It("should swap only when the expected value still holds", func() {
			Expect(store.Set(ctx, "k", "old", time.Minute)).To(Succeed())

			swapped, err := store.CompareAndSwap(ctx, "k", "old", "new", time.Minute)
			Expect(err).ToNot(HaveOccurred())
			Expect(swapped).To(BeTrue())

			swapped, err = store.CompareAndSwap(ctx, "k", "old", "newer", time.Minute)
			Expect(err).ToNot(HaveOccurred())
			Expect(swapped).To(BeFalse())

			val, err := store.Get(ctx, "k")
			Expect(err).ToNot(HaveOccurred())
			Expect(val).To(Equal("new"))
		})
	})
})
