package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/access-management/internal"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager issues, validates and rotates session token pairs. Tokens are
// HS256-signed JWTs; validity additionally requires the token's jti to match
// the per-user slot in the TokenStore, so at most one access token and one
// refresh token per user are live at any moment.
type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	store      TokenStore
	logger     *slog.Logger
	now        func() time.Time
}

func NewTokenManager(secret, issuer string, accessTTL, refreshTTL time.Duration, store TokenStore, logger *slog.Logger) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		store:      store,
		logger:     logger,
		now:        time.Now,
	}
}

func accessKey(userID int64) string  { return fmt.Sprintf("auth:access:user:%d", userID) }
func refreshKey(userID int64) string { return fmt.Sprintf("auth:refresh:user:%d", userID) }

// Issue mints a fresh pair and registers both jtis, overwriting whatever the
// user's slots held. Any previously issued tokens stop validating the moment
// the overwrite lands.
func (m *TokenManager) Issue(ctx context.Context, userID int64, email string, authorities []string) (*TokenPair, error) {
	now := m.now()

	accessToken, accessJTI, accessExp, err := m.sign(userID, email, authorities, TokenTypeAccess, now)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshJTI, refreshExp, err := m.sign(userID, email, authorities, TokenTypeRefresh, now)
	if err != nil {
		return nil, err
	}

	if err := m.store.Set(ctx, accessKey(userID), accessJTI, m.accessTTL); err != nil {
		return nil, internal.NewInternalError("failed to register access token", err)
	}
	if err := m.store.Set(ctx, refreshKey(userID), refreshJTI, m.refreshTTL); err != nil {
		return nil, internal.NewInternalError("failed to register refresh token", err)
	}

	return &TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  accessExp,
		RefreshTokenExpiresAt: refreshExp,
	}, nil
}

func (m *TokenManager) sign(userID int64, email string, authorities []string, tokenType TokenType, now time.Time) (string, string, time.Time, error) {
	ttl := m.accessTTL
	if tokenType == TokenTypeRefresh {
		ttl = m.refreshTTL
	}
	expiresAt := now.Add(ttl)
	jti := uuid.NewString()

	claims := Claims{
		UserID:      userID,
		Authorities: strings.Join(authorities, ","),
		TokenType:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   email,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", "", time.Time{}, internal.NewInternalError("failed to sign token", err)
	}
	return signed, jti, expiresAt, nil
}

// Parse validates a raw token as the expected type. Checks run in a fixed
// order: signature and issuer, then expiry, then the typ claim, then the jti
// against the active slot. An expired refresh token is reported as invalid
// rather than expired so the client is sent back to login, not to refresh.
func (m *TokenManager) Parse(ctx context.Context, rawToken string, expected TokenType) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			if expected == TokenTypeAccess {
				return nil, internal.ErrTokenExpired
			}
			return nil, internal.ErrInvalidToken
		}
		return nil, internal.ErrInvalidToken.WithCause(err)
	}

	if claims.TokenType != expected {
		return nil, internal.ErrWrongTokenType
	}

	key := accessKey(claims.UserID)
	if expected == TokenTypeRefresh {
		key = refreshKey(claims.UserID)
	}
	activeJTI, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrJTINotFound) {
			return nil, internal.ErrTokenRevoked
		}
		return nil, internal.NewInternalError("failed to check token registry", err)
	}
	if activeJTI != claims.ID {
		return nil, internal.ErrTokenRevoked
	}

	return claims, nil
}

// Rotate exchanges a validated refresh token for a fresh pair. The refresh
// slot is swapped with compare-and-swap on the old jti, so of two concurrent
// rotations exactly one wins; the loser sees the slot already moved and gets
// TokenRevoked.
func (m *TokenManager) Rotate(ctx context.Context, oldClaims *Claims, authorities []string) (*TokenPair, error) {
	now := m.now()
	userID := oldClaims.UserID
	email := oldClaims.Subject

	accessToken, accessJTI, accessExp, err := m.sign(userID, email, authorities, TokenTypeAccess, now)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshJTI, refreshExp, err := m.sign(userID, email, authorities, TokenTypeRefresh, now)
	if err != nil {
		return nil, err
	}

	swapped, err := m.store.CompareAndSwap(ctx, refreshKey(userID), oldClaims.ID, refreshJTI, m.refreshTTL)
	if err != nil {
		return nil, internal.NewInternalError("failed to rotate refresh token", err)
	}
	if !swapped {
		m.logger.Warn("refresh rotation lost race", "user_id", userID)
		return nil, internal.ErrTokenRevoked
	}

	if err := m.store.Set(ctx, accessKey(userID), accessJTI, m.accessTTL); err != nil {
		return nil, internal.NewInternalError("failed to register access token", err)
	}

	return &TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  accessExp,
		RefreshTokenExpiresAt: refreshExp,
	}, nil
}

// Revoke clears both slots; every outstanding token for the user stops
// validating immediately.
func (m *TokenManager) Revoke(ctx context.Context, userID int64) error {
	if err := m.store.Del(ctx, accessKey(userID), refreshKey(userID)); err != nil {
		return internal.NewInternalError("failed to revoke tokens", err)
	}
	return nil
}
