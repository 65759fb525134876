package auth

import (
	"context"
	"strings"
	"time"

	"github.com/frahmantamala/access-management/internal"
	"github.com/golang-jwt/jwt/v5"
)

// TokenType distinguishes the two tokens of a session pair via the typ claim.
type TokenType string

const (
	TokenTypeAccess  TokenType = "Access"
	TokenTypeRefresh TokenType = "Refresh"
)

// Claims is the JWT payload for both token types. Authorities travel as a
// comma-joined string under the roles claim; the jti in RegisteredClaims.ID
// is what the revocation store validates against.
type Claims struct {
	UserID      int64     `json:"uid"`
	Authorities string    `json:"roles"`
	TokenType   TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// AuthorityList splits the comma-joined roles claim back into authority
// strings.
func (c *Claims) AuthorityList() []string {
	if c.Authorities == "" {
		return nil
	}
	return strings.Split(c.Authorities, ",")
}

// TokenPair is one session: an access token and the refresh token that can
// rotate it.
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
}

// TokenStore is the active-jti registry. One slot per (user, token type);
// writing a slot supersedes whatever jti it held, which is how issuing a new
// session invalidates the previous one.
type TokenStore interface {
	Set(ctx context.Context, key, jti string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	// CompareAndSwap replaces the slot value only if it still holds old,
	// atomically. Returns false when another writer got there first.
	CompareAndSwap(ctx context.Context, key, old, new string, ttl time.Duration) (bool, error)
}

// ErrJTINotFound is returned by TokenStore.Get when the slot is empty.
var ErrJTINotFound = internal.NewUnauthorizedError("no active token for user", internal.ErrCodeInvalidToken)

// UserCredentials is the authentication projection of a user account.
type UserCredentials struct {
	UserID       int64
	Email        string
	PasswordHash string
	IsActive     bool
	IsLocked     bool
}

// CredentialsRepository resolves login identifiers to stored credentials.
type CredentialsRepository interface {
	GetByEmail(email string) (*UserCredentials, error)
}

// AuthorityResolver supplies the effective authorities embedded in tokens.
type AuthorityResolver interface {
	UserAuthorities(userID int64) ([]string, error)
}
