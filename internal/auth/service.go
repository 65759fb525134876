package auth

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/access-management/internal"
	"golang.org/x/crypto/bcrypt"
)

type ServiceAPI interface {
	Authenticate(ctx context.Context, dto LoginDTO) (*TokenPair, error)
	RefreshTokens(ctx context.Context, dto RefreshDTO) (*TokenPair, error)
	Logout(ctx context.Context, userID int64) error
	ValidateAccessToken(ctx context.Context, rawToken string) (*Claims, error)
}

type Service struct {
	credentials CredentialsRepository
	authorities AuthorityResolver
	tokens      *TokenManager
	logger      *slog.Logger
}

func NewService(credentials CredentialsRepository, authorities AuthorityResolver, tokens *TokenManager, logger *slog.Logger) *Service {
	return &Service{
		credentials: credentials,
		authorities: authorities,
		tokens:      tokens,
		logger:      logger,
	}
}

// Authenticate verifies the password and opens a new session. A prior live
// session for the user is superseded: issuing the new pair overwrites both
// jti slots.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (*TokenPair, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	creds, err := s.credentials.GetByEmail(dto.Email)
	if err != nil {
		// same answer as a wrong password; existence must not leak
		return nil, internal.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Warn("failed login attempt", "email", dto.Email)
		return nil, internal.ErrInvalidCredentials
	}

	if !creds.IsActive {
		return nil, internal.ErrUserInactive
	}
	if creds.IsLocked {
		return nil, internal.ErrUserLocked
	}

	authorities, err := s.authorities.UserAuthorities(creds.UserID)
	if err != nil {
		return nil, internal.NewInternalError("failed to resolve authorities", err)
	}

	pair, err := s.tokens.Issue(ctx, creds.UserID, creds.Email, authorities)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user authenticated", "user_id", creds.UserID)
	return pair, nil
}

// RefreshTokens rotates a session. Authorities are re-resolved from the store
// so permission changes since login take effect in the new pair.
func (s *Service) RefreshTokens(ctx context.Context, dto RefreshDTO) (*TokenPair, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	claims, err := s.tokens.Parse(ctx, dto.RefreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	authorities, err := s.authorities.UserAuthorities(claims.UserID)
	if err != nil {
		return nil, internal.NewInternalError("failed to resolve authorities", err)
	}

	pair, err := s.tokens.Rotate(ctx, claims, authorities)
	if err != nil {
		return nil, err
	}

	s.logger.Info("session refreshed", "user_id", claims.UserID)
	return pair, nil
}

func (s *Service) Logout(ctx context.Context, userID int64) error {
	if err := s.tokens.Revoke(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("user logged out", "user_id", userID)
	return nil
}

func (s *Service) ValidateAccessToken(ctx context.Context, rawToken string) (*Claims, error) {
	return s.tokens.Parse(ctx, rawToken, TokenTypeAccess)
}

// PrincipalFromClaims builds the request principal straight from validated
// claims; no store round-trip on the hot path.
func PrincipalFromClaims(claims *Claims) *internal.Principal {
	return &internal.Principal{
		UserID:      claims.UserID,
		Email:       claims.Subject,
		Authorities: claims.AuthorityList(),
	}
}
