package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nbarsukov/shop-backend/internal/hash"
	"github.com/nbarsukov/shop-backend/internal/logging"
	"github.com/nbarsukov/shop-backend/internal/models"
	"github.com/nbarsukov/shop-backend/internal/repo"
	"github.com/nbarsukov/shop-backend/internal/tokens"
	"github.com/nbarsukov/shop-backend/internal/transport"
)

type AuthService struct {
	Repo   *repo.GormRepo
	Tokens *tokens.Manager
}

// Login verifies the credentials and issues an access/refresh pair. The
// sha256 of the refresh token is stored on the user row, overwriting any
// previous session: a user has at most one live refresh token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*transport.Token, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	user, err := s.Repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login_failed", "status", 401)
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if !user.Available || !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "status", 401)
		return nil, ErrUnauthorized
	}

	token, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}
	l.Info("login_success", "user_id", user.ID)
	return token, nil
}

// Refresh rotates the session: the presented refresh token must match the
// stored hash, and a brand-new pair replaces it. The consumed token stops
// working immediately even though it has not expired.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*transport.Token, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Tokens.ParseRefresh(refreshToken)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "reason", "invalid token")
		return nil, ErrUnauthorized
	}

	user, err := s.Repo.GetUserByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "unknown subject")
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if user.HashedRefreshToken == "" {
		l.Warn("refresh_failed", "status", 401, "reason", "no active session")
		return nil, ErrUnauthorized
	}
	if !hash.EqualConstantTime(user.HashedRefreshToken, hash.Sha256Hex(refreshToken)) {
		l.Warn("refresh_failed", "status", 401, "reason", "superseded token")
		return nil, ErrUnauthorized
	}

	token, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}
	l.Info("refresh_success", "user_id", user.ID)
	return token, nil
}

// Logout clears the stored refresh-token hash; every previously issued
// refresh token becomes unusable.
func (s *AuthService) Logout(ctx context.Context, username string) error {
	user, err := s.Repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	return s.Repo.SetRefreshTokenHash(ctx, user.ID, "")
}

// CurrentUser resolves an authenticated principal to its user row. Used by
// the API layer after token verification; a missing or disabled user is an
// authentication failure, not a not-found.
func (s *AuthService) CurrentUser(ctx context.Context, username string) (*models.User, error) {
	user, err := s.Repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if !user.Available {
		return nil, ErrUnauthorized
	}
	return user, nil
}

func (s *AuthService) issuePair(ctx context.Context, user *models.User) (*transport.Token, error) {
	accessToken, _, err := s.Tokens.MintAccess(user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	refreshToken, _, err := s.Tokens.MintRefresh(user.Username)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.SetRefreshTokenHash(ctx, user.ID, hash.Sha256Hex(refreshToken)); err != nil {
		return nil, err
	}
	return &transport.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}
