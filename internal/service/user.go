package service

import (
	"context"
	"errors"
	"fmt"
	"unicode"

	"gorm.io/gorm"

	"github.com/nbarsukov/shop-backend/internal/hash"
	"github.com/nbarsukov/shop-backend/internal/logging"
	"github.com/nbarsukov/shop-backend/internal/models"
	"github.com/nbarsukov/shop-backend/internal/repo"
	"github.com/nbarsukov/shop-backend/internal/transport"
)

type UserService struct {
	DB   *gorm.DB
	Repo *repo.GormRepo
}

func (s *UserService) Create(ctx context.Context, req transport.RegisterRequest) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "user.create", "username", req.Username)

	if err := validateUsername(req.Username); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	if _, err := s.Repo.GetUserByUsername(ctx, req.Username); err == nil {
		return nil, &UsernameExistsError{Username: req.Username}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:     req.Username,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
		Available:    true,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &UsernameExistsError{Username: req.Username}
		}
		return nil, err
	}

	l.Info("user_created", "user_id", user.ID)
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user with id %d", ErrNotFound, id)
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.Repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %q", ErrNotFound, username)
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.Repo.ListUsers(ctx, limit, offset)
}

func (s *UserService) Update(ctx context.Context, id uint64, req transport.UpdateUserRequest) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "user.update", "user_id", id)

	user, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user with id %d", ErrNotFound, id)
		}
		return nil, err
	}

	if req.Username != nil && *req.Username != user.Username {
		if err := validateUsername(*req.Username); err != nil {
			return nil, err
		}
		if _, err := s.Repo.GetUserByUsername(ctx, *req.Username); err == nil {
			return nil, &UsernameExistsError{Username: *req.Username}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		user.Username = *req.Username
	}
	if req.Password != nil {
		if err := validatePassword(*req.Password); err != nil {
			return nil, err
		}
		pwHash, err := hash.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = pwHash
	}
	if req.Available != nil {
		user.Available = *req.Available
	}

	if err := s.Repo.SaveUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &UsernameExistsError{Username: user.Username}
		}
		return nil, err
	}

	l.Info("user_updated")
	return user, nil
}

// UpdateRole changes a user's role. Demoting is checked against the admin
// count under admin row locks, in the same transaction, so two concurrent
// demotions cannot drop the admin count to zero.
func (s *UserService) UpdateRole(ctx context.Context, username, newRole string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "user.update_role", "username", username, "role", newRole)

	if newRole != models.RoleAdmin && newRole != models.RoleUser {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, newRole)
	}

	var user *models.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)

		var err error
		user, err = r.GetUserByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: user %q", ErrNotFound, username)
			}
			return err
		}

		if user.Role == newRole {
			return &UselessOperationError{Username: username, Role: newRole}
		}

		if user.Role == models.RoleAdmin {
			if err := r.LockAdmins(ctx); err != nil {
				return err
			}
			count, err := r.CountAdmins(ctx)
			if err != nil {
				return err
			}
			if count <= 1 {
				return &LastAdminError{Username: username, Action: "demote"}
			}
		}

		user.Role = newRole
		return r.SaveUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	l.Info("role_updated")
	return user, nil
}

// Delete removes a user. Both preconditions (no owned orders, not the last
// admin) are checked before any mutation; either failing aborts the whole
// transaction.
func (s *UserService) Delete(ctx context.Context, id uint64) error {
	l := logging.FromContext(ctx).With("svc", "user.delete", "user_id", id)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)

		user, err := r.GetUserByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: user with id %d", ErrNotFound, id)
			}
			return err
		}

		orders, err := r.CountOrdersForUser(ctx, id)
		if err != nil {
			return err
		}
		if orders > 0 {
			return &UserHasOrdersError{Username: user.Username}
		}

		if user.Role == models.RoleAdmin {
			if err := r.LockAdmins(ctx); err != nil {
				return err
			}
			count, err := r.CountAdmins(ctx)
			if err != nil {
				return err
			}
			if count <= 1 {
				return &LastAdminError{Username: user.Username, Action: "delete"}
			}
		}

		return r.DeleteUser(ctx, id)
	})
	if err != nil {
		return err
	}

	l.Info("user_deleted")
	return nil
}

func validateUsername(username string) error {
	if len(username) < 3 || len(username) > 50 {
		return fmt.Errorf("%w: username must be 3-50 characters", ErrValidation)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 || len(password) > 50 {
		return fmt.Errorf("%w: password must be 8-50 characters", ErrValidation)
	}
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return fmt.Errorf("%w: password must contain upper, lower, digit and special characters", ErrValidation)
	}
	return nil
}
