package service

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/gastrodesk/internal/models"
	"github.com/Skotchmaster/gastrodesk/internal/transport"
)

type UserService struct {
	Users UserStore
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.Users.ListUsers(ctx)
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.Users.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}

// UpdateUser changes role and active flag. Managers cannot lock themselves
// out by deactivating or demoting their own account.
func (s *UserService) UpdateUser(ctx context.Context, actorID, id uint, req transport.PatchUserRequest) (*models.User, error) {
	if req.Role != nil && !req.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, *req.Role)
	}
	if actorID == id {
		if req.IsActive != nil && !*req.IsActive {
			return nil, fmt.Errorf("%w: cannot deactivate own account", ErrValidation)
		}
		if req.Role != nil && *req.Role != models.RoleManager {
			return nil, fmt.Errorf("%w: cannot change own role", ErrValidation)
		}
	}

	u, err := s.Users.UpdateUser(ctx, id, func(u *models.User) error {
		if req.Role != nil {
			u.Role = *req.Role
		}
		if req.IsActive != nil {
			u.IsActive = *req.IsActive
		}
		return nil
	})
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}

// ToggleActive flips the active flag of another user.
func (s *UserService) ToggleActive(ctx context.Context, actorID, id uint) (*models.User, error) {
	if actorID == id {
		return nil, fmt.Errorf("%w: cannot deactivate own account", ErrValidation)
	}
	u, err := s.Users.UpdateUser(ctx, id, func(u *models.User) error {
		u.IsActive = !u.IsActive
		return nil
	})
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}
