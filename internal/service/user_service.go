package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/domain"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/repository"
	apperrors "github.com/Vijay-Anand-VJ/helpdesk-service/pkg/util"
)

// UserService covers admin account management.
type UserService struct {
	users    repository.UserRepository
	activity repository.ActivityLogRepository
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, activity repository.ActivityLogRepository) *UserService {
	return &UserService{users: users, activity: activity}
}

// UserUpdateInput describes an admin account mutation. Nil fields are
// untouched.
type UserUpdateInput struct {
	Role       *domain.Role
	Status     *domain.UserStatus
	Department *string
}

// ListUsers returns accounts for the admin view.
func (s *UserService) ListUsers(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// UpdateUser applies role/status/department changes to an account.
func (s *UserService) UpdateUser(ctx context.Context, actor *domain.User, userID string, input UserUpdateInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}

	if input.Role != nil {
		if !domain.ValidRole(*input.Role) {
			return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": *input.Role})
		}
		if user.ID == actor.ID {
			return nil, apperrors.NewConflict("cannot change own role", nil)
		}
		user.Role = *input.Role
	}
	if input.Status != nil {
		if *input.Status != domain.UserStatusActive && *input.Status != domain.UserStatusInactive {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *input.Status})
		}
		if user.ID == actor.ID {
			return nil, apperrors.NewConflict("cannot change own status", nil)
		}
		user.Status = *input.Status
	}
	if input.Department != nil {
		user.Department = *input.Department
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.activity != nil {
		_ = s.activity.Create(ctx, &domain.ActivityLog{
			UserID:  actor.ID,
			Action:  "UPDATE_USER",
			Details: fmt.Sprintf("updated account %s (role=%s status=%s)", user.ID, user.Role, user.Status),
		})
	}
	return user, nil
}

// ListActivity returns the audit trail for admins.
func (s *UserService) ListActivity(ctx context.Context, limit, offset int) ([]domain.ActivityLog, error) {
	entries, err := s.activity.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}
