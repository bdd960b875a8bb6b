package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/smokeking/smokeking-api/internal/domain"
	"github.com/smokeking/smokeking-api/internal/repository"
	apperrors "github.com/smokeking/smokeking-api/pkg/util/errorutil"
)

const maxPageSize = 100

// AdminService exposes user management to administrators.
type AdminService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

// NewAdminService builds the service.
func NewAdminService(users repository.UserRepository, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{users: users, logger: logger}
}

// ListUsers returns a page of users, optionally filtered by role.
func (s *AdminService) ListUsers(ctx context.Context, role *domain.Role, limit, offset int) ([]domain.User, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.users.List(ctx, repository.UserFilter{Role: role, Limit: limit, Offset: offset})
}

// UpdateRole changes a user's role. Admins cannot change their own role.
func (s *AdminService) UpdateRole(ctx context.Context, actorID, targetID int64, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": string(role)})
	}
	if actorID == targetID {
		return nil, apperrors.NewValidationError("administrators cannot change their own role", nil)
	}
	user, err := s.getUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	previous := user.Role
	user.Role = role
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user role changed",
		zap.Int64("actor_id", actorID),
		zap.Int64("user_id", targetID),
		zap.String("from", string(previous)),
		zap.String("to", string(role)))
	return user, nil
}

// SetActive activates or deactivates an account. Admins cannot deactivate themselves.
func (s *AdminService) SetActive(ctx context.Context, actorID, targetID int64, active bool) (*domain.User, error) {
	if actorID == targetID && !active {
		return nil, apperrors.NewValidationError("administrators cannot deactivate themselves", nil)
	}
	user, err := s.getUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	user.IsActive = active
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user status changed",
		zap.Int64("actor_id", actorID),
		zap.Int64("user_id", targetID),
		zap.Bool("active", active))
	return user, nil
}

func (s *AdminService) getUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("user")
		}
		return nil, err
	}
	return user, nil
}
