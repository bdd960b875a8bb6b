package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/smokeking/smokeking-api/internal/auth"
	"github.com/smokeking/smokeking-api/internal/config"
	"github.com/smokeking/smokeking-api/internal/domain"
	"github.com/smokeking/smokeking-api/internal/repository"
	apperrors "github.com/smokeking/smokeking-api/pkg/util/errorutil"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// RegisterInput describes a new account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// ProfileInput describes editable profile fields.
type ProfileInput struct {
	Name    string
	Phone   string
	Address string
}

// Session is the result of a successful login or registration.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates registration, login and account self-service.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	limiter    *auth.LoginLimiter
	logger     *zap.Logger
	bcryptCost int
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Tokens   *auth.TokenManager
	Limiter  *auth.LoginLimiter
	Logger   *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokens:     deps.Tokens,
		limiter:    deps.Limiter,
		logger:     logger,
		bcryptCost: cfg.BcryptCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a guest account and signs it in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	email := normalizeEmail(input.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered")
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	hash, err := s.hashPassword(input.Password, "password")
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Phone:        strings.TrimSpace(input.Phone),
		Role:         domain.RoleGuest,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflict("email already registered")
		}
		return nil, err
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID))
	return s.issue(user)
}

// Login checks credentials against the stored bcrypt hash. Unknown emails,
// wrong passwords and inactive accounts are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if err := s.limiter.Check(ctx, email); err != nil {
		if errors.Is(err, auth.ErrLoginLocked) {
			return nil, apperrors.NewTooManyRequests("too many failed login attempts, try again later")
		}
		s.logger.Warn("login limiter unavailable", zap.Error(err))
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.recordFailure(ctx, email)
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil || !user.IsActive {
		s.recordFailure(ctx, email)
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	if err := s.limiter.Reset(ctx, email); err != nil {
		s.logger.Warn("login limiter reset failed", zap.Error(err))
	}
	return s.issue(user)
}

func (s *AuthService) recordFailure(ctx context.Context, email string) {
	if err := s.limiter.RecordFailure(ctx, email); err != nil {
		s.logger.Warn("login limiter record failed", zap.Error(err))
	}
}

func (s *AuthService) issue(user *domain.User) (*Session, error) {
	token, exp, err := s.tokens.Issue(domain.Identity{
		SubjectID: user.ID,
		Email:     user.Email,
		Role:      user.Role,
	})
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: exp}, nil
}

// hashPassword reports an over-long password against field.
func (s *AuthService) hashPassword(password, field string) (string, error) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", apperrors.NewValidationError(
			fmt.Sprintf("%s must be at most %d bytes", field, auth.MaxPasswordBytes),
			map[string]any{field: "max_bytes"})
	}
	return hash, err
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewValidationError("current password is incorrect", map[string]any{"currentPassword": "mismatch"})
	}

	hash, err := s.hashPassword(newPassword, "newPassword")
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// UpdateProfile edits the caller's own profile fields.
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, input ProfileInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Name = strings.TrimSpace(input.Name)
	user.Phone = strings.TrimSpace(input.Phone)
	user.Address = strings.TrimSpace(input.Address)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
