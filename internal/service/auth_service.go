package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"flock/internal/cache"
	"flock/internal/models"
	"flock/internal/repository"
	"flock/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// AuthService owns credentials: registration, password checks and token revocation.
type AuthService struct {
	users repository.UserRepository
	redis *redis.Client
	cost  int
	now   func() time.Time
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email     string `json:"email" validate:"required,max=255"`
	Username  string `json:"username" validate:"required,username"`
	Password  string `json:"password" validate:"required,password"`
	Firstname string `json:"firstname" validate:"required,max=255"`
	Lastname  string `json:"lastname" validate:"required,max=255"`
	Bio       string `json:"bio" validate:"max=500"`
}

// NewAuthService returns a new AuthService.
func NewAuthService(users repository.UserRepository, rdb *redis.Client) *AuthService {
	return &AuthService{
		users: users,
		redis: rdb,
		cost:  bcrypt.DefaultCost,
		now:   time.Now,
	}
}

// WithCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (s *AuthService) WithCost(cost int) *AuthService {
	s.cost = cost
	return s
}

// Register creates an account. Email and username are stored lowercased.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email, err := validation.NormalizeEmail(in.Email)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	firstname := strings.TrimSpace(in.Firstname)
	if err := validation.ValidateName("firstname", firstname); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	lastname := strings.TrimSpace(in.Lastname)
	if err := validation.ValidateName("lastname", lastname); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Email already registered")
	}
	existing, err = s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Email:     email,
		Username:  username,
		Password:  string(hash),
		Firstname: firstname,
		Lastname:  lastname,
		Bio:       in.Bio,
		IsActive:  true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks an email/password pair. Inactive accounts are Forbidden.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Incorrect email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Incorrect email or password")
	}
	if !user.IsActive {
		return nil, models.NewForbiddenError("Inactive user")
	}
	return user, nil
}

// Me returns the authenticated account.
func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, models.NewForbiddenError("Inactive user")
	}
	return user, nil
}

// EnsureActive fails Forbidden when the token's subject was deactivated and
// Unauthorized when the account no longer exists. The flag is cached briefly.
func (s *AuthService) EnsureActive(ctx context.Context, userID uint) error {
	var active bool
	err := cache.Aside(ctx, s.redis, "active_user", cache.ActiveUserKey(userID), &active, cache.ActiveUserTTL, func() error {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		active = user.IsActive
		return nil
	})
	switch {
	case models.IsCode(err, models.CodeNotFound):
		return models.NewUnauthorizedError("Invalid or expired token")
	case err != nil:
		return err
	case !active:
		return models.NewForbiddenError("Inactive user")
	}
	return nil
}

// ChangePassword requires the current password; a wrong one is a validation error.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return models.NewValidationError("Incorrect current password")
	}
	if err := validation.ValidatePassword(next); err != nil {
		return models.NewValidationError(err.Error())
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return models.NewInternalError(err)
	}
	return s.users.UpdatePassword(ctx, userID, string(hash))
}

// Revoke blacklists a token id until the token would have expired anyway.
func (s *AuthService) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return models.NewValidationError("Token has no id")
	}
	if s.redis == nil {
		return models.NewInternalError(errors.New("token blacklist unavailable"))
	}
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, cache.BlacklistKey(jti), "1", ttl).Err(); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// IsRevoked reports whether a token id was blacklisted. Without Redis nothing is revoked.
func (s *AuthService) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if s.redis == nil || jti == "" {
		return false, nil
	}
	n, err := s.redis.Exists(ctx, cache.BlacklistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
