package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"supportdesk/internal/entities"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 24 * time.Hour

type AuthUsecase struct {
	users             UserStore
	jwtSecret         []byte
	allowRegistration bool
	logger            *slog.Logger
}

func NewAuthUsecase(users UserStore, secret string, allowRegistration bool, logger *slog.Logger) *AuthUsecase {
	return &AuthUsecase{
		users:             users,
		jwtSecret:         []byte(secret),
		allowRegistration: allowRegistration,
		logger:            logger,
	}
}

func validateCredentials(username, password string) error {
	if !ValidSlug(username) {
		return fmt.Errorf("%w: username must be 1-%d letters, digits, '-' or '_'", entities.ErrInvalidInput, MaxUsernameLength)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", entities.ErrInvalidInput, MinPasswordLength)
	}
	return nil
}

// Register creates a regular user when self-registration is enabled.
func (uc *AuthUsecase) Register(ctx context.Context, username, password string) (*entities.User, error) {
	if !uc.allowRegistration {
		return nil, fmt.Errorf("registration is disabled: %w", entities.ErrForbidden)
	}
	return uc.CreateUser(ctx, username, password, entities.RoleUser)
}

// CreateUser adds an account with the given role.
func (uc *AuthUsecase) CreateUser(ctx context.Context, username, password, role string) (*entities.User, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}
	if role != entities.RoleAdmin && role != entities.RoleUser {
		return nil, fmt.Errorf("%w: unknown role %q", entities.ErrInvalidInput, role)
	}

	existing, err := uc.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("username already exists: %w", entities.ErrConflict)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         role,
		IsActive:     true,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (uc *AuthUsecase) Login(ctx context.Context, username, password string) (string, *entities.User, error) {
	user, err := uc.users.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, fmt.Errorf("invalid credentials: %w", entities.ErrUnauthorized)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("invalid credentials: %w", entities.ErrUnauthorized)
	}
	if !user.IsActive {
		return "", nil, fmt.Errorf("account disabled: %w", entities.ErrUnauthorized)
	}

	token, err := uc.IssueToken(user, time.Now())
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// IssueToken signs an HS256 token carrying user_id and role.
func (uc *AuthUsecase) IssueToken(user *entities.User, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"iat":     now.Unix(),
		"exp":     now.Add(tokenTTL).Unix(),
	})

	tokenString, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// EnsureAdmin creates the root user if it does not exist (called on startup)
func (uc *AuthUsecase) EnsureAdmin(ctx context.Context, username, password string) error {
	user, err := uc.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user != nil {
		return nil
	}
	if _, err := uc.CreateUser(ctx, username, password, entities.RoleAdmin); err != nil {
		return fmt.Errorf("create admin %q: %w", username, err)
	}
	uc.logger.Info("admin user created", "username", username)
	return nil
}

// ResetPassword replaces the password of an existing account.
func (uc *AuthUsecase) ResetPassword(ctx context.Context, username, password string) error {
	if err := validateCredentials(username, password); err != nil {
		return err
	}
	user, err := uc.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %q: %w", username, entities.ErrNotFound)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return uc.users.UpdatePassword(ctx, user.ID, string(hashed))
}

func (uc *AuthUsecase) ListUsers(ctx context.Context) ([]entities.User, error) {
	return uc.users.GetAllUsers(ctx)
}

// SetUserStatus enables or disables an account. Admins cannot disable themselves.
func (uc *AuthUsecase) SetUserStatus(ctx context.Context, actorID, userID int64, active bool) error {
	if actorID == userID && !active {
		return fmt.Errorf("%w: cannot disable your own account", entities.ErrInvalidInput)
	}
	return uc.users.UpdateUserStatus(ctx, userID, active)
}

func (uc *AuthUsecase) Stats(ctx context.Context) (entities.UserStats, error) {
	return uc.users.GetStats(ctx)
}
