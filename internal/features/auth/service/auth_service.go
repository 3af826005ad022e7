package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"parcel-tracker/internal/features/auth/domain"
	"parcel-tracker/internal/features/auth/ports"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the minimum accepted password length at registration.
const MinPasswordLength = 6

var (
	// ErrEmailTaken is returned when registering with an email already in use.
	ErrEmailTaken = domain.ErrEmailTaken
	// ErrInvalidCredentials is returned on a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAdminSignupForbidden is returned when self-registration requests the admin role.
	ErrAdminSignupForbidden = errors.New("admin self-registration is forbidden")
	// ErrValidation is returned when registration input is malformed.
	ErrValidation = errors.New("validation failed")
)

// AuthService handles registration and login.
type AuthService struct {
	users  ports.UserRepository
	tokens *TokenManager
}

// NewAuthService creates a new AuthService.
func NewAuthService(users ports.UserRepository, tokens *TokenManager) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
	}
}

// Register creates a new account. An empty role defaults to client; the admin
// role can never be self-assigned.
func (s *AuthService) Register(ctx context.Context, name, email, password, role string) (*domain.User, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", ErrValidation)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	}

	if role == "" {
		role = string(domain.RoleClient)
	}
	parsedRole, err := domain.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	if parsedRole == domain.RoleAdmin {
		return nil, ErrAdminSignupForbidden
	}

	if existing, err := s.users.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         parsedRole,
	}

	if err := s.users.Insert(ctx, user); err != nil {
		// The pre-check above races with concurrent registrations; the store's
		// unique index reports the loser here.
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to store user: %w", err)
	}

	return user, nil
}

// Login verifies credentials and returns a signed token plus the public profile.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil || user == nil {
		return "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return token, user, nil
}
