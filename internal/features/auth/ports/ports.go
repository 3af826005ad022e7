package ports

import (
	"context"

	"parcel-tracker/internal/features/auth/domain"
)

// UserFilter narrows admin user searches. Zero-valued fields are ignored.
type UserFilter struct {
	// Name matches as a case-insensitive substring.
	Name string
	// Email matches as a case-insensitive substring.
	Email string
	// Role matches exactly when set.
	Role *domain.Role
	// Blocked matches exactly when set.
	Blocked *bool
}

// UserRepository defines the secondary port for user storage.
type UserRepository interface {
	// Insert stores a new user. Returns ErrEmailTaken when the unique email
	// constraint is violated.
	Insert(ctx context.Context, user *domain.User) error

	// FindByEmail returns the user with the given email, or ErrUserNotFound.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindByID returns the user with the given id, or ErrUserNotFound.
	FindByID(ctx context.Context, id string) (*domain.User, error)

	// FindAll returns every user.
	FindAll(ctx context.Context) ([]domain.User, error)

	// FindRecent returns the newest users, newest-first.
	FindRecent(ctx context.Context, limit int64) ([]domain.User, error)

	// Search returns users matching the filter.
	Search(ctx context.Context, filter UserFilter) ([]domain.User, error)

	// UpdateRole reassigns a user's role and returns the updated user.
	UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error)

	// UpdateBlocked sets the blocked flag and returns the updated user.
	UpdateBlocked(ctx context.Context, id string, blocked bool) (*domain.User, error)

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id string, passwordHash string) error

	// CountByRole returns user counts grouped by role.
	CountByRole(ctx context.Context) (map[domain.Role]int64, error)

	// CountAll returns the total number of users.
	CountAll(ctx context.Context) (int64, error)
}
