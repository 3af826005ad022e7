package domain

import (
	"errors"
	"time"
)

// Role represents the access level of a user account.
type Role string

const (
	// RoleAdmin can manage users and all shipments.
	RoleAdmin Role = "admin"
	// RoleClient creates and owns shipments.
	RoleClient Role = "client"
	// RoleCourier claims and delivers shipments.
	RoleCourier Role = "courier"
)

var (
	// ErrInvalidRole is returned when a role string is outside the known set.
	ErrInvalidRole = errors.New("invalid role")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when the unique email constraint is violated.
	ErrEmailTaken = errors.New("email already in use")
)

// ParseRole validates a role string at the boundary. The persisted record
// keeps the plain string for forward compatibility.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleClient, RoleCourier:
		return Role(s), nil
	}
	return "", ErrInvalidRole
}

// User represents a registered account.
type User struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	Role         Role      `bson:"role" json:"role"`
	Blocked      bool      `bson:"blocked" json:"blocked"`
	CreatedAt    time.Time `bson:"createdAt" json:"created_at"`
}

// Profile is the public view of a user, safe to return to callers.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Public returns the user's public profile.
func (u *User) Public() Profile {
	return Profile{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}
