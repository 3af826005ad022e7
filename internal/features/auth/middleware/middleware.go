package middleware

import (
	"net/http"
	"strings"

	"parcel-tracker/internal/features/auth/domain"
	"parcel-tracker/internal/features/auth/ports"
	"parcel-tracker/internal/features/auth/service"

	"github.com/gofiber/fiber/v2"
)

// identityKey is the fiber.Ctx local under which the caller identity is stored.
const identityKey = "identity"

// AuthMiddleware verifies bearer tokens and enforces role membership.
type AuthMiddleware struct {
	users  ports.UserRepository
	tokens *service.TokenManager
}

// New creates a new AuthMiddleware.
func New(users ports.UserRepository, tokens *service.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{
		users:  users,
		tokens: tokens,
	}
}

// ErrorResponse represents the structure of an error response.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for debugging.
	RayID string `json:"ray_id"`
}

// RequireAuth verifies the bearer token, loads the referenced user and
// attaches the identity to the request. Blocked accounts are rejected even
// when their token is still valid.
func (m *AuthMiddleware) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rayID, ok := c.Locals("requestid").(string)
		if !ok {
			rayID = "unknown"
		}

		header := c.Get(fiber.HeaderAuthorization)
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
				Message: "missing bearer token",
				RayID:   rayID,
			})
		}

		claims, err := m.tokens.Verify(token)
		if err != nil {
			return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
				Message: "invalid token",
				RayID:   rayID,
			})
		}

		user, err := m.users.FindByID(c.Context(), claims.Subject)
		if err != nil || user == nil {
			return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
				Message: "unknown user",
				RayID:   rayID,
			})
		}

		if user.Blocked {
			return c.Status(http.StatusForbidden).JSON(ErrorResponse{
				Message: "account is blocked",
				RayID:   rayID,
			})
		}

		c.Locals(identityKey, domain.Identity{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  user.Role,
		})

		return c.Next()
	}
}

// RequireRoles permits the request only when the attached identity's role is
// in the allowed set. It must run after RequireAuth.
func (m *AuthMiddleware) RequireRoles(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rayID, ok := c.Locals("requestid").(string)
		if !ok {
			rayID = "unknown"
		}

		identity, ok := IdentityFrom(c)
		if !ok {
			return c.Status(http.StatusForbidden).JSON(ErrorResponse{
				Message: "role not allowed",
				RayID:   rayID,
			})
		}

		for _, role := range roles {
			if identity.Role == role {
				return c.Next()
			}
		}

		return c.Status(http.StatusForbidden).JSON(ErrorResponse{
			Message: "role not allowed",
			RayID:   rayID,
		})
	}
}

// IdentityFrom extracts the authenticated identity attached by RequireAuth.
func IdentityFrom(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(domain.Identity)
	return identity, ok
}
