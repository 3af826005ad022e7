package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parcel-tracker/internal/features/auth/domain"
	"parcel-tracker/internal/features/auth/ports"
	"parcel-tracker/internal/features/auth/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockUserRepository is a minimal UserRepository for middleware tests.
type mockUserRepository struct {
	users map[string]*domain.User
}

func (m *mockUserRepository) Insert(ctx context.Context, user *domain.User) error { return nil }

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepository) FindAll(ctx context.Context) ([]domain.User, error) { return nil, nil }

func (m *mockUserRepository) FindRecent(ctx context.Context, limit int64) ([]domain.User, error) {
	return nil, nil
}

func (m *mockUserRepository) Search(ctx context.Context, filter ports.UserFilter) ([]domain.User, error) {
	return nil, nil
}

func (m *mockUserRepository) UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepository) UpdateBlocked(ctx context.Context, id string, blocked bool) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	return nil
}

func (m *mockUserRepository) CountByRole(ctx context.Context) (map[domain.Role]int64, error) {
	return nil, nil
}

func (m *mockUserRepository) CountAll(ctx context.Context) (int64, error) { return 0, nil }

func setupApp(t *testing.T, users map[string]*domain.User, roles ...domain.Role) (*fiber.App, *service.TokenManager) {
	t.Helper()

	tokens := service.NewTokenManager("test-secret", time.Hour)
	mw := New(&mockUserRepository{users: users}, tokens)

	app := fiber.New()
	handlers := []fiber.Handler{mw.RequireAuth()}
	if len(roles) > 0 {
		handlers = append(handlers, mw.RequireRoles(roles...))
	}
	handlers = append(handlers, func(c *fiber.Ctx) error {
		identity, _ := IdentityFrom(c)
		return c.JSON(identity)
	})
	app.Get("/protected", handlers...)

	return app, tokens
}

// TestRequireAuth_MissingToken verifies rejection without a bearer token.
func TestRequireAuth_MissingToken(t *testing.T) {
	app, _ := setupApp(t, nil)

	req := httptest.NewRequest("GET", "/protected", nil)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// TestRequireAuth_InvalidToken verifies rejection of a malformed token.
func TestRequireAuth_InvalidToken(t *testing.T) {
	app, _ := setupApp(t, nil)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// TestRequireAuth_UnknownUser verifies rejection when the user no longer exists.
func TestRequireAuth_UnknownUser(t *testing.T) {
	app, tokens := setupApp(t, map[string]*domain.User{})

	token, err := tokens.Issue(&domain.User{ID: "ghost", Role: domain.RoleClient})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// TestRequireAuth_BlockedUser verifies that blocked accounts get Forbidden
// even with a previously valid token.
func TestRequireAuth_BlockedUser(t *testing.T) {
	user := &domain.User{ID: "u1", Email: "a@x.com", Role: domain.RoleClient, Blocked: true}
	app, tokens := setupApp(t, map[string]*domain.User{"u1": user})

	token, err := tokens.Issue(user)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// TestRequireAuth_Success verifies that a valid token attaches the identity.
func TestRequireAuth_Success(t *testing.T) {
	user := &domain.User{ID: "u1", Name: "Alice", Email: "a@x.com", Role: domain.RoleClient}
	app, tokens := setupApp(t, map[string]*domain.User{"u1": user})

	token, err := tokens.Issue(user)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestRequireRoles_Denied verifies role gate rejection.
func TestRequireRoles_Denied(t *testing.T) {
	user := &domain.User{ID: "u1", Role: domain.RoleClient}
	app, tokens := setupApp(t, map[string]*domain.User{"u1": user}, domain.RoleAdmin)

	token, err := tokens.Issue(user)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// TestRequireRoles_Allowed verifies role gate acceptance for any allowed role.
func TestRequireRoles_Allowed(t *testing.T) {
	user := &domain.User{ID: "u1", Role: domain.RoleCourier}
	app, tokens := setupApp(t, map[string]*domain.User{"u1": user}, domain.RoleAdmin, domain.RoleCourier)

	token, err := tokens.Issue(user)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
