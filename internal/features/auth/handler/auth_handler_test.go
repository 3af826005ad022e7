package handler

import (
	"bytes"
	"context"
	"encoding/json"
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

// mockUserRepository is an in-memory UserRepository for handler tests.
type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: map[string]*domain.User{}}
}

func (m *mockUserRepository) Insert(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
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

func setupApp() (*fiber.App, *mockUserRepository) {
	repo := newMockUserRepository()
	svc := service.NewAuthService(repo, service.NewTokenManager("test-secret", time.Hour))
	h := NewAuthHandler(svc)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "test-ray-id")
		return c.Next()
	})
	app.Post("/auth/register", h.Register)
	app.Post("/auth/login", h.Login)

	return app, repo
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

// TestAuthHandler_RegisterLogin_RoundTrip verifies the register/login scenario.
func TestAuthHandler_RegisterLogin_RoundTrip(t *testing.T) {
	app, _ := setupApp()

	resp := postJSON(t, app, "/auth/register", RegisterRequest{
		Name:     "Alice",
		Email:    "a@x.com",
		Password: "secret1",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, app, "/auth/login", LoginRequest{
		Email:    "a@x.com",
		Password: "secret1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Token string         `json:"token"`
		User  domain.Profile `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "Alice", result.User.Name)
	assert.Equal(t, domain.RoleClient, result.User.Role)
}

// TestAuthHandler_Register_AdminForbidden verifies the admin self-registration guard.
func TestAuthHandler_Register_AdminForbidden(t *testing.T) {
	app, _ := setupApp()

	resp := postJSON(t, app, "/auth/register", RegisterRequest{
		Name:     "Mallory",
		Email:    "m@x.com",
		Password: "secret1",
		Role:     "admin",
	})

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "test-ray-id", errResp.RayID)
}

// TestAuthHandler_Register_ShortPassword verifies validation mapping to 400.
func TestAuthHandler_Register_ShortPassword(t *testing.T) {
	app, _ := setupApp()

	resp := postJSON(t, app, "/auth/register", RegisterRequest{
		Name:     "Bob",
		Email:    "b@x.com",
		Password: "short",
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// TestAuthHandler_Login_BadCredentials verifies 401 on wrong password.
func TestAuthHandler_Login_BadCredentials(t *testing.T) {
	app, _ := setupApp()

	resp := postJSON(t, app, "/auth/register", RegisterRequest{
		Name:     "Alice",
		Email:    "a@x.com",
		Password: "secret1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, app, "/auth/login", LoginRequest{
		Email:    "a@x.com",
		Password: "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// TestAuthHandler_Register_MalformedBody verifies 400 on unparseable JSON.
func TestAuthHandler_Register_MalformedBody(t *testing.T) {
	app, _ := setupApp()

	req := httptest.NewRequest("POST", "/auth/register", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
