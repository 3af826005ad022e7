package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"parcel-tracker/internal/features/admin/service"
	authdomain "parcel-tracker/internal/features/auth/domain"
	authports "parcel-tracker/internal/features/auth/ports"
	notifydomain "parcel-tracker/internal/features/notifications/domain"
	shipdomain "parcel-tracker/internal/features/shipments/domain"
	shipports "parcel-tracker/internal/features/shipments/ports"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUserRepository struct {
	users map[string]*authdomain.User
}

func (s *stubUserRepository) Insert(_ context.Context, user *authdomain.User) error {
	s.users[user.ID] = user
	return nil
}

func (s *stubUserRepository) FindByEmail(_ context.Context, email string) (*authdomain.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, authdomain.ErrUserNotFound
}

func (s *stubUserRepository) FindByID(_ context.Context, id string) (*authdomain.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, authdomain.ErrUserNotFound
}

func (s *stubUserRepository) FindAll(_ context.Context) ([]authdomain.User, error) {
	out := []authdomain.User{}
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

func (s *stubUserRepository) FindRecent(_ context.Context, _ int64) ([]authdomain.User, error) {
	return s.FindAll(context.Background())
}

func (s *stubUserRepository) Search(_ context.Context, filter authports.UserFilter) ([]authdomain.User, error) {
	out := []authdomain.User{}
	for _, u := range s.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

func (s *stubUserRepository) UpdateRole(_ context.Context, id string, role authdomain.Role) (*authdomain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, authdomain.ErrUserNotFound
	}
	u.Role = role
	return u, nil
}

func (s *stubUserRepository) UpdateBlocked(_ context.Context, id string, blocked bool) (*authdomain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, authdomain.ErrUserNotFound
	}
	u.Blocked = blocked
	return u, nil
}

func (s *stubUserRepository) UpdatePassword(_ context.Context, id string, hash string) error {
	u, ok := s.users[id]
	if !ok {
		return authdomain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s *stubUserRepository) CountByRole(_ context.Context) (map[authdomain.Role]int64, error) {
	counts := map[authdomain.Role]int64{}
	for _, u := range s.users {
		counts[u.Role]++
	}
	return counts, nil
}

func (s *stubUserRepository) CountAll(_ context.Context) (int64, error) {
	return int64(len(s.users)), nil
}

type stubShipmentRepository struct {
	shipments map[string]*shipdomain.Shipment
}

func (s *stubShipmentRepository) Insert(_ context.Context, shipment *shipdomain.Shipment) error {
	s.shipments[shipment.ID] = shipment
	return nil
}

func (s *stubShipmentRepository) FindByCode(_ context.Context, _ string) (*shipdomain.Shipment, error) {
	return nil, shipdomain.ErrShipmentNotFound
}

func (s *stubShipmentRepository) FindByID(_ context.Context, id string) (*shipdomain.Shipment, error) {
	if sh, ok := s.shipments[id]; ok {
		return sh, nil
	}
	return nil, shipdomain.ErrShipmentNotFound
}

func (s *stubShipmentRepository) AppendStatus(_ context.Context, _ string, _ shipdomain.StatusEntry, _ *shipdomain.Position) (*shipdomain.Shipment, error) {
	return nil, shipdomain.ErrShipmentNotFound
}

func (s *stubShipmentRepository) Update(_ context.Context, _ *shipdomain.Shipment) error { return nil }

func (s *stubShipmentRepository) DeleteByCode(_ context.Context, _ string) error {
	return shipdomain.ErrShipmentNotFound
}

func (s *stubShipmentRepository) DeleteByID(_ context.Context, id string) error {
	if _, ok := s.shipments[id]; !ok {
		return shipdomain.ErrShipmentNotFound
	}
	delete(s.shipments, id)
	return nil
}

func (s *stubShipmentRepository) FindAll(_ context.Context) ([]shipdomain.Shipment, error) {
	out := []shipdomain.Shipment{}
	for _, sh := range s.shipments {
		out = append(out, *sh)
	}
	return out, nil
}

func (s *stubShipmentRepository) Search(_ context.Context, _ shipports.SearchFilter) ([]shipdomain.Shipment, error) {
	return s.FindAll(context.Background())
}

func (s *stubShipmentRepository) FindByClient(_ context.Context, clientID string) ([]shipdomain.Shipment, error) {
	out := []shipdomain.Shipment{}
	for _, sh := range s.shipments {
		if sh.ClientID == clientID {
			out = append(out, *sh)
		}
	}
	return out, nil
}

func (s *stubShipmentRepository) FindForCourier(_ context.Context, _ string) ([]shipdomain.Shipment, error) {
	return nil, nil
}

func (s *stubShipmentRepository) Claim(_ context.Context, _, _ string, _ shipdomain.StatusEntry) (*shipdomain.Shipment, error) {
	return nil, shipdomain.ErrShipmentNotFound
}

func (s *stubShipmentRepository) CountAll(_ context.Context) (int64, error) {
	return int64(len(s.shipments)), nil
}

func (s *stubShipmentRepository) CountByStatus(_ context.Context) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, sh := range s.shipments {
		counts[string(sh.Status)]++
	}
	return counts, nil
}

func (s *stubShipmentRepository) FindRecent(_ context.Context, _ int64) ([]shipdomain.Shipment, error) {
	return s.FindAll(context.Background())
}

func (s *stubShipmentRepository) CountPerDay(_ context.Context) ([]shipports.DayCount, error) {
	return []shipports.DayCount{}, nil
}

// stubRelay counts system broadcasts and can be forced to fail.
type stubRelay struct {
	systemMessages []string
	failSystem     bool
}

func (s *stubRelay) NotifyUser(_ context.Context, _, _, _ string) error { return nil }
func (s *stubRelay) NotifyRole(_ context.Context, _, _, _ string) error { return nil }

func (s *stubRelay) NotifySystem(_ context.Context, message string) error {
	if s.failSystem {
		return errors.New("relay down")
	}
	s.systemMessages = append(s.systemMessages, message)
	return nil
}

func (s *stubRelay) ListForUser(_ context.Context, _ string) ([]notifydomain.Notification, error) {
	return nil, nil
}

func (s *stubRelay) MarkRead(_ context.Context, _ string) error { return nil }

func setupApp(relay *stubRelay) (*fiber.App, *stubUserRepository, *stubShipmentRepository) {
	users := &stubUserRepository{users: map[string]*authdomain.User{}}
	shipments := &stubShipmentRepository{shipments: map[string]*shipdomain.Shipment{}}
	h := NewAdminHandler(service.NewAdminService(users, shipments, relay))

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "test-ray-id")
		return c.Next()
	})

	app.Get("/admin/users", h.ListUsers)
	app.Get("/admin/users/search", h.SearchUsers)
	app.Get("/admin/users/:id", h.GetUser)
	app.Patch("/admin/users/:id/block", h.SetBlocked)
	app.Patch("/admin/users/:id/role", h.ReassignRole)
	app.Post("/admin/users/:id/password", h.ResetPassword)
	app.Get("/admin/users/:id/shipments", h.UserShipments)
	app.Get("/admin/shipments", h.ListShipments)
	app.Delete("/admin/shipments/:id", h.DeleteShipment)
	app.Post("/admin/announce", h.Announce)
	app.Get("/admin/stats", h.Stats)

	return app, users, shipments
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) *http.Response {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

// TestAdminHandler_ListUsers verifies profiles hide password hashes.
func TestAdminHandler_ListUsers(t *testing.T) {
	app, users, _ := setupApp(&stubRelay{})
	users.users["u1"] = &authdomain.User{ID: "u1", Name: "Ana", PasswordHash: "secret-hash"}

	resp := doJSON(t, app, "GET", "/admin/users", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.Len(t, result, 1)
	assert.Equal(t, "Ana", result[0]["name"])
	assert.NotContains(t, result[0], "passwordHash")
}

// TestAdminHandler_GetUser_NotFound verifies 404 with the standard error body.
func TestAdminHandler_GetUser_NotFound(t *testing.T) {
	app, _, _ := setupApp(&stubRelay{})

	resp := doJSON(t, app, "GET", "/admin/users/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "test-ray-id", errResp.RayID)
}

// TestAdminHandler_SetBlocked verifies the block round trip.
func TestAdminHandler_SetBlocked(t *testing.T) {
	app, users, _ := setupApp(&stubRelay{})
	users.users["u1"] = &authdomain.User{ID: "u1"}

	resp := doJSON(t, app, "PATCH", "/admin/users/u1/block", BlockRequest{Blocked: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, users.users["u1"].Blocked)

	resp = doJSON(t, app, "PATCH", "/admin/users/u1/block", BlockRequest{Blocked: false})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, users.users["u1"].Blocked)
}

// TestAdminHandler_ReassignRole_Invalid verifies 400 on an unknown role.
func TestAdminHandler_ReassignRole_Invalid(t *testing.T) {
	app, users, _ := setupApp(&stubRelay{})
	users.users["u1"] = &authdomain.User{ID: "u1", Role: authdomain.RoleClient}

	resp := doJSON(t, app, "PATCH", "/admin/users/u1/role", RoleRequest{Role: "superuser"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, "PATCH", "/admin/users/u1/role", RoleRequest{Role: "courier"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, authdomain.RoleCourier, users.users["u1"].Role)
}

// TestAdminHandler_ResetPassword verifies the temporary password is returned once.
func TestAdminHandler_ResetPassword(t *testing.T) {
	app, users, _ := setupApp(&stubRelay{})
	users.users["u1"] = &authdomain.User{ID: "u1", PasswordHash: "old"}

	resp := doJSON(t, app, "POST", "/admin/users/u1/password", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		TemporaryPassword string `json:"temporaryPassword"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Len(t, result.TemporaryPassword, 8)
	assert.NotEqual(t, "old", users.users["u1"].PasswordHash)
}

// TestAdminHandler_DeleteShipment verifies removal by internal id.
func TestAdminHandler_DeleteShipment(t *testing.T) {
	app, _, shipments := setupApp(&stubRelay{})
	shipments.shipments["s1"] = &shipdomain.Shipment{ID: "s1", TrackingCode: "code-1"}

	resp := doJSON(t, app, "DELETE", "/admin/shipments/s1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, shipments.shipments)

	resp = doJSON(t, app, "DELETE", "/admin/shipments/s1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// TestAdminHandler_Announce verifies the broadcast path and its failure mapping.
func TestAdminHandler_Announce(t *testing.T) {
	relay := &stubRelay{}
	app, _, _ := setupApp(relay)

	resp := doJSON(t, app, "POST", "/admin/announce", AnnounceRequest{Message: "maintenance"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, relay.systemMessages, 1)
	assert.Equal(t, "maintenance", relay.systemMessages[0])

	resp = doJSON(t, app, "POST", "/admin/announce", AnnounceRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// TestAdminHandler_Announce_RelayDown verifies 502 when the relay fails.
func TestAdminHandler_Announce_RelayDown(t *testing.T) {
	app, _, _ := setupApp(&stubRelay{failSystem: true})

	resp := doJSON(t, app, "POST", "/admin/announce", AnnounceRequest{Message: "maintenance"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

// TestAdminHandler_Stats verifies the aggregate response shape.
func TestAdminHandler_Stats(t *testing.T) {
	app, users, shipments := setupApp(&stubRelay{})
	users.users["u1"] = &authdomain.User{ID: "u1", Role: authdomain.RoleClient}
	shipments.shipments["s1"] = &shipdomain.Shipment{ID: "s1", Status: shipdomain.StatusCreated}

	resp := doJSON(t, app, "GET", "/admin/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats service.Dashboard
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, int64(1), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.TotalShipments)
	assert.Equal(t, int64(1), stats.ShipmentsByStatus[string(shipdomain.StatusCreated)])
}
