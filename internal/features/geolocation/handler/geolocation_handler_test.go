package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	authdomain "parcel-tracker/internal/features/auth/domain"
	"parcel-tracker/internal/features/geolocation/adapters"
	"parcel-tracker/internal/features/geolocation/domain"
	"parcel-tracker/internal/features/geolocation/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCourier = authdomain.Identity{
	ID:   "courier-1",
	Name: "Luis Prieto",
	Role: authdomain.RoleCourier,
}

func setupApp(t *testing.T, identity authdomain.Identity) *fiber.App {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := adapters.NewRedisPositionStore("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewGeolocationHandler(service.NewGeolocationService(store))

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "test-ray-id")
		if identity.ID != "" {
			c.Locals("identity", identity)
		}
		return c.Next()
	})
	app.Post("/geolocation", h.Report)
	app.Get("/geolocation/:id", h.Latest)
	app.Get("/geolocation/:id/trail", h.Trail)

	return app
}

func report(t *testing.T, app *fiber.App, lat, lng float64) *http.Response {
	t.Helper()

	payload, err := json.Marshal(ReportRequest{Latitude: lat, Longitude: lng})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/geolocation", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

// TestGeolocationHandler_ReportAndLatest verifies the report/latest round trip.
func TestGeolocationHandler_ReportAndLatest(t *testing.T) {
	app := setupApp(t, testCourier)

	resp := report(t, app, 4.711, -74.072)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req := httptest.NewRequest("GET", "/geolocation/courier-1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var position domain.CourierPosition
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&position))
	assert.Equal(t, "courier-1", position.CourierID)
	assert.Equal(t, 4.711, position.Latitude)
}

// TestGeolocationHandler_Report_Unauthenticated verifies 401 without an identity.
func TestGeolocationHandler_Report_Unauthenticated(t *testing.T) {
	app := setupApp(t, authdomain.Identity{})

	resp := report(t, app, 4.711, -74.072)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// TestGeolocationHandler_Report_BadCoordinates verifies 400 on out-of-range input.
func TestGeolocationHandler_Report_BadCoordinates(t *testing.T) {
	app := setupApp(t, testCourier)

	resp := report(t, app, 120, 0)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// TestGeolocationHandler_Latest_NotFound verifies 404 for an unknown courier.
func TestGeolocationHandler_Latest_NotFound(t *testing.T) {
	app := setupApp(t, testCourier)

	req := httptest.NewRequest("GET", "/geolocation/ghost", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "test-ray-id", errResp.RayID)
}

// TestGeolocationHandler_Trail verifies trail ordering over HTTP.
func TestGeolocationHandler_Trail(t *testing.T) {
	app := setupApp(t, testCourier)

	require.Equal(t, http.StatusOK, report(t, app, 1, 1).StatusCode)
	require.Equal(t, http.StatusOK, report(t, app, 2, 2).StatusCode)

	req := httptest.NewRequest("GET", "/geolocation/courier-1/trail", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var trail []domain.CourierPosition
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&trail))
	require.Len(t, trail, 2)
	assert.Equal(t, float64(2), trail[0].Latitude)
}
