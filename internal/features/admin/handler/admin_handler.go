package handler

import (
	"errors"
	"net/http"

	"parcel-tracker/internal/core/logger"
	"parcel-tracker/internal/features/admin/service"
	authdomain "parcel-tracker/internal/features/auth/domain"
	authports "parcel-tracker/internal/features/auth/ports"
	shipdomain "parcel-tracker/internal/features/shipments/domain"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdminHandler handles HTTP requests for operator user management and
// monitoring.
type AdminHandler struct {
	service *service.AdminService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(s *service.AdminService) *AdminHandler {
	return &AdminHandler{
		service: s,
	}
}

// ErrorResponse represents the structure of an error response.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for debugging.
	RayID string `json:"ray_id"`
}

func rayID(c *fiber.Ctx) string {
	id, ok := c.Locals("requestid").(string)
	if !ok {
		return "unknown"
	}
	return id
}

func (h *AdminHandler) fail(c *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	msg := "Internal Server Error"

	switch {
	case errors.Is(err, authdomain.ErrUserNotFound):
		status = http.StatusNotFound
		msg = "user not found"
	case errors.Is(err, shipdomain.ErrShipmentNotFound):
		status = http.StatusNotFound
		msg = "shipment not found"
	case errors.Is(err, authdomain.ErrInvalidRole):
		status = http.StatusBadRequest
		msg = err.Error()
	default:
		logger.Get().Error("Admin operation failed",
			zap.String("ray_id", rayID(c)),
			zap.Error(err),
		)
	}

	return c.Status(status).JSON(ErrorResponse{
		Message: msg,
		RayID:   rayID(c),
	})
}

// ListUsers godoc
// @Summary List all users
// @Tags admin
// @Produce json
// @Success 200 {array} authdomain.Profile
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.service.ListUsers(c.Context())
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(profiles(users))
}

// GetUser godoc
// @Summary Fetch a single user
// @Tags admin
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} authdomain.Profile
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id} [get]
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.service.GetUser(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(user.Public())
}

// SearchUsers godoc
// @Summary Search users
// @Tags admin
// @Produce json
// @Param name query string false "Name substring"
// @Param email query string false "Email substring"
// @Param role query string false "Exact role"
// @Param blocked query bool false "Blocked flag"
// @Success 200 {array} authdomain.Profile
// @Failure 400 {object} ErrorResponse
// @Router /admin/users/search [get]
func (h *AdminHandler) SearchUsers(c *fiber.Ctx) error {
	filter := authports.UserFilter{
		Name:  c.Query("name"),
		Email: c.Query("email"),
	}

	if raw := c.Query("role"); raw != "" {
		role, err := authdomain.ParseRole(raw)
		if err != nil {
			return h.fail(c, err)
		}
		filter.Role = &role
	}

	if raw := c.Query("blocked"); raw != "" {
		blocked := raw == "true"
		filter.Blocked = &blocked
	}

	users, err := h.service.SearchUsers(c.Context(), filter)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(profiles(users))
}

func profiles(users []authdomain.User) []authdomain.Profile {
	out := make([]authdomain.Profile, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out
}

// BlockRequest toggles the blocked flag of an account.
type BlockRequest struct {
	Blocked bool `json:"blocked"`
}

// SetBlocked godoc
// @Summary Block or unblock a user
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param body body BlockRequest true "Blocked flag"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id}/block [patch]
func (h *AdminHandler) SetBlocked(c *fiber.Ctx) error {
	var req BlockRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}

	user, err := h.service.SetBlocked(c.Context(), c.Params("id"), req.Blocked)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "user updated",
		"blocked": user.Blocked,
	})
}

// RoleRequest reassigns a user's role.
type RoleRequest struct {
	Role string `json:"role"`
}

// ReassignRole godoc
// @Summary Change a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param body body RoleRequest true "New role"
// @Success 200 {object} authdomain.Profile
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id}/role [patch]
func (h *AdminHandler) ReassignRole(c *fiber.Ctx) error {
	var req RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}

	user, err := h.service.ReassignRole(c.Context(), c.Params("id"), req.Role)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(user.Public())
}

// ResetPassword godoc
// @Summary Reset a user's password
// @Description Generates a temporary password returned once in the response.
// @Tags admin
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id}/password [post]
func (h *AdminHandler) ResetPassword(c *fiber.Ctx) error {
	plaintext, err := h.service.ResetPassword(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message":           "password reset",
		"temporaryPassword": plaintext,
	})
}

// UserShipments godoc
// @Summary List shipments owned by a user
// @Tags admin
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {array} shipdomain.Shipment
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id}/shipments [get]
func (h *AdminHandler) UserShipments(c *fiber.Ctx) error {
	shipments, err := h.service.UserShipments(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(shipments)
}

// ListShipments godoc
// @Summary List all shipments
// @Tags admin
// @Produce json
// @Success 200 {array} shipdomain.Shipment
// @Router /admin/shipments [get]
func (h *AdminHandler) ListShipments(c *fiber.Ctx) error {
	shipments, err := h.service.ListShipments(c.Context())
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(shipments)
}

// DeleteShipment godoc
// @Summary Delete a shipment by internal id
// @Tags admin
// @Produce json
// @Param id path string true "Shipment ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /admin/shipments/{id} [delete]
func (h *AdminHandler) DeleteShipment(c *fiber.Ctx) error {
	if err := h.service.DeleteShipment(c.Context(), c.Params("id")); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{"message": "shipment deleted"})
}

// AnnounceRequest is a system-wide broadcast payload.
type AnnounceRequest struct {
	Message string `json:"message"`
}

// Announce godoc
// @Summary Broadcast a system announcement
// @Tags admin
// @Accept json
// @Produce json
// @Param body body AnnounceRequest true "Announcement"
// @Success 200 {object} map[string]string
// @Failure 502 {object} ErrorResponse
// @Router /admin/announce [post]
func (h *AdminHandler) Announce(c *fiber.Ctx) error {
	var req AnnounceRequest
	if err := c.BodyParser(&req); err != nil || req.Message == "" {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "message is required",
			RayID:   rayID(c),
		})
	}

	if err := h.service.Announce(c.Context(), req.Message); err != nil {
		logger.Get().Error("Announcement relay failed",
			zap.String("ray_id", rayID(c)),
			zap.Error(err),
		)
		return c.Status(http.StatusBadGateway).JSON(ErrorResponse{
			Message: "notification relay unavailable",
			RayID:   rayID(c),
		})
	}

	return c.JSON(fiber.Map{"message": "announcement sent"})
}

// Stats godoc
// @Summary Operator dashboard aggregate
// @Tags admin
// @Produce json
// @Success 200 {object} service.Dashboard
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context())
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(stats)
}
