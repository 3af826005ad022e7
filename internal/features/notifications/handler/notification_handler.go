package handler

import (
	"net/http"

	"parcel-tracker/internal/core/logger"
	"parcel-tracker/internal/features/auth/middleware"
	"parcel-tracker/internal/features/notifications/ports"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// NotificationHandler proxies read operations to the external relay so the
// presentation layer polls a single origin.
type NotificationHandler struct {
	relay ports.Relay
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(relay ports.Relay) *NotificationHandler {
	return &NotificationHandler{
		relay: relay,
	}
}

// ErrorResponse represents the structure of an error response.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for debugging.
	RayID string `json:"ray_id"`
}

// List godoc
// @Summary List the caller's notifications
// @Description Fetches the authenticated user's notifications from the relay, newest-first.
// @Tags notifications
// @Produce json
// @Success 200 {array} domain.Notification
// @Failure 502 {object} ErrorResponse
// @Router /notifications [get]
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	rayID, ok := c.Locals("requestid").(string)
	if !ok {
		rayID = "unknown"
	}

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
			Message: "not authenticated",
			RayID:   rayID,
		})
	}

	notifications, err := h.relay.ListForUser(c.Context(), identity.ID)
	if err != nil {
		logger.Get().Warn("Failed to fetch notifications",
			zap.String("user_id", identity.ID),
			zap.String("ray_id", rayID),
			zap.Error(err),
		)
		return c.Status(http.StatusBadGateway).JSON(ErrorResponse{
			Message: "notification service unavailable",
			RayID:   rayID,
		})
	}

	return c.JSON(notifications)
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} map[string]string
// @Failure 502 {object} ErrorResponse
// @Router /notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	rayID, ok := c.Locals("requestid").(string)
	if !ok {
		rayID = "unknown"
	}

	id := c.Params("id")

	if err := h.relay.MarkRead(c.Context(), id); err != nil {
		logger.Get().Warn("Failed to mark notification read",
			zap.String("notification_id", id),
			zap.String("ray_id", rayID),
			zap.Error(err),
		)
		return c.Status(http.StatusBadGateway).JSON(ErrorResponse{
			Message: "notification service unavailable",
			RayID:   rayID,
		})
	}

	return c.JSON(fiber.Map{"message": "notification marked as read"})
}
