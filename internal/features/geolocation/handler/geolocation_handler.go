package handler

import (
	"errors"
	"net/http"

	"parcel-tracker/internal/core/logger"
	"parcel-tracker/internal/features/auth/middleware"
	"parcel-tracker/internal/features/geolocation/domain"
	"parcel-tracker/internal/features/geolocation/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// GeolocationHandler handles HTTP requests for courier GPS reporting.
type GeolocationHandler struct {
	service *service.GeolocationService
}

// NewGeolocationHandler creates a new GeolocationHandler.
func NewGeolocationHandler(s *service.GeolocationService) *GeolocationHandler {
	return &GeolocationHandler{
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

func (h *GeolocationHandler) fail(c *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	msg := "Internal Server Error"

	switch {
	case errors.Is(err, domain.ErrPositionNotFound):
		status = http.StatusNotFound
		msg = "no position recorded"
	case errors.Is(err, domain.ErrInvalidCoordinates):
		status = http.StatusBadRequest
		msg = err.Error()
	default:
		logger.Get().Error("Geolocation operation failed",
			zap.String("ray_id", rayID(c)),
			zap.Error(err),
		)
	}

	return c.Status(status).JSON(ErrorResponse{
		Message: msg,
		RayID:   rayID(c),
	})
}

// ReportRequest is a courier's GPS report payload.
type ReportRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Report godoc
// @Summary Report the calling courier's position
// @Tags geolocation
// @Accept json
// @Produce json
// @Param body body ReportRequest true "Coordinates"
// @Success 200 {object} domain.CourierPosition
// @Failure 400 {object} ErrorResponse
// @Router /geolocation [post]
func (h *GeolocationHandler) Report(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
			Message: "not authenticated",
			RayID:   rayID(c),
		})
	}

	var req ReportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}

	position, err := h.service.Report(c.Context(), identity.ID, req.Latitude, req.Longitude)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(position)
}

// Latest godoc
// @Summary Latest known position of a courier
// @Tags geolocation
// @Produce json
// @Param id path string true "Courier ID"
// @Success 200 {object} domain.CourierPosition
// @Failure 404 {object} ErrorResponse
// @Router /geolocation/{id} [get]
func (h *GeolocationHandler) Latest(c *fiber.Ctx) error {
	position, err := h.service.Latest(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(position)
}

// Trail godoc
// @Summary Recent position trail of a courier
// @Tags geolocation
// @Produce json
// @Param id path string true "Courier ID"
// @Success 200 {array} domain.CourierPosition
// @Router /geolocation/{id}/trail [get]
func (h *GeolocationHandler) Trail(c *fiber.Ctx) error {
	trail, err := h.service.Trail(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(trail)
}
