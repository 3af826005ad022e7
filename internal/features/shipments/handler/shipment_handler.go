package handler

import (
	"errors"
	"net/http"
	"time"

	"parcel-tracker/internal/core/logger"
	"parcel-tracker/internal/features/auth/middleware"
	"parcel-tracker/internal/features/shipments/domain"
	"parcel-tracker/internal/features/shipments/ports"
	"parcel-tracker/internal/features/shipments/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ShipmentHandler handles HTTP requests for the shipment lifecycle.
type ShipmentHandler struct {
	service *service.ShipmentService
}

// NewShipmentHandler creates a new ShipmentHandler.
func NewShipmentHandler(s *service.ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{
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

// fail maps service errors onto HTTP statuses with the standard error body.
func (h *ShipmentHandler) fail(c *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	msg := "Internal Server Error"

	switch {
	case errors.Is(err, domain.ErrShipmentNotFound):
		status = http.StatusNotFound
		msg = "shipment not found"
	case errors.Is(err, domain.ErrAlreadyClaimed):
		status = http.StatusConflict
		msg = err.Error()
	case errors.Is(err, domain.ErrInvalidStatus), errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
		msg = err.Error()
	default:
		logger.Get().Error("Shipment operation failed",
			zap.String("ray_id", rayID(c)),
			zap.Error(err),
		)
	}

	return c.Status(status).JSON(ErrorResponse{
		Message: msg,
		RayID:   rayID(c),
	})
}

// CreateRequest is the shipment creation payload.
type CreateRequest struct {
	SenderName       string `json:"senderName,omitempty"`
	RecipientName    string `json:"recipientName"`
	RecipientAddress string `json:"recipientAddress"`
	RecipientEmail   string `json:"recipientEmail,omitempty"`
	RecipientPhone   string `json:"recipientPhone,omitempty"`
}

// Create godoc
// @Summary Create a shipment
// @Description Creates a shipment owned by the calling client and returns its tracking code.
// @Tags shipments
// @Accept json
// @Produce json
// @Param body body CreateRequest true "Recipient details"
// @Success 201 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Router /shipments [post]
func (h *ShipmentHandler) Create(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
			Message: "not authenticated",
			RayID:   rayID(c),
		})
	}

	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}

	shipment, err := h.service.Create(c.Context(), identity, service.CreateInput{
		SenderName:       req.SenderName,
		RecipientName:    req.RecipientName,
		RecipientAddress: req.RecipientAddress,
		RecipientEmail:   req.RecipientEmail,
		RecipientPhone:   req.RecipientPhone,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message":      "shipment created",
		"trackingCode": shipment.TrackingCode,
	})
}

// TrackResponse is the public tracking view of a shipment.
type TrackResponse struct {
	Status  domain.Status        `json:"status"`
	History []domain.StatusEntry `json:"history"`
	GPS     *domain.Position     `json:"gps_position,omitempty"`
}

// Track godoc
// @Summary Track a shipment (public)
// @Tags shipments
// @Produce json
// @Param code path string true "Tracking code"
// @Success 200 {object} TrackResponse
// @Failure 404 {object} ErrorResponse
// @Router /shipments/track/{code} [get]
func (h *ShipmentHandler) Track(c *fiber.Ctx) error {
	shipment, err := h.service.Track(c.Context(), c.Params("code"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(TrackResponse{
		Status:  shipment.Status,
		History: shipment.History,
		GPS:     shipment.GPS,
	})
}

// UpdateStatusRequest is the status mutation payload.
type UpdateStatusRequest struct {
	NewStatus string           `json:"newStatus"`
	GPS       *domain.Position `json:"gpsPosition,omitempty"`
}

// UpdateStatus godoc
// @Summary Update a shipment's status
// @Description Appends one history entry, updates the status and optionally the GPS position.
// @Tags shipments
// @Accept json
// @Produce json
// @Param code path string true "Tracking code"
// @Param body body UpdateStatusRequest true "New status"
// @Success 200 {object} domain.Shipment
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /shipments/status/{code} [put]
func (h *ShipmentHandler) UpdateStatus(c *fiber.Ctx) error {
	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}

	shipment, err := h.service.UpdateStatus(c.Context(), c.Params("code"), req.NewStatus, req.GPS)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(shipment)
}

// ModifyRequest carries a partial field set; absent fields are untouched.
type ModifyRequest struct {
	SenderName       *string          `json:"senderName,omitempty"`
	RecipientName    *string          `json:"recipientName,omitempty"`
	RecipientAddress *string          `json:"recipientAddress,omitempty"`
	RecipientEmail   *string          `json:"recipientEmail,omitempty"`
	RecipientPhone   *string          `json:"recipientPhone,omitempty"`
	GPS              *domain.Position `json:"gpsPosition,omitempty"`
}

// Modify godoc
// @Summary Modify a shipment
// @Description Applies only the provided fields; sender and owner are back-filled from the caller.
// @Tags shipments
// @Accept json
// @Produce json
// @Param id path string true "Shipment ID"
// @Param body body ModifyRequest true "Fields to change"
// @Success 200 {object} domain.Shipment
// @Failure 404 {object} ErrorResponse
// @Router /shipments/{id} [put]
func (h *ShipmentHandler) Modify(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
			Message: "not authenticated",
			RayID:   rayID(c),
		})
	}

	var req ModifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}

	shipment, err := h.service.Modify(c.Context(), identity, c.Params("id"), service.ModifyInput{
		SenderName:       req.SenderName,
		RecipientName:    req.RecipientName,
		RecipientAddress: req.RecipientAddress,
		RecipientEmail:   req.RecipientEmail,
		RecipientPhone:   req.RecipientPhone,
		GPS:              req.GPS,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message":  "shipment updated",
		"shipment": shipment,
	})
}

// Delete godoc
// @Summary Delete a shipment
// @Tags shipments
// @Produce json
// @Param code path string true "Tracking code"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /shipments/{code} [delete]
func (h *ShipmentHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), c.Params("code")); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{"message": "shipment deleted"})
}

// Search godoc
// @Summary Search shipments
// @Tags shipments
// @Produce json
// @Param recipient query string false "Recipient name substring"
// @Param status query string false "Exact status"
// @Param from query string false "Creation date lower bound (YYYY-MM-DD or RFC3339)"
// @Param to query string false "Creation date upper bound (YYYY-MM-DD or RFC3339)"
// @Success 200 {array} domain.Shipment
// @Failure 400 {object} ErrorResponse
// @Router /shipments/search [get]
func (h *ShipmentHandler) Search(c *fiber.Ctx) error {
	filter := ports.SearchFilter{
		RecipientName: c.Query("recipient"),
	}

	if raw := c.Query("status"); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return h.fail(c, err)
		}
		filter.Status = &status
	}

	if raw := c.Query("from"); raw != "" {
		from, err := parseDate(raw)
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
				Message: "invalid 'from' date",
				RayID:   rayID(c),
			})
		}
		filter.From = &from
	}

	if raw := c.Query("to"); raw != "" {
		to, err := parseDate(raw)
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
				Message: "invalid 'to' date",
				RayID:   rayID(c),
			})
		}
		filter.To = &to
	}

	shipments, err := h.service.Search(c.Context(), filter)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(shipments)
}

// parseDate accepts both plain dates and RFC3339 timestamps.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// Dashboard godoc
// @Summary Shipment dashboard aggregate
// @Tags shipments
// @Produce json
// @Success 200 {object} service.DashboardStats
// @Router /shipments/dashboard [get]
func (h *ShipmentHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.service.Dashboard(c.Context())
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(stats)
}

// QRCode godoc
// @Summary Tracking QR artifact
// @Description Returns a PNG data URI encoding the public tracking URL.
// @Tags shipments
// @Produce json
// @Param code path string true "Tracking code"
// @Success 200 {object} map[string]string
// @Router /shipments/qrcode/{code} [get]
func (h *ShipmentHandler) QRCode(c *fiber.Ctx) error {
	dataURI, err := h.service.TrackingQR(c.Params("code"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{"qrCode": dataURI})
}

// ListForClient godoc
// @Summary List a client's shipments
// @Tags shipments
// @Produce json
// @Param id path string true "Client ID"
// @Success 200 {array} domain.Shipment
// @Router /shipments/client/{id} [get]
func (h *ShipmentHandler) ListForClient(c *fiber.Ctx) error {
	shipments, err := h.service.ListForClient(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(shipments)
}

// ListForCourier godoc
// @Summary List shipments available to or assigned to the calling courier
// @Tags shipments
// @Produce json
// @Success 200 {array} domain.Shipment
// @Router /shipments/courier [get]
func (h *ShipmentHandler) ListForCourier(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
			Message: "not authenticated",
			RayID:   rayID(c),
		})
	}

	shipments, err := h.service.ListForCourier(c.Context(), identity.ID)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(shipments)
}

// ClaimRequest is the courier accept/decline payload.
type ClaimRequest struct {
	Accept bool `json:"accept"`
}

// Claim godoc
// @Summary Claim or decline a shipment
// @Description Accepting assigns the calling courier atomically; the first claim wins.
// @Tags shipments
// @Accept json
// @Produce json
// @Param code path string true "Tracking code"
// @Param body body ClaimRequest true "Accept flag"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /shipments/claim/{code} [patch]
func (h *ShipmentHandler) Claim(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
			Message: "not authenticated",
			RayID:   rayID(c),
		})
	}

	var req ClaimRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}

	shipment, err := h.service.Claim(c.Context(), identity, c.Params("code"), req.Accept)
	if err != nil {
		return h.fail(c, err)
	}

	msg := "shipment declined"
	if req.Accept {
		msg = "shipment accepted"
	}

	return c.JSON(fiber.Map{
		"message":  msg,
		"shipment": shipment,
	})
}
