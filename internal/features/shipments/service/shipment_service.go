package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"parcel-tracker/internal/core/logger"
	authdomain "parcel-tracker/internal/features/auth/domain"
	notifyports "parcel-tracker/internal/features/notifications/ports"
	"parcel-tracker/internal/features/shipments/domain"
	"parcel-tracker/internal/features/shipments/ports"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// ErrValidation is returned when shipment input is malformed.
var ErrValidation = errors.New("validation failed")

// recentLimit is how many shipments the dashboard aggregate returns.
const recentLimit = 5

// ShipmentService implements the shipment lifecycle: creation, tracking,
// status transitions, courier claims and deletion. Notifications after
// successful mutations are dispatched detached and never fail the primary
// operation.
type ShipmentService struct {
	shipments     ports.ShipmentRepository
	relay         notifyports.Relay
	publicBaseURL string
	notifyTimeout time.Duration
}

// NewShipmentService creates a new ShipmentService. publicBaseURL is used to
// derive the public tracking link encoded in QR artifacts.
func NewShipmentService(shipments ports.ShipmentRepository, relay notifyports.Relay, publicBaseURL string) *ShipmentService {
	return &ShipmentService{
		shipments:     shipments,
		relay:         relay,
		publicBaseURL: publicBaseURL,
		notifyTimeout: 5 * time.Second,
	}
}

// dispatch runs a relay call detached from the request. Failures are logged
// and swallowed: notifications are best-effort.
func (s *ShipmentService) dispatch(fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			logger.Get().Warn("Notification dispatch failed", zap.Error(err))
		}
	}()
}

// CreateInput carries the recipient/sender details for a new shipment.
type CreateInput struct {
	SenderName       string
	RecipientName    string
	RecipientAddress string
	RecipientEmail   string
	RecipientPhone   string
}

// Create persists a new shipment owned by the caller with a freshly generated
// tracking code and a single Created history entry, then notifies the owner.
func (s *ShipmentService) Create(ctx context.Context, caller authdomain.Identity, in CreateInput) (*domain.Shipment, error) {
	if in.RecipientName == "" {
		return nil, fmt.Errorf("%w: recipient name is required", ErrValidation)
	}
	if in.RecipientAddress == "" {
		return nil, fmt.Errorf("%w: recipient address is required", ErrValidation)
	}

	senderName := in.SenderName
	if senderName == "" {
		senderName = caller.Name
	}

	now := time.Now().UTC()
	shipment := &domain.Shipment{
		TrackingCode:     uuid.NewString(),
		SenderName:       senderName,
		RecipientName:    in.RecipientName,
		RecipientAddress: in.RecipientAddress,
		RecipientEmail:   in.RecipientEmail,
		RecipientPhone:   in.RecipientPhone,
		Status:           domain.StatusCreated,
		History:          []domain.StatusEntry{{Status: domain.StatusCreated, Date: now}},
		ClientID:         caller.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.shipments.Insert(ctx, shipment); err != nil {
		return nil, fmt.Errorf("failed to store shipment: %w", err)
	}

	s.dispatch(func(ctx context.Context) error {
		msg := fmt.Sprintf("Shipment %s created", shipment.TrackingCode)
		return s.relay.NotifyUser(ctx, shipment.ClientID, msg, shipment.ID)
	})

	return shipment, nil
}

// Track returns the shipment for a tracking code. Public: no identity required.
func (s *ShipmentService) Track(ctx context.Context, code string) (*domain.Shipment, error) {
	return s.shipments.FindByCode(ctx, code)
}

// UpdateStatus appends exactly one history entry, updates the current status
// and optionally the GPS position. The owner is notified; when the shipment
// goes out for delivery, couriers are additionally notified as a role
// broadcast.
func (s *ShipmentService) UpdateStatus(ctx context.Context, code, newStatus string, gps *domain.Position) (*domain.Shipment, error) {
	status, err := domain.ParseStatus(newStatus)
	if err != nil {
		return nil, err
	}

	entry := domain.StatusEntry{Status: status, Date: time.Now().UTC()}
	shipment, err := s.shipments.AppendStatus(ctx, code, entry, gps)
	if err != nil {
		return nil, err
	}

	s.dispatch(func(ctx context.Context) error {
		msg := fmt.Sprintf("Shipment %s is now %q", shipment.TrackingCode, status)
		return s.relay.NotifyUser(ctx, shipment.ClientID, msg, shipment.ID)
	})

	if status == domain.StatusInDelivery {
		s.dispatch(func(ctx context.Context) error {
			msg := fmt.Sprintf("Shipment %s is out for delivery", shipment.TrackingCode)
			return s.relay.NotifyRole(ctx, string(authdomain.RoleCourier), msg, shipment.ID)
		})
	}

	return shipment, nil
}

// Delete removes the shipment permanently and notifies its owner.
func (s *ShipmentService) Delete(ctx context.Context, code string) error {
	shipment, err := s.shipments.FindByCode(ctx, code)
	if err != nil {
		return err
	}

	if err := s.shipments.DeleteByCode(ctx, code); err != nil {
		return err
	}

	s.dispatch(func(ctx context.Context) error {
		msg := fmt.Sprintf("Shipment %s was deleted", shipment.TrackingCode)
		return s.relay.NotifyUser(ctx, shipment.ClientID, msg, shipment.ID)
	})

	return nil
}

// Search returns shipments matching the filter, newest-first. The result set
// is unbounded.
func (s *ShipmentService) Search(ctx context.Context, filter ports.SearchFilter) ([]domain.Shipment, error) {
	return s.shipments.Search(ctx, filter)
}

// ModifyInput carries a partial field set; nil fields are left untouched.
type ModifyInput struct {
	SenderName       *string
	RecipientName    *string
	RecipientAddress *string
	RecipientEmail   *string
	RecipientPhone   *string
	GPS              *domain.Position
}

// Modify applies only the fields present in the input. Sender name and owning
// client are back-filled from the caller when missing. The owner is notified.
func (s *ShipmentService) Modify(ctx context.Context, caller authdomain.Identity, id string, in ModifyInput) (*domain.Shipment, error) {
	shipment, err := s.shipments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.SenderName != nil {
		shipment.SenderName = *in.SenderName
	}
	if in.RecipientName != nil {
		shipment.RecipientName = *in.RecipientName
	}
	if in.RecipientAddress != nil {
		shipment.RecipientAddress = *in.RecipientAddress
	}
	if in.RecipientEmail != nil {
		shipment.RecipientEmail = *in.RecipientEmail
	}
	if in.RecipientPhone != nil {
		shipment.RecipientPhone = *in.RecipientPhone
	}
	if in.GPS != nil {
		shipment.GPS = in.GPS
	}

	if shipment.SenderName == "" {
		shipment.SenderName = caller.Name
	}
	if shipment.ClientID == "" {
		shipment.ClientID = caller.ID
	}
	shipment.UpdatedAt = time.Now().UTC()

	if err := s.shipments.Update(ctx, shipment); err != nil {
		return nil, err
	}

	s.dispatch(func(ctx context.Context) error {
		msg := fmt.Sprintf("Shipment %s was updated", shipment.TrackingCode)
		return s.relay.NotifyUser(ctx, shipment.ClientID, msg, shipment.ID)
	})

	return shipment, nil
}

// ListForCourier returns the union of unassigned Created shipments and
// shipments already assigned to the calling courier, newest-first.
func (s *ShipmentService) ListForCourier(ctx context.Context, courierID string) ([]domain.Shipment, error) {
	return s.shipments.FindForCourier(ctx, courierID)
}

// Claim handles a courier's accept/decline decision. Accepting assigns the
// courier atomically: the first claim wins, later claims get ErrAlreadyClaimed.
// Declining changes no state and simply returns the current shipment.
func (s *ShipmentService) Claim(ctx context.Context, caller authdomain.Identity, code string, accept bool) (*domain.Shipment, error) {
	if !accept {
		return s.shipments.FindByCode(ctx, code)
	}

	entry := domain.StatusEntry{Status: domain.StatusAccepted, Date: time.Now().UTC()}
	shipment, err := s.shipments.Claim(ctx, code, caller.ID, entry)
	if err != nil {
		return nil, err
	}

	s.dispatch(func(ctx context.Context) error {
		msg := fmt.Sprintf("Shipment %s was accepted by a courier", shipment.TrackingCode)
		return s.relay.NotifyUser(ctx, shipment.ClientID, msg, shipment.ID)
	})

	return shipment, nil
}

// ListForClient returns all shipments owned by a client, newest-first.
func (s *ShipmentService) ListForClient(ctx context.Context, clientID string) ([]domain.Shipment, error) {
	return s.shipments.FindByClient(ctx, clientID)
}

// DashboardStats is the shipment aggregate shown on the dashboard.
type DashboardStats struct {
	Total    int64             `json:"total"`
	ByStatus map[string]int64  `json:"by_status"`
	Recent   []domain.Shipment `json:"recent"`
}

// Dashboard returns the total count, counts grouped by status and the five
// most recent shipments.
func (s *ShipmentService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	total, err := s.shipments.CountAll(ctx)
	if err != nil {
		return nil, err
	}

	byStatus, err := s.shipments.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.shipments.FindRecent(ctx, recentLimit)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		Total:    total,
		ByStatus: byStatus,
		Recent:   recent,
	}, nil
}

// TrackingURL returns the public tracking link for a code.
func (s *ShipmentService) TrackingURL(code string) string {
	return fmt.Sprintf("%s/shipments/track/%s", s.publicBaseURL, code)
}

// TrackingQR encodes the public tracking URL as a PNG QR code and returns it
// as a data URI. Pure derivation: no state is read or mutated.
func (s *ShipmentService) TrackingQR(code string) (string, error) {
	png, err := qrcode.Encode(s.TrackingURL(code), qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
