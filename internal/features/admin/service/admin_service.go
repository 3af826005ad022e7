package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"parcel-tracker/internal/core/logger"
	authdomain "parcel-tracker/internal/features/auth/domain"
	authports "parcel-tracker/internal/features/auth/ports"
	notifyports "parcel-tracker/internal/features/notifications/ports"
	shipdomain "parcel-tracker/internal/features/shipments/domain"
	shipports "parcel-tracker/internal/features/shipments/ports"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// tempPasswordLength is the size of generated reset passwords.
	tempPasswordLength = 8
	// recentLimit is how many recent users/shipments the dashboard returns.
	recentLimit = 5
)

// tempPasswordAlphabet avoids ambiguous characters (0/O, 1/l/I).
const tempPasswordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// AdminService implements user management and cross-feature monitoring for
// operators.
type AdminService struct {
	users         authports.UserRepository
	shipments     shipports.ShipmentRepository
	relay         notifyports.Relay
	notifyTimeout time.Duration
}

// NewAdminService creates a new AdminService.
func NewAdminService(users authports.UserRepository, shipments shipports.ShipmentRepository, relay notifyports.Relay) *AdminService {
	return &AdminService{
		users:         users,
		shipments:     shipments,
		relay:         relay,
		notifyTimeout: 5 * time.Second,
	}
}

// dispatch runs a relay call detached from the request. Failures are logged
// and swallowed: notifications are best-effort.
func (s *AdminService) dispatch(fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			logger.Get().Warn("Notification dispatch failed", zap.Error(err))
		}
	}()
}

// ListUsers returns every registered user.
func (s *AdminService) ListUsers(ctx context.Context) ([]authdomain.User, error) {
	return s.users.FindAll(ctx)
}

// GetUser returns a single user by id.
func (s *AdminService) GetUser(ctx context.Context, id string) (*authdomain.User, error) {
	return s.users.FindByID(ctx, id)
}

// SearchUsers returns users matching the filter.
func (s *AdminService) SearchUsers(ctx context.Context, filter authports.UserFilter) ([]authdomain.User, error) {
	return s.users.Search(ctx, filter)
}

// SetBlocked blocks or unblocks an account. A blocked account keeps its data
// but fails every authenticated request until unblocked.
func (s *AdminService) SetBlocked(ctx context.Context, id string, blocked bool) (*authdomain.User, error) {
	user, err := s.users.UpdateBlocked(ctx, id, blocked)
	if err != nil {
		return nil, err
	}

	if blocked {
		s.dispatch(func(ctx context.Context) error {
			return s.relay.NotifyUser(ctx, user.ID, "Your account has been blocked by an administrator", "")
		})
	}

	return user, nil
}

// ReassignRole changes a user's role after validating it against the known set.
func (s *AdminService) ReassignRole(ctx context.Context, id, role string) (*authdomain.User, error) {
	parsed, err := authdomain.ParseRole(role)
	if err != nil {
		return nil, err
	}

	user, err := s.users.UpdateRole(ctx, id, parsed)
	if err != nil {
		return nil, err
	}

	s.dispatch(func(ctx context.Context) error {
		msg := fmt.Sprintf("Your role has been changed to %s", parsed)
		return s.relay.NotifyUser(ctx, user.ID, msg, "")
	})

	return user, nil
}

// ResetPassword replaces a user's password with a generated temporary one.
// The plaintext is returned exactly once and never stored.
func (s *AdminService) ResetPassword(ctx context.Context, id string) (string, error) {
	if _, err := s.users.FindByID(ctx, id); err != nil {
		return "", err
	}

	plaintext, err := generateTempPassword()
	if err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, id, string(hash)); err != nil {
		return "", err
	}

	s.dispatch(func(ctx context.Context) error {
		return s.relay.NotifyUser(ctx, id, "Your password has been reset by an administrator", "")
	})

	return plaintext, nil
}

func generateTempPassword() (string, error) {
	size := big.NewInt(int64(len(tempPasswordAlphabet)))

	out := make([]byte, tempPasswordLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		out[i] = tempPasswordAlphabet[n.Int64()]
	}
	return string(out), nil
}

// UserShipments returns every shipment owned by the given user.
func (s *AdminService) UserShipments(ctx context.Context, userID string) ([]shipdomain.Shipment, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.shipments.FindByClient(ctx, userID)
}

// ListShipments returns every shipment, newest-first.
func (s *AdminService) ListShipments(ctx context.Context) ([]shipdomain.Shipment, error) {
	return s.shipments.FindAll(ctx)
}

// DeleteShipment removes a shipment by internal id and notifies its owner.
func (s *AdminService) DeleteShipment(ctx context.Context, id string) error {
	shipment, err := s.shipments.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.shipments.DeleteByID(ctx, id); err != nil {
		return err
	}

	s.dispatch(func(ctx context.Context) error {
		msg := fmt.Sprintf("Shipment %s was removed by an administrator", shipment.TrackingCode)
		return s.relay.NotifyUser(ctx, shipment.ClientID, msg, shipment.ID)
	})

	return nil
}

// Announce broadcasts a system-wide message through the notification relay.
// Unlike mutation side effects this is the primary operation, so failures are
// returned to the caller.
func (s *AdminService) Announce(ctx context.Context, message string) error {
	return s.relay.NotifySystem(ctx, message)
}

// Dashboard is the cross-feature aggregate shown to operators.
type Dashboard struct {
	TotalUsers        int64                     `json:"total_users"`
	UsersByRole       map[authdomain.Role]int64 `json:"users_by_role"`
	TotalShipments    int64                     `json:"total_shipments"`
	ShipmentsByStatus map[string]int64          `json:"shipments_by_status"`
	ShipmentsPerDay   []shipports.DayCount      `json:"shipments_per_day"`
	RecentUsers       []authdomain.User         `json:"recent_users"`
	RecentShipments   []shipdomain.Shipment     `json:"recent_shipments"`
}

// Stats assembles the operator dashboard from user and shipment aggregates.
func (s *AdminService) Stats(ctx context.Context) (*Dashboard, error) {
	totalUsers, err := s.users.CountAll(ctx)
	if err != nil {
		return nil, err
	}

	usersByRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, err
	}

	totalShipments, err := s.shipments.CountAll(ctx)
	if err != nil {
		return nil, err
	}

	shipmentsByStatus, err := s.shipments.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	perDay, err := s.shipments.CountPerDay(ctx)
	if err != nil {
		return nil, err
	}

	recentUsers, err := s.users.FindRecent(ctx, recentLimit)
	if err != nil {
		return nil, err
	}

	recentShipments, err := s.shipments.FindRecent(ctx, recentLimit)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		TotalUsers:        totalUsers,
		UsersByRole:       usersByRole,
		TotalShipments:    totalShipments,
		ShipmentsByStatus: shipmentsByStatus,
		ShipmentsPerDay:   perDay,
		RecentUsers:       recentUsers,
		RecentShipments:   recentShipments,
	}, nil
}
