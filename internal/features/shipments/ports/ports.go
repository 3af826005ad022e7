package ports

import (
	"context"
	"time"

	"parcel-tracker/internal/features/shipments/domain"
)

// SearchFilter narrows shipment searches. Zero-valued fields are ignored.
type SearchFilter struct {
	// RecipientName matches as a case-insensitive substring.
	RecipientName string
	// Status matches exactly when set.
	Status *domain.Status
	// From bounds createdAt from below when set.
	From *time.Time
	// To bounds createdAt from above when set.
	To *time.Time
}

// DayCount is a per-day shipment count bucket.
type DayCount struct {
	Day   string `bson:"_id" json:"day"`
	Total int64  `bson:"total" json:"total"`
}

// ShipmentRepository defines the secondary port for shipment storage.
type ShipmentRepository interface {
	// Insert stores a new shipment.
	Insert(ctx context.Context, shipment *domain.Shipment) error

	// FindByCode returns the shipment with the given tracking code, or
	// ErrShipmentNotFound.
	FindByCode(ctx context.Context, code string) (*domain.Shipment, error)

	// FindByID returns the shipment with the given internal id, or
	// ErrShipmentNotFound.
	FindByID(ctx context.Context, id string) (*domain.Shipment, error)

	// AppendStatus atomically appends one history entry, sets the current
	// status and optionally the GPS position, returning the updated shipment.
	AppendStatus(ctx context.Context, code string, entry domain.StatusEntry, gps *domain.Position) (*domain.Shipment, error)

	// Update replaces the mutable fields of an existing shipment.
	Update(ctx context.Context, shipment *domain.Shipment) error

	// DeleteByCode removes the shipment with the given tracking code.
	DeleteByCode(ctx context.Context, code string) error

	// DeleteByID removes the shipment with the given internal id.
	DeleteByID(ctx context.Context, id string) error

	// FindAll returns every shipment, newest-first.
	FindAll(ctx context.Context) ([]domain.Shipment, error)

	// Search returns shipments matching the filter, newest-first.
	Search(ctx context.Context, filter SearchFilter) ([]domain.Shipment, error)

	// FindByClient returns shipments owned by a client, newest-first.
	FindByClient(ctx context.Context, clientID string) ([]domain.Shipment, error)

	// FindForCourier returns the union of unassigned Created shipments and
	// shipments assigned to the given courier, newest-first.
	FindForCourier(ctx context.Context, courierID string) ([]domain.Shipment, error)

	// Claim atomically assigns the courier to an unclaimed shipment and
	// appends the given history entry. Returns ErrAlreadyClaimed when the
	// shipment already has a different courier, ErrShipmentNotFound when no
	// shipment matches the code.
	Claim(ctx context.Context, code, courierID string, entry domain.StatusEntry) (*domain.Shipment, error)

	// CountAll returns the total number of shipments.
	CountAll(ctx context.Context) (int64, error)

	// CountByStatus returns shipment counts grouped by status.
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// FindRecent returns the newest shipments, newest-first.
	FindRecent(ctx context.Context, limit int64) ([]domain.Shipment, error)

	// CountPerDay returns per-day shipment counts over the full history,
	// ascending by day (YYYY-MM-DD).
	CountPerDay(ctx context.Context) ([]DayCount, error)
}
