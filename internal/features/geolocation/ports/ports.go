package ports

import (
	"context"

	"parcel-tracker/internal/features/geolocation/domain"
)

// PositionStore defines the secondary port for courier position storage.
type PositionStore interface {
	// Record stores a courier's latest position and prepends it to the
	// courier's bounded trail.
	Record(ctx context.Context, position domain.CourierPosition) error

	// Latest returns a courier's most recent position, or ErrPositionNotFound.
	Latest(ctx context.Context, courierID string) (*domain.CourierPosition, error)

	// Trail returns a courier's recent positions, newest-first.
	Trail(ctx context.Context, courierID string) ([]domain.CourierPosition, error)
}
