package service

import (
	"context"
	"time"

	"parcel-tracker/internal/features/geolocation/domain"
	"parcel-tracker/internal/features/geolocation/ports"
)

// GeolocationService records and serves courier GPS positions.
type GeolocationService struct {
	store ports.PositionStore
}

// NewGeolocationService creates a new GeolocationService.
func NewGeolocationService(store ports.PositionStore) *GeolocationService {
	return &GeolocationService{
		store: store,
	}
}

// Report validates and stores a courier's current position.
func (s *GeolocationService) Report(ctx context.Context, courierID string, latitude, longitude float64) (*domain.CourierPosition, error) {
	position := domain.CourierPosition{
		CourierID:  courierID,
		Latitude:   latitude,
		Longitude:  longitude,
		RecordedAt: time.Now().UTC(),
	}

	if err := position.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Record(ctx, position); err != nil {
		return nil, err
	}
	return &position, nil
}

// Latest returns a courier's most recent position.
func (s *GeolocationService) Latest(ctx context.Context, courierID string) (*domain.CourierPosition, error) {
	return s.store.Latest(ctx, courierID)
}

// Trail returns a courier's recent positions, newest-first.
func (s *GeolocationService) Trail(ctx context.Context, courierID string) ([]domain.CourierPosition, error) {
	return s.store.Trail(ctx, courierID)
}
