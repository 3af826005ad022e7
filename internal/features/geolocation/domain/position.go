package domain

import (
	"errors"
	"time"
)

var (
	// ErrPositionNotFound is returned when a courier has no recorded position.
	ErrPositionNotFound = errors.New("position not found")
	// ErrInvalidCoordinates is returned when a coordinate pair is out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// CourierPosition is one GPS report from a courier.
type CourierPosition struct {
	CourierID  string    `json:"courier_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Validate checks that the coordinates are within WGS84 bounds.
func (p CourierPosition) Validate() error {
	if p.Latitude < -90 || p.Latitude > 90 {
		return ErrInvalidCoordinates
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
