package domain

import (
	"errors"
	"time"
)

// Status represents the current lifecycle stage of a shipment.
// The vocabulary is closed and validated at the boundary, but transition
// order between stages is deliberately not enforced: any caller with update
// rights may set any known status, matching the observed system behavior.
type Status string

const (
	// StatusCreated is the initial status of every shipment.
	StatusCreated Status = "Created"
	// StatusAccepted means a courier has claimed the shipment.
	StatusAccepted Status = "Accepted by courier"
	// StatusInDelivery means the shipment is out for delivery.
	StatusInDelivery Status = "In delivery"
	// StatusDelivered means the shipment reached its recipient.
	StatusDelivered Status = "Delivered"
)

var (
	// ErrInvalidStatus is returned when a status string is outside the known set.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrShipmentNotFound is returned when no shipment matches the lookup.
	ErrShipmentNotFound = errors.New("shipment not found")
	// ErrAlreadyClaimed is returned when claiming a shipment that already has a courier.
	ErrAlreadyClaimed = errors.New("shipment already claimed by another courier")
)

// ParseStatus validates a status string at the boundary. The persisted record
// keeps the plain string for forward compatibility.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusCreated, StatusAccepted, StatusInDelivery, StatusDelivered:
		return Status(s), nil
	}
	return "", ErrInvalidStatus
}

// StatusEntry is a single append-only record in a shipment's status history.
type StatusEntry struct {
	Status Status    `bson:"status" json:"status"`
	Date   time.Time `bson:"date" json:"date"`
}

// Position is a GPS coordinate attached to a shipment or reported by a courier.
type Position struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// Shipment is a trackable parcel record.
//
// TrackingCode is unique and immutable once assigned. ClientID is set at
// creation from the authenticated creator and never reassigned. CourierID is
// set at most once by the first courier who successfully claims the shipment.
type Shipment struct {
	ID               string        `bson:"_id,omitempty" json:"id"`
	TrackingCode     string        `bson:"trackingCode" json:"tracking_code"`
	SenderName       string        `bson:"senderName" json:"sender_name"`
	RecipientName    string        `bson:"recipientName" json:"recipient_name"`
	RecipientAddress string        `bson:"recipientAddress" json:"recipient_address"`
	RecipientEmail   string        `bson:"recipientEmail,omitempty" json:"recipient_email,omitempty"`
	RecipientPhone   string        `bson:"recipientPhone,omitempty" json:"recipient_phone,omitempty"`
	Status           Status        `bson:"status" json:"status"`
	History          []StatusEntry `bson:"history" json:"history"`
	GPS              *Position     `bson:"gpsPosition,omitempty" json:"gps_position,omitempty"`
	ClientID         string        `bson:"clientId" json:"client_id"`
	CourierID        string        `bson:"courierId,omitempty" json:"courier_id,omitempty"`
	CreatedAt        time.Time     `bson:"createdAt" json:"created_at"`
	UpdatedAt        time.Time     `bson:"updatedAt" json:"updated_at"`
}
