package domain

import "time"

// Type classifies a notification for the presentation layer.
type Type string

const (
	// TypeShipmentStatus marks notifications about a shipment's lifecycle.
	TypeShipmentStatus Type = "shipment_status"
	// TypeMission marks role-broadcast notifications (e.g., new deliveries for couriers).
	TypeMission Type = "mission"
	// TypeSystem marks global announcements.
	TypeSystem Type = "system"
)

// Notification is a message stored and served by the external relay.
type Notification struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Message    string    `json:"message"`
	Type       Type      `json:"type"`
	ShipmentID string    `json:"shipmentId,omitempty"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}
