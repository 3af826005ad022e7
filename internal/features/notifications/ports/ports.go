package ports

import (
	"context"

	"parcel-tracker/internal/features/notifications/domain"
)

// Relay defines the boundary to the external notification service.
// Push operations made as mutation side effects are best-effort: callers
// dispatch them detached and never fail the primary operation on relay errors.
type Relay interface {
	// NotifyUser pushes a message targeted at a single user.
	NotifyUser(ctx context.Context, userID, message, shipmentID string) error

	// NotifyRole pushes a message to every user holding the given role.
	NotifyRole(ctx context.Context, role, message, shipmentID string) error

	// NotifySystem pushes a global announcement.
	NotifySystem(ctx context.Context, message string) error

	// ListForUser fetches a user's notifications, newest-first.
	ListForUser(ctx context.Context, userID string) ([]domain.Notification, error)

	// MarkRead marks a single notification as read.
	MarkRead(ctx context.Context, notificationID string) error
}
