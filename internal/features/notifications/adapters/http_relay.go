package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"parcel-tracker/internal/features/notifications/domain"
)

// HTTPRelay implements ports.Relay against the notification relay's HTTP API.
type HTTPRelay struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRelay creates a relay client. The client should carry a timeout;
// see httpclient.NewClient.
func NewHTTPRelay(baseURL string, client *http.Client) *HTTPRelay {
	return &HTTPRelay{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type pushRequest struct {
	UserID     string `json:"userId,omitempty"`
	Role       string `json:"role,omitempty"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	ShipmentID string `json:"shipmentId,omitempty"`
}

// NotifyUser pushes a message targeted at a single user.
func (r *HTTPRelay) NotifyUser(ctx context.Context, userID, message, shipmentID string) error {
	return r.push(ctx, "/notifications/user", pushRequest{
		UserID:     userID,
		Message:    message,
		Type:       string(domain.TypeShipmentStatus),
		ShipmentID: shipmentID,
	})
}

// NotifyRole pushes a message to every user holding the given role.
func (r *HTTPRelay) NotifyRole(ctx context.Context, role, message, shipmentID string) error {
	return r.push(ctx, "/notifications/role", pushRequest{
		Role:       role,
		Message:    message,
		Type:       string(domain.TypeMission),
		ShipmentID: shipmentID,
	})
}

// NotifySystem pushes a global announcement.
func (r *HTTPRelay) NotifySystem(ctx context.Context, message string) error {
	return r.push(ctx, "/notifications/system", pushRequest{
		Message: message,
		Type:    string(domain.TypeSystem),
	})
}

func (r *HTTPRelay) push(ctx context.Context, path string, payload pushRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification relay unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification relay responded with status %d", resp.StatusCode)
	}
	return nil
}

// ListForUser fetches a user's notifications, newest-first.
func (r *HTTPRelay) ListForUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/notifications/"+userID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build notification request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notification relay unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("notification relay responded with status %d", resp.StatusCode)
	}

	var notifications []domain.Notification
	if err := json.NewDecoder(resp.Body).Decode(&notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead marks a single notification as read.
func (r *HTTPRelay) MarkRead(ctx context.Context, notificationID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, r.baseURL+"/notifications/"+notificationID+"/read", nil)
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification relay unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification relay responded with status %d", resp.StatusCode)
	}
	return nil
}
