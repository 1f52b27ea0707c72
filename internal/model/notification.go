package model

import (
	"time"

	"github.com/google/uuid"
)

// AudienceAdmin addresses a notification to every connected
// administrator instead of one user.
const AudienceAdmin = "admin-broadcast"

// Notification event types.
const (
	NotifyOrderCreated     = "order_created"
	NotifyPaymentCompleted = "payment_completed"
	NotifyPaymentFailed    = "payment_failed"
	NotifyStatusChanged    = "status_changed"
	NotifyOrderCancelled   = "order_cancelled"
	NotifyLowStock         = "low_stock"
)

// NotificationEvent is an ephemeral push event. It is delivered at
// most once to each currently-connected subscriber and dropped when
// nobody is listening; there is no durable queue and no replay.
type NotificationEvent struct {
	ID        uuid.UUID      `json:"id"`
	Target    string         `json:"target"` // user id or AudienceAdmin
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewNotification builds an event addressed to target.
func NewNotification(target, eventType string, payload map[string]any) NotificationEvent {
	return NotificationEvent{
		ID:        uuid.New(),
		Target:    target,
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}
