package notify

import "shopfront/internal/model"

// Publisher is the fanout contract consumed by the services. *Hub
// satisfies it; tests substitute a recorder.
type Publisher interface {
	Publish(event model.NotificationEvent)
}
