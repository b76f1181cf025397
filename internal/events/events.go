package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingAutoReleased   = "booking_auto_released"
	EventBookingReviewReminder = "booking_review_reminder"
	EventDisputeReminderSent   = "dispute_reminder_sent"
	EventDisputeEscalated      = "dispute_escalated"
	EventNotificationsInserted = "notifications_inserted"
)

// BookingEventPayload is the booking snapshot published to consumers.
type BookingEventPayload struct {
	BookingID   int64      `json:"booking_id"`
	BrandID     int64      `json:"brand_id"`
	CreatorID   int64      `json:"creator_id"`
	TotalPrice  int64      `json:"total_price"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

// DisputeEventPayload is the dispute snapshot published to consumers.
type DisputeEventPayload struct {
	DisputeID          string     `json:"dispute_id"`
	BookingID          int64      `json:"booking_id"`
	Stage              string     `json:"stage,omitempty"`
	ResponderID        int64      `json:"responder_id,omitempty"`
	ResolutionDeadline *time.Time `json:"resolution_deadline,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
