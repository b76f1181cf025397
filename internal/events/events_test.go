package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishJSONDeliversToSubscribers(t *testing.T) {
	bus := NewEventBus()

	var received []*Event
	bus.Subscribe(EventBookingAutoReleased, func(e *Event) error {
		received = append(received, e)
		return nil
	})
	bus.Subscribe(EventDisputeEscalated, func(e *Event) error {
		t.Fatal("wrong event type delivered")
		return nil
	})

	payload := BookingEventPayload{BookingID: 42, BrandID: 1, CreatorID: 2, TotalPrice: 500_00}
	require.NoError(t, bus.PublishJSON(EventBookingAutoReleased, payload))

	require.Len(t, received, 1)
	assert.Equal(t, EventBookingAutoReleased, received[0].Type)
	assert.False(t, received[0].CreatedAt.IsZero())

	var got BookingEventPayload
	require.NoError(t, json.Unmarshal(received[0].Payload, &got))
	assert.Equal(t, int64(42), got.BookingID)
}

func TestPublishJSONNilBus(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventDisputeReminderSent, DisputeEventPayload{DisputeID: "d1"}))
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()

	calls := 0
	for i := 0; i < 3; i++ {
		bus.Subscribe(EventDisputeEscalated, func(*Event) error {
			calls++
			return nil
		})
	}

	require.NoError(t, bus.PublishJSON(EventDisputeEscalated, DisputeEventPayload{DisputeID: "d2"}))
	assert.Equal(t, 3, calls)
}
