package notify

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"collabhunts/internal/events"
	"collabhunts/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	batches  [][]models.Notification
	failures int
}

func (s *recordingStore) InsertNotifications(_ context.Context, notifications []models.Notification) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("store unavailable")
	}
	s.batches = append(s.batches, notifications)
	return nil
}

func testInserter(store Store) *Inserter {
	logger := zerolog.New(os.Stdout)
	retry := RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}
	return NewInserter(store, events.NewEventBus(), retry, &logger)
}

func TestBatchDedupesByRecipientAndTitle(t *testing.T) {
	batch := NewBatch()

	batch.Add(Draft{UserID: 1, Title: "Final Warning", Message: "less than 1 hour"})
	batch.Add(Draft{UserID: 1, Title: "Final Warning", Message: "less than 1 hour"})
	batch.Add(Draft{UserID: 2, Title: "Final Warning", Message: "less than 1 hour"})
	batch.Add(Draft{UserID: 1, Title: "Payment Released", Message: "done"})

	require.Equal(t, 3, batch.Len())

	drafts := batch.Drafts()
	assert.Equal(t, int64(1), drafts[0].UserID)
	assert.Equal(t, int64(2), drafts[1].UserID)
	assert.Equal(t, "Payment Released", drafts[2].Title)
}

func TestFlushInsertsBatch(t *testing.T) {
	store := &recordingStore{}
	inserter := testInserter(store)

	batch := NewBatch()
	batch.Add(Draft{UserID: 1, Title: "A", Message: "m", Type: models.NotificationTypeBooking, Link: "/bookings/1"})
	batch.Add(Draft{UserID: 2, Title: "B", Message: "m", Type: models.NotificationTypeDispute})

	inserted := inserter.Flush(context.Background(), batch)
	assert.Equal(t, 2, inserted)
	require.Len(t, store.batches, 1)
	assert.Equal(t, "/bookings/1", store.batches[0][0].Link)
}

func TestFlushRetriesTransientFailure(t *testing.T) {
	store := &recordingStore{failures: 2}
	inserter := testInserter(store)

	batch := NewBatch()
	batch.Add(Draft{UserID: 1, Title: "A", Message: "m"})

	inserted := inserter.Flush(context.Background(), batch)
	assert.Equal(t, 1, inserted)
	assert.Len(t, store.batches, 1)
}

func TestFlushAbsorbsPersistentFailure(t *testing.T) {
	store := &recordingStore{failures: 10}
	inserter := testInserter(store)

	batch := NewBatch()
	batch.Add(Draft{UserID: 1, Title: "A", Message: "m"})

	inserted := inserter.Flush(context.Background(), batch)
	assert.Equal(t, 0, inserted)
	assert.Empty(t, store.batches)
}

func TestFlushEmptyBatch(t *testing.T) {
	store := &recordingStore{}
	inserter := testInserter(store)

	assert.Equal(t, 0, inserter.Flush(context.Background(), nil))
	assert.Equal(t, 0, inserter.Flush(context.Background(), NewBatch()))
	assert.Empty(t, store.batches)
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 5, InitialDelay: time.Second, MaxDelay: 4 * time.Second, BackoffFactor: 2}

	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
	assert.Equal(t, 4*time.Second, policy.NextDelay(3))
	// Clamped at MaxDelay.
	assert.Equal(t, 4*time.Second, policy.NextDelay(6))
	// Out-of-range attempt falls back to the first delay.
	assert.Equal(t, time.Second, policy.NextDelay(0))
}
