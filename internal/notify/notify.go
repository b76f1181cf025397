package notify

import (
	"context"
	"fmt"

	"collabhunts/internal/events"
	"collabhunts/internal/models"

	"github.com/rs/zerolog"
)

// Draft is a notification accumulated during one monitor run, before
// dedupe and insertion.
type Draft struct {
	UserID  int64
	Title   string
	Message string
	Type    string
	Link    string
}

// Batch collects drafts for one run and drops exact (recipient, title)
// duplicates. Content for a duplicate pair is identical by construction,
// so first-wins.
type Batch struct {
	drafts []Draft
	seen   map[string]struct{}
}

func NewBatch() *Batch {
	return &Batch{seen: make(map[string]struct{})}
}

func (b *Batch) Add(d Draft) {
	key := fmt.Sprintf("%d|%s", d.UserID, d.Title)
	if _, dup := b.seen[key]; dup {
		return
	}
	b.seen[key] = struct{}{}
	b.drafts = append(b.drafts, d)
}

func (b *Batch) Len() int {
	return len(b.drafts)
}

func (b *Batch) Drafts() []Draft {
	return b.drafts
}

// Store is the slice of the persistence API the inserter needs.
type Store interface {
	InsertNotifications(ctx context.Context, notifications []models.Notification) error
}

// Inserter bulk-inserts a run's batch. Insert failure is retried with
// backoff, then absorbed: state transitions already committed in the
// same run are never rolled back over a notification failure.
type Inserter struct {
	store  Store
	bus    *events.EventBus
	retry  RetryPolicy
	logger *zerolog.Logger
}

func NewInserter(store Store, bus *events.EventBus, retry RetryPolicy, logger *zerolog.Logger) *Inserter {
	return &Inserter{store: store, bus: bus, retry: retry, logger: logger}
}

// Flush inserts the whole batch and returns how many rows were written.
// Returns 0 and logs when every attempt fails.
func (i *Inserter) Flush(ctx context.Context, batch *Batch) int {
	if batch == nil || batch.Len() == 0 {
		return 0
	}

	rows := make([]models.Notification, 0, batch.Len())
	for _, d := range batch.Drafts() {
		rows = append(rows, models.Notification{
			UserID:  d.UserID,
			Title:   d.Title,
			Message: d.Message,
			Type:    d.Type,
			Link:    d.Link,
		})
	}

	var err error
	for attempt := 1; attempt <= i.retry.MaxRetries; attempt++ {
		if err = i.store.InsertNotifications(ctx, rows); err == nil {
			i.publishInserted(len(rows))
			return len(rows)
		}
		if attempt == i.retry.MaxRetries {
			break
		}
		i.logger.Warn().Err(err).Int("attempt", attempt).Msg("notification insert failed, retrying")

		select {
		case <-ctx.Done():
			i.logger.Error().Err(ctx.Err()).Msg("notification insert aborted")
			return 0
		case <-i.retry.After(attempt):
		}
	}

	i.logger.Error().Err(err).Int("count", len(rows)).Msg("notification insert dropped after retries")
	return 0
}

func (i *Inserter) publishInserted(count int) {
	if i.bus == nil {
		return
	}
	_ = i.bus.PublishJSON(events.EventNotificationsInserted, map[string]int{"count": count})
}
