package domain

import (
	"context"
	"time"

	"collabhunts/internal/database"
	"collabhunts/internal/models"
)

// Store is the persistence surface the monitors depend on. *database.DB
// implements it; tests substitute mocks.
type Store interface {
	ListDeliveredPaidBookings(ctx context.Context) ([]*models.Booking, error)
	HasOpenDispute(ctx context.Context, bookingID int64) (bool, error)
	ConfirmDeliveredBooking(ctx context.Context, id int64) error

	ListActionableDisputes(ctx context.Context) ([]*models.DisputeCase, error)
	MarkDisputeReminderSent(ctx context.Context, id string, stage database.ReminderStage) error
	EscalateDispute(ctx context.Context, id string, resolutionDeadline time.Time) error

	ListAdmins(ctx context.Context) ([]*models.User, error)
	InsertNotifications(ctx context.Context, notifications []models.Notification) error
}

// EventPublisher mirrors the realtime push collaborator: fire-and-forget
// domain events consumed in-process.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Mailer is the outbound email collaborator.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// RunLocker serializes monitor runs across overlapping scheduler
// invocations. Acquire returns false when another run holds the lease.
type RunLocker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), acquired bool, err error)
}
