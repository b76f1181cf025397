package monitor

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"collabhunts/internal/database"
	"collabhunts/internal/events"
	"collabhunts/internal/models"
	"collabhunts/internal/notify"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://collabhunts.test"

type monitorEnv struct {
	db       *database.DB
	bus      *events.EventBus
	delivery *DeliveryMonitor
	dispute  *DisputeMonitor
	brand    *models.User
	creator  *models.User
}

func setupMonitorEnv(t *testing.T) *monitorEnv {
	t.Helper()
	ctx := context.Background()

	logger := zerolog.New(os.Stdout)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bus := events.NewEventBus()
	retry := notify.RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond, BackoffFactor: 1}
	inserter := notify.NewInserter(db, bus, retry, &logger)

	env := &monitorEnv{
		db:       db,
		bus:      bus,
		delivery: NewDeliveryMonitor(db, inserter, bus, nil, testBaseURL, &logger),
		dispute:  NewDisputeMonitor(db, inserter, bus, nil, testBaseURL, &logger),
	}

	env.brand = &models.User{DisplayName: "Acme Co", Email: "acme@example.com", Role: models.RoleBrand}
	require.NoError(t, db.CreateUser(ctx, env.brand))
	env.creator = &models.User{DisplayName: "Ivy Lane", Email: "ivy@example.com", Role: models.RoleCreator}
	require.NoError(t, db.CreateUser(ctx, env.creator))

	return env
}

func (e *monitorEnv) deliveredBooking(t *testing.T, hoursAgo float64) *models.Booking {
	t.Helper()

	deliveredAt := time.Now().Add(-time.Duration(hoursAgo * float64(time.Hour)))
	booking := &models.Booking{
		BrandID:        e.brand.ID,
		CreatorID:      e.creator.ID,
		TotalPrice:     300_00,
		PaymentStatus:  models.PaymentPaid,
		DeliveryStatus: models.DeliveryDelivered,
		DeliveredAt:    &deliveredAt,
		Status:         models.BookingActive,
	}
	require.NoError(t, e.db.CreateBooking(context.Background(), booking))
	return booking
}

func (e *monitorEnv) notificationsFor(t *testing.T, userID int64) []*models.Notification {
	t.Helper()
	notifications, err := e.db.ListNotificationsForUser(context.Background(), userID, 0)
	require.NoError(t, err)
	return notifications
}

func TestNoAutoReleaseWhileDisputed(t *testing.T) {
	env := setupMonitorEnv(t)
	ctx := context.Background()

	booking := env.deliveredBooking(t, 100)
	require.NoError(t, env.db.CreateDispute(ctx, &models.Dispute{
		BookingID:        booking.ID,
		OpenedBy:         models.RoleBrand,
		ResponseDeadline: time.Now().Add(72 * time.Hour),
	}))

	summary, err := env.delivery.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.BookingsProcessed)
	assert.Equal(t, 0, summary.Released)
	assert.Equal(t, 0, summary.Reminders)
	assert.Equal(t, 0, summary.NotificationsSent)

	got, err := env.db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryDelivered, got.DeliveryStatus)
	assert.Equal(t, models.BookingActive, got.Status)
}

func TestAutoReleaseIdempotence(t *testing.T) {
	env := setupMonitorEnv(t)
	ctx := context.Background()

	booking := env.deliveredBooking(t, 80)

	var releasedEvents int
	env.bus.Subscribe(events.EventBookingAutoReleased, func(*events.Event) error {
		releasedEvents++
		return nil
	})

	summary, err := env.delivery.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Released)

	got, err := env.db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryConfirmed, got.DeliveryStatus)
	assert.Equal(t, models.BookingCompleted, got.Status)

	// Both parties are told once.
	assert.Len(t, env.notificationsFor(t, env.creator.ID), 1)
	assert.Len(t, env.notificationsFor(t, env.brand.ID), 1)

	// The confirmed booking no longer matches the scan filter.
	summary, err = env.delivery.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.BookingsProcessed)
	assert.Equal(t, 0, summary.Released)

	assert.Equal(t, 1, releasedEvents)
	assert.Len(t, env.notificationsFor(t, env.creator.ID), 1)
}

func TestReviewReminderWindow(t *testing.T) {
	env := setupMonitorEnv(t)
	ctx := context.Background()

	env.deliveredBooking(t, 48.5)

	summary, err := env.delivery.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Reminders)
	assert.Equal(t, 0, summary.Released)

	brandNotifications := env.notificationsFor(t, env.brand.ID)
	require.Len(t, brandNotifications, 1)
	assert.Contains(t, brandNotifications[0].Title, "Delivery Review Reminder")
	assert.Contains(t, brandNotifications[0].Message, "24 hours left")

	// The creator is not nagged during the review window.
	assert.Empty(t, env.notificationsFor(t, env.creator.ID))
}

func TestFinalWarningBoundary(t *testing.T) {
	env := setupMonitorEnv(t)
	ctx := context.Background()

	// 71.99h: final warning, not yet released.
	booking := env.deliveredBooking(t, 71.99)

	summary, err := env.delivery.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Reminders)
	assert.Equal(t, 0, summary.Released)

	got, err := env.db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryDelivered, got.DeliveryStatus)

	brandNotifications := env.notificationsFor(t, env.brand.ID)
	require.Len(t, brandNotifications, 1)
	assert.Contains(t, brandNotifications[0].Title, "Final Warning")
}

func TestReleaseAtWindowBoundary(t *testing.T) {
	env := setupMonitorEnv(t)
	ctx := context.Background()

	booking := env.deliveredBooking(t, 72.0)

	summary, err := env.delivery.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Released)
	assert.Equal(t, 0, summary.Reminders)

	got, err := env.db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryConfirmed, got.DeliveryStatus)

	// No reminder accompanies the release, only the completion notices.
	brandNotifications := env.notificationsFor(t, env.brand.ID)
	require.Len(t, brandNotifications, 1)
	assert.Contains(t, brandNotifications[0].Title, "Booking Auto-Completed")
}

type sentMail struct {
	to, subject, body string
}

type recordingMailer struct {
	sent []sentMail
}

func (m *recordingMailer) Send(_ context.Context, to, subject, html string) error {
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: html})
	return nil
}

func TestReleaseEmailLinksToApp(t *testing.T) {
	env := setupMonitorEnv(t)
	ctx := context.Background()

	booking := env.deliveredBooking(t, 80)

	logger := zerolog.New(os.Stdout)
	retry := notify.RetryPolicy{MaxRetries: 1, InitialDelay: time.Millisecond, BackoffFactor: 1}
	inserter := notify.NewInserter(env.db, env.bus, retry, &logger)
	mail := &recordingMailer{}
	delivery := NewDeliveryMonitor(env.db, inserter, env.bus, mail, testBaseURL, &logger)

	summary, err := delivery.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Released)

	require.Len(t, mail.sent, 1)
	assert.Equal(t, env.creator.Email, mail.sent[0].to)
	assert.Contains(t, mail.sent[0].body,
		fmt.Sprintf("%s/bookings/%d", testBaseURL, booking.ID))
}

func TestQuietBeforeReminderWindow(t *testing.T) {
	env := setupMonitorEnv(t)
	ctx := context.Background()

	env.deliveredBooking(t, 20)

	summary, err := env.delivery.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.BookingsProcessed)
	assert.Equal(t, 0, summary.Reminders)
	assert.Equal(t, 0, summary.Released)
	assert.Equal(t, 0, summary.NotificationsSent)
}
