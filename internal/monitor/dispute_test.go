package monitor

import (
	"context"
	"testing"
	"time"

	"collabhunts/internal/events"
	"collabhunts/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *monitorEnv) openDispute(t *testing.T, bookingID int64, openedBy models.PartyRole, deadline time.Time) *models.Dispute {
	t.Helper()

	dispute := &models.Dispute{
		BookingID:        bookingID,
		OpenedBy:         openedBy,
		Reason:           "deliverable quality",
		ResponseDeadline: deadline,
	}
	require.NoError(t, e.db.CreateDispute(context.Background(), dispute))
	return dispute
}

func (e *monitorEnv) admin(t *testing.T, name, email string) *models.User {
	t.Helper()

	admin := &models.User{DisplayName: name, Email: email, Role: models.RoleBrand, IsAdmin: true}
	require.NoError(t, e.db.CreateUser(context.Background(), admin))
	return admin
}

func TestDay2ReminderFiresExactlyOnce(t *testing.T) {
	env := setupMonitorEnv(t)
	ctx := context.Background()

	booking := env.deliveredBooking(t, 10)
	dispute := env.openDispute(t, booking.ID, models.RoleBrand, time.Now().Add(30*time.Hour))

	summary, err := env.dispute.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Reminders)
	assert.Equal(t, 0, summary.Escalated)

	got, err := env.db.GetDispute(ctx, dispute.ID)
	require.NoError(t, err)
	assert.True(t, got.ReminderSentDay2)
	assert.False(t, got.ReminderSentDay3)

	// Opened by the brand: the creator owes the response.
	creatorNotifications := env.notificationsFor(t, env.creator.ID)
	require.Len(t, creatorNotifications, 1)
	assert.Contains(t, creatorNotifications[0].Title, "Dispute Response Reminder")
	assert.Empty(t, env.notificationsFor(t, env.brand.ID))

	// Second run: flag already set, nothing new.
	summary, err = env.dispute.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Reminders)
	assert.Len(t, env.notificationsFor(t, env.creator.ID), 1)
}

func TestDay3FinalWarning(t *testing.T) {
	env := setupMonitorEnv(t)
	ctx := context.Background()

	booking := env.deliveredBooking(t, 10)
	dispute := env.openDispute(t, booking.ID, models.RoleCreator, time.Now().Add(10*time.Hour))

	summary, err := env.dispute.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Reminders)

	got, err := env.db.GetDispute(ctx, dispute.ID)
	require.NoError(t, err)
	assert.True(t, got.ReminderSentDay3)
	// The day-2 window already passed; its flag stays untouched.
	assert.False(t, got.ReminderSentDay2)

	// Opened by the creator: the brand owes the response.
	brandNotifications := env.notificationsFor(t, env.brand.ID)
	require.Len(t, brandNotifications, 1)
	assert.Contains(t, brandNotifications[0].Title, "Final Warning")
	assert.Empty(t, env.notificationsFor(t, env.creator.ID))
}

func TestNoDay2ReminderInsideFinalDay(t *testing.T) {
	env := setupMonitorEnv(t)
	ctx := context.Background()

	// The deadline is already inside the final 24 hours, so the day-2
	// window was never hit (e.g. monitor downtime over that window).
	booking := env.deliveredBooking(t, 10)
	dispute := env.openDispute(t, booking.ID, models.RoleCreator, time.Now().Add(10*time.Hour))

	summary, err := env.dispute.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Reminders)

	// Subsequent runs stay quiet: the day-2 reminder is bounded below
	// by the day-3 window and must not fire late as a stale "2 days
	// left" message.
	summary, err = env.dispute.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Reminders)
	assert.Equal(t, 0, summary.NotificationsSent)

	got, err := env.db.GetDispute(ctx, dispute.ID)
	require.NoError(t, err)
	assert.True(t, got.ReminderSentDay3)
	assert.False(t, got.ReminderSentDay2)

	brandNotifications := env.notificationsFor(t, env.brand.ID)
	require.Len(t, brandNotifications, 1)
	assert.Contains(t, brandNotifications[0].Title, "Final Warning")
}

func TestEscalationSetsResolutionDeadline(t *testing.T) {
	env := setupMonitorEnv(t)
	ctx := context.Background()

	admin1 := env.admin(t, "Root", "root@collabhunts.com")
	admin2 := env.admin(t, "Mod", "mod@collabhunts.com")

	booking := env.deliveredBooking(t, 10)
	dispute := env.openDispute(t, booking.ID, models.RoleBrand, time.Now().Add(-1*time.Hour))

	var escalations []events.DisputeEventPayload
	env.bus.Subscribe(events.EventDisputeEscalated, func(e *events.Event) error {
		escalations = append(escalations, events.DisputeEventPayload{})
		return nil
	})

	before := time.Now()
	summary, err := env.dispute.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Escalated)

	got, err := env.db.GetDispute(ctx, dispute.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DisputePendingAdminReview, got.Status)
	assert.True(t, got.EscalatedToAdmin)
	require.NotNil(t, got.ResolutionDeadline)
	assert.WithinDuration(t, before.Add(models.AdminResolutionWindow), *got.ResolutionDeadline, time.Minute)

	// One notification per admin.
	require.Len(t, env.notificationsFor(t, admin1.ID), 1)
	require.Len(t, env.notificationsFor(t, admin2.ID), 1)
	assert.Len(t, escalations, 1)

	// A second run does not escalate again; the dispute now sits far
	// from its resolution deadline, so no admin warning either.
	summary, err = env.dispute.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Escalated)
	assert.Len(t, env.notificationsFor(t, admin1.ID), 1)
}

func TestResponderResolution(t *testing.T) {
	env := setupMonitorEnv(t)
	ctx := context.Background()

	openedByBrand := env.deliveredBooking(t, 10)
	env.openDispute(t, openedByBrand.ID, models.RoleBrand, time.Now().Add(30*time.Hour))

	openedByCreator := env.deliveredBooking(t, 10)
	env.openDispute(t, openedByCreator.ID, models.RoleCreator, time.Now().Add(30*time.Hour))

	_, err := env.dispute.Run(ctx)
	require.NoError(t, err)

	// Each party is addressed exactly for the dispute the other opened.
	creatorNotifications := env.notificationsFor(t, env.creator.ID)
	require.Len(t, creatorNotifications, 1)
	assert.Contains(t, creatorNotifications[0].Message, "Acme Co")

	brandNotifications := env.notificationsFor(t, env.brand.ID)
	require.Len(t, brandNotifications, 1)
	assert.Contains(t, brandNotifications[0].Message, "Ivy Lane")
}

func TestAdminResolutionWarningRepeats(t *testing.T) {
	env := setupMonitorEnv(t)
	ctx := context.Background()

	admin := env.admin(t, "Root", "root@collabhunts.com")

	booking := env.deliveredBooking(t, 10)
	dispute := env.openDispute(t, booking.ID, models.RoleBrand, time.Now().Add(-1*time.Hour))

	// Escalate, then move the resolution deadline into the warning window.
	require.NoError(t, env.db.EscalateDispute(ctx, dispute.ID, time.Now().Add(10*time.Hour)))

	summary, err := env.dispute.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.AdminWarnings)
	assert.Len(t, env.notificationsFor(t, admin.ID), 1)

	// Not flag-gated: the next run warns again.
	summary, err = env.dispute.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.AdminWarnings)
	assert.Len(t, env.notificationsFor(t, admin.ID), 2)
}

func TestPendingAdminReviewFarFromDeadlineIsQuiet(t *testing.T) {
	env := setupMonitorEnv(t)
	ctx := context.Background()

	env.admin(t, "Root", "root@collabhunts.com")

	booking := env.deliveredBooking(t, 10)
	dispute := env.openDispute(t, booking.ID, models.RoleBrand, time.Now().Add(-1*time.Hour))
	require.NoError(t, env.db.EscalateDispute(ctx, dispute.ID, time.Now().Add(6*24*time.Hour)))

	summary, err := env.dispute.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.DisputesProcessed)
	assert.Equal(t, 0, summary.AdminWarnings)
	assert.Equal(t, 0, summary.NotificationsSent)
}
