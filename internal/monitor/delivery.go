package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"collabhunts/internal/database"
	"collabhunts/internal/domain"
	"collabhunts/internal/events"
	"collabhunts/internal/models"
	"collabhunts/internal/notify"

	"github.com/rs/zerolog"
)

// DeliverySummary reports one auto-release monitor run.
type DeliverySummary struct {
	BookingsProcessed int `json:"bookingsProcessed"`
	Released          int `json:"released"`
	Reminders         int `json:"reminders"`
	NotificationsSent int `json:"notificationsSent"`
}

// DeliveryMonitor scans delivered-and-paid bookings, reminds the brand
// during the review window and finalizes the booking once the window
// elapses. An open dispute freezes a booking entirely.
type DeliveryMonitor struct {
	store    domain.Store
	inserter *notify.Inserter
	bus      domain.EventPublisher
	mailer   domain.Mailer
	baseURL  string
	logger   zerolog.Logger
}

func NewDeliveryMonitor(store domain.Store, inserter *notify.Inserter, bus domain.EventPublisher, mail domain.Mailer, baseURL string, logger *zerolog.Logger) *DeliveryMonitor {
	return &DeliveryMonitor{
		store:    store,
		inserter: inserter,
		bus:      bus,
		mailer:   mail,
		baseURL:  baseURL,
		logger:   logger.With().Str("component", "delivery-monitor").Logger(),
	}
}

// Run executes one batch pass. Only the top-level scan query can fail
// the run; per-booking errors are logged and the batch continues.
func (m *DeliveryMonitor) Run(ctx context.Context) (DeliverySummary, error) {
	now := time.Now()

	bookings, err := m.store.ListDeliveredPaidBookings(ctx)
	if err != nil {
		return DeliverySummary{}, fmt.Errorf("scan delivered bookings: %w", err)
	}

	summary := DeliverySummary{BookingsProcessed: len(bookings)}
	batch := notify.NewBatch()

	for _, booking := range bookings {
		if err := m.processBooking(ctx, booking, now, batch, &summary); err != nil {
			m.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("booking processing failed")
		}
	}

	summary.NotificationsSent = m.inserter.Flush(ctx, batch)

	m.logger.Info().
		Int("bookings", summary.BookingsProcessed).
		Int("released", summary.Released).
		Int("reminders", summary.Reminders).
		Int("notifications", summary.NotificationsSent).
		Msg("delivery monitor run complete")
	return summary, nil
}

func (m *DeliveryMonitor) processBooking(ctx context.Context, booking *models.Booking, now time.Time, batch *notify.Batch, summary *DeliverySummary) error {
	if booking.DeliveredAt == nil {
		// Scan filter excludes these; guard against a drifted row.
		return nil
	}

	disputed, err := m.store.HasOpenDispute(ctx, booking.ID)
	if err != nil {
		// Without a dispute answer the booking must not be touched.
		return fmt.Errorf("check open dispute: %w", err)
	}
	if disputed {
		m.logger.Debug().Int64("booking_id", booking.ID).Msg("auto-release frozen by open dispute")
		return nil
	}

	hours := booking.HoursSinceDelivery(now)

	switch {
	case hours >= models.ReviewWindowHours:
		return m.release(ctx, booking, batch, summary)

	case hours >= models.ReviewFinalWarningHour && hours < models.ReviewFinalWarningHour+1:
		batch.Add(notify.Draft{
			UserID: booking.BrandID,
			Title:  fmt.Sprintf("Final Warning: Payment Auto-Release (Booking #%d)", booking.ID),
			Message: fmt.Sprintf(
				"Less than 1 hour left to review the delivery from %s for booking #%d. After that the payment is released automatically.",
				booking.CreatorName, booking.ID),
			Type: models.NotificationTypeBooking,
			Link: fmt.Sprintf("/bookings/%d", booking.ID),
		})
		m.emailBrand(ctx, booking, "Final warning: payment auto-release in under 1 hour")
		m.publishReminder(booking, "review_final")
		summary.Reminders++

	case hours >= models.ReviewReminderHour && hours < models.ReviewReminderHour+1:
		batch.Add(notify.Draft{
			UserID: booking.BrandID,
			Title:  fmt.Sprintf("Delivery Review Reminder (Booking #%d)", booking.ID),
			Message: fmt.Sprintf(
				"%s delivered the work for booking #%d. You have 24 hours left to review before the payment is released automatically.",
				booking.CreatorName, booking.ID),
			Type: models.NotificationTypeBooking,
			Link: fmt.Sprintf("/bookings/%d", booking.ID),
		})
		m.emailBrand(ctx, booking, "24 hours left to review your delivery")
		m.publishReminder(booking, "review_24h_left")
		summary.Reminders++
	}

	return nil
}

func (m *DeliveryMonitor) release(ctx context.Context, booking *models.Booking, batch *notify.Batch, summary *DeliverySummary) error {
	err := m.store.ConfirmDeliveredBooking(ctx, booking.ID)
	if errors.Is(err, database.ErrNoTransition) {
		// Another run or an explicit brand confirmation got there first.
		m.logger.Debug().Int64("booking_id", booking.ID).Msg("auto-release already applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("auto-release: %w", err)
	}

	summary.Released++

	batch.Add(notify.Draft{
		UserID: booking.CreatorID,
		Title:  fmt.Sprintf("Payment Released (Booking #%d)", booking.ID),
		Message: fmt.Sprintf(
			"The review window for booking #%d with %s has ended. Your payment has been released.",
			booking.ID, booking.BrandName),
		Type: models.NotificationTypeBooking,
		Link: fmt.Sprintf("/bookings/%d", booking.ID),
	})
	batch.Add(notify.Draft{
		UserID: booking.BrandID,
		Title:  fmt.Sprintf("Booking Auto-Completed (Booking #%d)", booking.ID),
		Message: fmt.Sprintf(
			"Booking #%d with %s was automatically confirmed after the 72-hour review window.",
			booking.ID, booking.CreatorName),
		Type: models.NotificationTypeBooking,
		Link: fmt.Sprintf("/bookings/%d", booking.ID),
	})

	if m.mailer != nil {
		body := fmt.Sprintf(
			"<p>The payment for <a href=\"%s/bookings/%d\">booking #%d</a> has been released.</p>",
			m.baseURL, booking.ID, booking.ID)
		if err := m.mailer.Send(ctx, booking.CreatorEmail, "Your payment has been released", body); err != nil {
			m.logger.Warn().Err(err).Int64("booking_id", booking.ID).Msg("release email failed")
		}
	}

	if m.bus != nil {
		_ = m.bus.PublishJSON(events.EventBookingAutoReleased, events.BookingEventPayload{
			BookingID:   booking.ID,
			BrandID:     booking.BrandID,
			CreatorID:   booking.CreatorID,
			TotalPrice:  booking.TotalPrice,
			DeliveredAt: booking.DeliveredAt,
		})
	}
	return nil
}

func (m *DeliveryMonitor) emailBrand(ctx context.Context, booking *models.Booking, subject string) {
	if m.mailer == nil {
		return
	}
	body := fmt.Sprintf(
		"<p><a href=\"%s/bookings/%d\">Booking #%d</a> is waiting for your review.</p>",
		m.baseURL, booking.ID, booking.ID)
	if err := m.mailer.Send(ctx, booking.BrandEmail, subject, body); err != nil {
		m.logger.Warn().Err(err).Int64("booking_id", booking.ID).Msg("reminder email failed")
	}
}

func (m *DeliveryMonitor) publishReminder(booking *models.Booking, kind string) {
	if m.bus == nil {
		return
	}
	_ = m.bus.PublishJSON(events.EventBookingReviewReminder, map[string]any{
		"booking_id": booking.ID,
		"kind":       kind,
	})
}
