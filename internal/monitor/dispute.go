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

// DisputeSummary reports one dispute deadline monitor run.
type DisputeSummary struct {
	DisputesProcessed int `json:"disputesProcessed"`
	Escalated         int `json:"escalated"`
	Reminders         int `json:"reminders"`
	AdminWarnings     int `json:"adminWarnings"`
	NotificationsSent int `json:"notificationsSent"`
}

// DisputeMonitor walks open disputes: staged reminders for the party
// that owes a response, auto-escalation when the response deadline
// lapses, and repeated warnings to admins as the resolution deadline
// approaches.
type DisputeMonitor struct {
	store    domain.Store
	inserter *notify.Inserter
	bus      domain.EventPublisher
	mailer   domain.Mailer
	baseURL  string
	logger   zerolog.Logger
}

func NewDisputeMonitor(store domain.Store, inserter *notify.Inserter, bus domain.EventPublisher, mail domain.Mailer, baseURL string, logger *zerolog.Logger) *DisputeMonitor {
	return &DisputeMonitor{
		store:    store,
		inserter: inserter,
		bus:      bus,
		mailer:   mail,
		baseURL:  baseURL,
		logger:   logger.With().Str("component", "dispute-monitor").Logger(),
	}
}

// Run executes one batch pass over actionable disputes. Per-dispute
// errors are logged and the batch continues.
func (m *DisputeMonitor) Run(ctx context.Context) (DisputeSummary, error) {
	now := time.Now()

	cases, err := m.store.ListActionableDisputes(ctx)
	if err != nil {
		return DisputeSummary{}, fmt.Errorf("scan actionable disputes: %w", err)
	}

	summary := DisputeSummary{DisputesProcessed: len(cases)}
	batch := notify.NewBatch()

	// Admin fan-out targets are loaded once per run, and only if some
	// dispute actually needs them.
	var admins []*models.User

	for _, c := range cases {
		if c.Status == models.DisputePendingAdminReview && !m.adminWarningDue(c, now) {
			continue
		}

		if admins == nil && m.needsAdmins(c, now) {
			admins, err = m.store.ListAdmins(ctx)
			if err != nil {
				m.logger.Error().Err(err).Msg("admin lookup failed, skipping admin fan-out this run")
				admins = []*models.User{}
			}
		}

		if err := m.processDispute(ctx, c, now, admins, batch, &summary); err != nil {
			m.logger.Error().Err(err).Str("dispute_id", c.ID).Msg("dispute processing failed")
		}
	}

	summary.NotificationsSent = m.inserter.Flush(ctx, batch)

	m.logger.Info().
		Int("disputes", summary.DisputesProcessed).
		Int("escalated", summary.Escalated).
		Int("reminders", summary.Reminders).
		Int("admin_warnings", summary.AdminWarnings).
		Int("notifications", summary.NotificationsSent).
		Msg("dispute monitor run complete")
	return summary, nil
}

func (m *DisputeMonitor) needsAdmins(c *models.DisputeCase, now time.Time) bool {
	switch c.Status {
	case models.DisputePendingResponse:
		return c.HoursUntilResponseDeadline(now) <= 0 && !c.EscalatedToAdmin
	case models.DisputePendingAdminReview:
		return m.adminWarningDue(c, now)
	default:
		return false
	}
}

func (m *DisputeMonitor) adminWarningDue(c *models.DisputeCase, now time.Time) bool {
	if c.ResolutionDeadline == nil {
		return false
	}
	left := c.ResolutionDeadline.Sub(now).Hours()
	return left > 0 && left <= 24
}

func (m *DisputeMonitor) processDispute(ctx context.Context, c *models.DisputeCase, now time.Time, admins []*models.User, batch *notify.Batch, summary *DisputeSummary) error {
	switch c.Status {
	case models.DisputePendingResponse:
		return m.processPendingResponse(ctx, c, now, admins, batch, summary)
	case models.DisputePendingAdminReview:
		m.warnAdmins(c, admins, batch, summary)
		return nil
	default:
		return nil
	}
}

func (m *DisputeMonitor) processPendingResponse(ctx context.Context, c *models.DisputeCase, now time.Time, admins []*models.User, batch *notify.Batch, summary *DisputeSummary) error {
	hoursLeft := c.HoursUntilResponseDeadline(now)

	switch {
	case hoursLeft <= 0 && !c.EscalatedToAdmin:
		return m.escalate(ctx, c, now, admins, batch, summary)

	case hoursLeft > 0 && hoursLeft <= models.DisputeReminderDay3Hours && !c.ReminderSentDay3:
		return m.remind(ctx, c, database.ReminderDay3, batch, summary,
			fmt.Sprintf("Final Warning: Dispute Response Required (Booking #%d)", c.BookingID),
			fmt.Sprintf(
				"Less than 24 hours remain to respond to the dispute %s opened on booking #%d. Without a response it will be escalated to admin review.",
				c.OpenerName(), c.BookingID))

	case hoursLeft > models.DisputeReminderDay3Hours && hoursLeft <= models.DisputeReminderDay2Hours && !c.ReminderSentDay2:
		return m.remind(ctx, c, database.ReminderDay2, batch, summary,
			fmt.Sprintf("Dispute Response Reminder (Booking #%d)", c.BookingID),
			fmt.Sprintf(
				"You have 2 days left to respond to the dispute %s opened on booking #%d.",
				c.OpenerName(), c.BookingID))
	}

	return nil
}

// remind claims the flag before drafting so a concurrent run cannot
// double-send: whoever wins the conditional update owns the reminder.
func (m *DisputeMonitor) remind(ctx context.Context, c *models.DisputeCase, stage database.ReminderStage, batch *notify.Batch, summary *DisputeSummary, title, message string) error {
	err := m.store.MarkDisputeReminderSent(ctx, c.ID, stage)
	if errors.Is(err, database.ErrNoTransition) {
		m.logger.Debug().Str("dispute_id", c.ID).Str("stage", string(stage)).Msg("reminder already claimed")
		return nil
	}
	if err != nil {
		return fmt.Errorf("claim %s reminder: %w", stage, err)
	}

	batch.Add(notify.Draft{
		UserID:  c.ResponderID(),
		Title:   title,
		Message: message,
		Type:    models.NotificationTypeDispute,
		Link:    fmt.Sprintf("/disputes/%s", c.ID),
	})
	summary.Reminders++

	if m.mailer != nil {
		body := fmt.Sprintf("<p>%s</p><p><a href=\"%s/disputes/%s\">Respond to the dispute</a></p>",
			message, m.baseURL, c.ID)
		if err := m.mailer.Send(ctx, c.ResponderEmail(), title, body); err != nil {
			m.logger.Warn().Err(err).Str("dispute_id", c.ID).Msg("dispute reminder email failed")
		}
	}

	if m.bus != nil {
		_ = m.bus.PublishJSON(events.EventDisputeReminderSent, events.DisputeEventPayload{
			DisputeID:   c.ID,
			BookingID:   c.BookingID,
			Stage:       string(stage),
			ResponderID: c.ResponderID(),
		})
	}
	return nil
}

func (m *DisputeMonitor) escalate(ctx context.Context, c *models.DisputeCase, now time.Time, admins []*models.User, batch *notify.Batch, summary *DisputeSummary) error {
	resolutionDeadline := now.Add(models.AdminResolutionWindow)

	err := m.store.EscalateDispute(ctx, c.ID, resolutionDeadline)
	if errors.Is(err, database.ErrNoTransition) {
		m.logger.Debug().Str("dispute_id", c.ID).Msg("escalation already applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("escalate: %w", err)
	}

	summary.Escalated++

	message := fmt.Sprintf(
		"The dispute on booking #%d (%s vs %s) received no response before the deadline and needs admin review within 7 days.",
		c.BookingID, c.BrandName, c.CreatorName)

	for _, admin := range admins {
		batch.Add(notify.Draft{
			UserID:  admin.ID,
			Title:   fmt.Sprintf("Dispute Escalated to Admin Review (Booking #%d)", c.BookingID),
			Message: message,
			Type:    models.NotificationTypeDispute,
			Link:    fmt.Sprintf("/admin/disputes/%s", c.ID),
		})

		if m.mailer != nil {
			body := fmt.Sprintf("<p>%s</p><p><a href=\"%s/admin/disputes/%s\">Review the dispute</a></p>",
				message, m.baseURL, c.ID)
			if err := m.mailer.Send(ctx, admin.Email, "Dispute escalated to admin review", body); err != nil {
				m.logger.Warn().Err(err).Str("dispute_id", c.ID).Int64("admin_id", admin.ID).Msg("escalation email failed")
			}
		}
	}

	if m.bus != nil {
		_ = m.bus.PublishJSON(events.EventDisputeEscalated, events.DisputeEventPayload{
			DisputeID:          c.ID,
			BookingID:          c.BookingID,
			ResponderID:        c.ResponderID(),
			ResolutionDeadline: &resolutionDeadline,
		})
	}
	return nil
}

// warnAdmins repeats every run inside the 24-hour window before the
// resolution deadline. Deliberately not flag-gated: the repetition is
// the escalating-urgency behavior the product shipped with.
func (m *DisputeMonitor) warnAdmins(c *models.DisputeCase, admins []*models.User, batch *notify.Batch, summary *DisputeSummary) {
	message := fmt.Sprintf(
		"The escalated dispute on booking #%d must be resolved by %s.",
		c.BookingID, c.ResolutionDeadline.Format(time.RFC1123))

	for _, admin := range admins {
		batch.Add(notify.Draft{
			UserID:  admin.ID,
			Title:   fmt.Sprintf("Dispute Resolution Due Soon (Booking #%d)", c.BookingID),
			Message: message,
			Type:    models.NotificationTypeDispute,
			Link:    fmt.Sprintf("/admin/disputes/%s", c.ID),
		})
	}
	if len(admins) > 0 {
		summary.AdminWarnings++
	}
}
