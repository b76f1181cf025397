package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"collabhunts/internal/models"

	"github.com/google/uuid"
)

// ReminderStage selects which flag-gated dispute reminder to record.
type ReminderStage string

const (
	ReminderDay2 ReminderStage = "day2"
	ReminderDay3 ReminderStage = "day3"
)

const disputeColumns = `d.id, d.booking_id, d.opened_by, d.status, d.reason,
        d.response_deadline, d.resolution_deadline,
        d.reminder_sent_day2, d.reminder_sent_day3, d.escalated_to_admin,
        d.created_at, d.updated_at`

func scanDispute(row interface{ Scan(...any) error }, extra ...any) (*models.Dispute, error) {
	var d models.Dispute
	var reason sql.NullString
	var resolutionDeadline sql.NullTime

	dest := []any{
		&d.ID, &d.BookingID, &d.OpenedBy, &d.Status, &reason,
		&d.ResponseDeadline, &resolutionDeadline,
		&d.ReminderSentDay2, &d.ReminderSentDay3, &d.EscalatedToAdmin,
		&d.CreatedAt, &d.UpdatedAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	d.Reason = reason.String
	if resolutionDeadline.Valid {
		t := resolutionDeadline.Time
		d.ResolutionDeadline = &t
	}
	return &d, nil
}

func (db *DB) CreateDispute(ctx context.Context, dispute *models.Dispute) error {
	if dispute.ID == "" {
		dispute.ID = uuid.NewString()
	}
	if dispute.Status == "" {
		dispute.Status = models.DisputePendingResponse
	}

	query := `INSERT INTO disputes (
				id, booking_id, opened_by, status, reason,
				response_deadline, resolution_deadline,
				reminder_sent_day2, reminder_sent_day3, escalated_to_admin,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	_, err := db.db.ExecContext(ctx, query,
		dispute.ID,
		dispute.BookingID,
		dispute.OpenedBy,
		dispute.Status,
		dispute.Reason,
		dispute.ResponseDeadline,
		dispute.ResolutionDeadline,
		dispute.ReminderSentDay2,
		dispute.ReminderSentDay3,
		dispute.EscalatedToAdmin,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("create dispute: %w", err)
	}
	dispute.CreatedAt = now
	dispute.UpdatedAt = now
	return nil
}

func (db *DB) GetDispute(ctx context.Context, id string) (*models.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes d WHERE d.id = ?`
	d, err := scanDispute(db.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dispute %s: %w", id, err)
	}
	return d, nil
}

// HasOpenDispute reports whether the booking has any non-resolved
// dispute. An open dispute freezes the auto-release clock.
func (db *DB) HasOpenDispute(ctx context.Context, bookingID int64) (bool, error) {
	query := `SELECT COUNT(*) FROM disputes WHERE booking_id = ? AND status IN (?, ?)`
	var count int
	err := db.db.QueryRowContext(ctx, query, bookingID,
		models.DisputePendingResponse, models.DisputePendingAdminReview).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check open dispute for booking %d: %w", bookingID, err)
	}
	return count > 0, nil
}

// ListActionableDisputes returns every dispute awaiting a response or
// admin review, joined with booking parties for notification targeting.
func (db *DB) ListActionableDisputes(ctx context.Context) ([]*models.DisputeCase, error) {
	query := `SELECT ` + disputeColumns + `,
            b.brand_id, bu.display_name, bu.email,
            b.creator_id, cu.display_name, cu.email
        FROM disputes d
        JOIN bookings b ON b.id = d.booking_id
        JOIN users bu ON bu.id = b.brand_id
        JOIN users cu ON cu.id = b.creator_id
        WHERE d.status IN (?, ?)
        ORDER BY d.response_deadline`

	rows, err := db.db.QueryContext(ctx, query,
		models.DisputePendingResponse, models.DisputePendingAdminReview)
	if err != nil {
		return nil, fmt.Errorf("list actionable disputes: %w", err)
	}
	defer rows.Close()

	var cases []*models.DisputeCase
	for rows.Next() {
		var c models.DisputeCase
		d, err := scanDispute(rows,
			&c.BrandID, &c.BrandName, &c.BrandEmail,
			&c.CreatorID, &c.CreatorName, &c.CreatorEmail)
		if err != nil {
			return nil, fmt.Errorf("scan dispute: %w", err)
		}
		c.Dispute = *d
		cases = append(cases, &c)
	}
	return cases, rows.Err()
}

// MarkDisputeReminderSent flips one of the monotonic reminder flags.
// The flag and status preconditions make the write claimable exactly
// once; ErrNoTransition means another run already claimed it.
func (db *DB) MarkDisputeReminderSent(ctx context.Context, id string, stage ReminderStage) error {
	var column string
	switch stage {
	case ReminderDay2:
		column = "reminder_sent_day2"
	case ReminderDay3:
		column = "reminder_sent_day3"
	default:
		return fmt.Errorf("unknown reminder stage %q", stage)
	}

	query := `UPDATE disputes SET ` + column + ` = 1, updated_at = ?
        WHERE id = ? AND ` + column + ` = 0 AND status = ?`

	result, err := db.db.ExecContext(ctx, query, time.Now(), id, models.DisputePendingResponse)
	if err != nil {
		return fmt.Errorf("mark dispute %s reminder %s: %w", id, stage, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoTransition
	}
	return nil
}

// EscalateDispute moves an unanswered dispute to admin review and sets
// the admin resolution deadline. Conditional on the pre-escalation
// state so concurrent runs escalate at most once.
func (db *DB) EscalateDispute(ctx context.Context, id string, resolutionDeadline time.Time) error {
	query := `UPDATE disputes
        SET status = ?, escalated_to_admin = 1, resolution_deadline = ?, updated_at = ?
        WHERE id = ? AND status = ? AND escalated_to_admin = 0`

	result, err := db.db.ExecContext(ctx, query,
		models.DisputePendingAdminReview, resolutionDeadline, time.Now(),
		id, models.DisputePendingResponse,
	)
	if err != nil {
		return fmt.Errorf("escalate dispute %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoTransition
	}
	return nil
}

// ResolveDispute records an admin resolution. Outside the monitors'
// scope but needed by the admin surface and tests.
func (db *DB) ResolveDispute(ctx context.Context, id string, outcome models.DisputeStatus) error {
	if !outcome.Resolved() {
		return fmt.Errorf("status %q is not a resolution", outcome)
	}

	query := `UPDATE disputes SET status = ?, updated_at = ?
        WHERE id = ? AND status IN (?, ?)`

	result, err := db.db.ExecContext(ctx, query, outcome, time.Now(), id,
		models.DisputePendingResponse, models.DisputePendingAdminReview)
	if err != nil {
		return fmt.Errorf("resolve dispute %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoTransition
	}
	return nil
}
