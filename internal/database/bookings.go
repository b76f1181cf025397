package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"collabhunts/internal/models"
)

const bookingColumns = `b.id, b.brand_id, bu.display_name, bu.email,
        b.creator_id, cu.display_name, cu.email,
        b.total_price, b.payment_status, b.delivery_status, b.delivered_at,
        b.status, b.created_at, b.updated_at, b.version`

const bookingJoins = `FROM bookings b
        JOIN users bu ON bu.id = b.brand_id
        JOIN users cu ON cu.id = b.creator_id`

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	var b models.Booking
	var deliveredAt sql.NullTime
	err := row.Scan(
		&b.ID, &b.BrandID, &b.BrandName, &b.BrandEmail,
		&b.CreatorID, &b.CreatorName, &b.CreatorEmail,
		&b.TotalPrice, &b.PaymentStatus, &b.DeliveryStatus, &deliveredAt,
		&b.Status, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time
		b.DeliveredAt = &t
	}
	return &b, nil
}

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (
				brand_id, creator_id, total_price, payment_status,
				delivery_status, delivered_at, status, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.db.ExecContext(ctx, query,
		booking.BrandID,
		booking.CreatorID,
		booking.TotalPrice,
		booking.PaymentStatus,
		booking.DeliveryStatus,
		booking.DeliveredAt,
		booking.Status,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get booking insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1

	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` ` + bookingJoins + ` WHERE b.id = ?`
	b, err := scanBooking(db.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return b, nil
}

// ListDeliveredPaidBookings returns the auto-release scan set: delivered,
// paid, with a delivery timestamp, joined with both parties' names.
func (db *DB) ListDeliveredPaidBookings(ctx context.Context) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` ` + bookingJoins + `
        WHERE b.delivery_status = ?
          AND b.payment_status = ?
          AND b.delivered_at IS NOT NULL
        ORDER BY b.delivered_at`

	rows, err := db.db.QueryContext(ctx, query, models.DeliveryDelivered, models.PaymentPaid)
	if err != nil {
		return nil, fmt.Errorf("list delivered paid bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// ConfirmDeliveredBooking finalizes a booking after the review window:
// delivery confirmed, booking completed. The WHERE clause doubles as an
// optimistic guard so overlapping runs cannot apply the transition twice.
func (db *DB) ConfirmDeliveredBooking(ctx context.Context, id int64) error {
	query := `UPDATE bookings
        SET delivery_status = ?, status = ?, updated_at = ?, version = version + 1
        WHERE id = ? AND delivery_status = ? AND payment_status = ?`

	result, err := db.db.ExecContext(ctx, query,
		models.DeliveryConfirmed, models.BookingCompleted, time.Now(),
		id, models.DeliveryDelivered, models.PaymentPaid,
	)
	if err != nil {
		return fmt.Errorf("confirm booking %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("confirm booking %d: rows affected: %w", id, err)
	}
	if affected == 0 {
		return ErrNoTransition
	}
	return nil
}

// MarkBookingDelivered is used by tests and fixtures to move a booking
// into the scan set the way the delivery flow would.
func (db *DB) MarkBookingDelivered(ctx context.Context, id int64, deliveredAt time.Time) error {
	query := `UPDATE bookings
        SET delivery_status = ?, delivered_at = ?, updated_at = ?
        WHERE id = ? AND delivery_status = ?`

	result, err := db.db.ExecContext(ctx, query,
		models.DeliveryDelivered, deliveredAt, time.Now(),
		id, models.DeliveryNotDelivered,
	)
	if err != nil {
		return fmt.Errorf("mark booking %d delivered: %w", id, err)
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
