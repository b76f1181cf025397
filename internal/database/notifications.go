package database

import (
	"context"
	"fmt"
	"time"

	"collabhunts/internal/models"

	"github.com/google/uuid"
)

// InsertNotifications bulk-inserts a batch inside one transaction.
// Callers dedupe before calling; an empty batch is a no-op.
func (db *DB) InsertNotifications(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin notification insert: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO notifications (
			id, user_id, title, message, type, link, is_read, created_at
		) VALUES (?, ?, ?, ?, ?, ?, 0, ?)`)
	if err != nil {
		return fmt.Errorf("prepare notification insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, n := range notifications {
		id := n.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx, id, n.UserID, n.Title, n.Message, n.Type, n.Link, now); err != nil {
			return fmt.Errorf("insert notification for user %d: %w", n.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit notification insert: %w", err)
	}
	return nil
}

func (db *DB) ListNotificationsForUser(ctx context.Context, userID int64, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, user_id, title, message, type, link, is_read, created_at
        FROM notifications WHERE user_id = ?
        ORDER BY created_at DESC LIMIT ?`

	rows, err := db.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications for user %d: %w", userID, err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

func (db *DB) MarkNotificationRead(ctx context.Context, id string) error {
	result, err := db.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ? AND is_read = 0`, id)
	if err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) CountUnreadNotifications(ctx context.Context, userID int64) (int, error) {
	var count int
	err := db.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications for user %d: %w", userID, err)
	}
	return count, nil
}
