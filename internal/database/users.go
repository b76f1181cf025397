package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"collabhunts/internal/models"
)

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (display_name, email, role, is_admin, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.db.ExecContext(ctx, query,
		user.DisplayName, user.Email, user.Role, user.IsAdmin, now, now)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get user insert id: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (db *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, display_name, email, role, is_admin, created_at, updated_at
        FROM users WHERE id = ?`

	var u models.User
	err := db.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.DisplayName, &u.Email, &u.Role, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}

// ListAdmins returns every admin user, for escalation fan-out.
func (db *DB) ListAdmins(ctx context.Context) ([]*models.User, error) {
	query := `SELECT id, display_name, email, role, is_admin, created_at, updated_at
        FROM users WHERE is_admin = 1 ORDER BY id`

	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var admins []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.DisplayName, &u.Email, &u.Role, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan admin user: %w", err)
		}
		admins = append(admins, &u)
	}
	return admins, rows.Err()
}
