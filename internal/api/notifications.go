package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"collabhunts/internal/database"
	"collabhunts/internal/models"
)

// NotificationStore is the read surface the API needs from persistence.
type NotificationStore interface {
	ListNotificationsForUser(ctx context.Context, userID int64, limit int) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	CountUnreadNotifications(ctx context.Context, userID int64) (int, error)
}

func (s *HTTPServer) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.deps.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "notification store unavailable")
		return
	}

	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
	}

	notifications, err := s.deps.Store.ListNotificationsForUser(r.Context(), userID, limit)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("list notifications failed")
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}

	unread, err := s.deps.Store.CountUnreadNotifications(r.Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("count unread failed")
		writeError(w, http.StatusInternalServerError, "failed to count unread notifications")
		return
	}

	if notifications == nil {
		notifications = []*models.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"notifications": notifications,
		"unreadCount":   unread,
	})
}

// handleMarkNotificationRead serves POST /api/v1/notifications/{id}/read.
func (s *HTTPServer) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.deps.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "notification store unavailable")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/notifications/")
	id, ok := strings.CutSuffix(rest, "/read")
	if !ok || id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if err := s.deps.Store.MarkNotificationRead(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "notification not found or already read")
			return
		}
		s.logger.Error().Err(err).Str("notification_id", id).Msg("mark read failed")
		writeError(w, http.StatusInternalServerError, "failed to mark notification read")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
