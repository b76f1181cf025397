package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"collabhunts/internal/config"
	"collabhunts/internal/metrics"
	"collabhunts/internal/monitor"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the two monitors as HTTP-triggered functions for
// an external scheduler, plus the thin notification read surface and
// the admin escrow report.
type HTTPServer struct {
	cfg    config.APIConfig
	deps   Deps
	server *http.Server
	auth   *HTTPAuth
	logger zerolog.Logger
}

// Deps collects the collaborators the handlers dispatch to.
type Deps struct {
	Delivery *monitor.DeliveryMonitor
	Dispute  *monitor.DisputeMonitor
	Store    NotificationStore
	Reporter EscrowReporter
}

func NewHTTPServer(cfg config.APIConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:    cfg,
		deps:   deps,
		auth:   NewHTTPAuth(cfg),
		logger: logger.With().Str("component", "http-api").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/functions/v1/check-pending-payments", srv.handleCheckPendingPayments)
	mux.HandleFunc("/functions/v1/check-dispute-deadlines", srv.handleCheckDisputeDeadlines)
	mux.HandleFunc("/api/v1/notifications", srv.handleListNotifications)
	mux.HandleFunc("/api/v1/notifications/", srv.handleMarkNotificationRead)
	mux.HandleFunc("/api/v1/reports/escrow", srv.handleEscrowReport)
	mux.HandleFunc("/healthz", srv.handleHealthz)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the configured handler chain for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// triggerResponse is the envelope the scheduler caller sees.
type triggerResponse struct {
	Success           bool   `json:"success"`
	BookingsProcessed *int   `json:"bookingsProcessed,omitempty"`
	DisputesProcessed *int   `json:"disputesProcessed,omitempty"`
	NotificationsSent *int   `json:"notificationsSent,omitempty"`
	Error             string `json:"error,omitempty"`
}

// writeCORS answers scheduler preflight. The trigger endpoints are
// callable from anywhere; auth still applies to the actual invocation.
func writeCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "authorization, x-api-key, content-type")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
}

func (s *HTTPServer) handleCheckPendingPayments(w http.ResponseWriter, r *http.Request) {
	writeCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	metrics.IncHTTP("check-pending-payments")

	start := time.Now()
	summary, err := s.deps.Delivery.Run(r.Context())
	if err != nil {
		metrics.ObserveRun("delivery", "error", time.Since(start))
		s.logger.Error().Err(err).Msg("delivery monitor trigger failed")
		writeJSON(w, http.StatusInternalServerError, triggerResponse{Success: false, Error: err.Error()})
		return
	}
	metrics.ObserveRun("delivery", "success", time.Since(start))

	writeJSON(w, http.StatusOK, triggerResponse{
		Success:           true,
		BookingsProcessed: &summary.BookingsProcessed,
		NotificationsSent: &summary.NotificationsSent,
	})
}

func (s *HTTPServer) handleCheckDisputeDeadlines(w http.ResponseWriter, r *http.Request) {
	writeCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	metrics.IncHTTP("check-dispute-deadlines")

	start := time.Now()
	summary, err := s.deps.Dispute.Run(r.Context())
	if err != nil {
		metrics.ObserveRun("dispute", "error", time.Since(start))
		s.logger.Error().Err(err).Msg("dispute monitor trigger failed")
		writeJSON(w, http.StatusInternalServerError, triggerResponse{Success: false, Error: err.Error()})
		return
	}
	metrics.ObserveRun("dispute", "success", time.Since(start))

	writeJSON(w, http.StatusOK, triggerResponse{
		Success:           true,
		DisputesProcessed: &summary.DisputesProcessed,
		NotificationsSent: &summary.NotificationsSent,
	})
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}
