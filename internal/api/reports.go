package api

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"collabhunts/internal/metrics"
)

// EscrowReporter produces the admin escrow snapshot and returns the
// path of the saved workbook.
type EscrowReporter interface {
	Generate(ctx context.Context) (string, error)
}

func (s *HTTPServer) handleEscrowReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.deps.Reporter == nil {
		writeError(w, http.StatusServiceUnavailable, "report export unavailable")
		return
	}

	metrics.IncHTTP("escrow-report")

	filePath, err := s.deps.Reporter.Generate(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("escrow report generation failed")
		writeError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(filePath)))
	http.ServeFile(w, r, filePath)
}
