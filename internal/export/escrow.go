package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"collabhunts/internal/config"
	"collabhunts/internal/domain"
	"collabhunts/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// EscrowExporter writes the admin escrow snapshot: every delivered
// booking still inside its review window and every dispute awaiting a
// response or an admin decision.
type EscrowExporter struct {
	cfg    config.ExportConfig
	store  domain.Store
	logger zerolog.Logger
}

func NewEscrowExporter(cfg config.ExportConfig, store domain.Store, logger *zerolog.Logger) *EscrowExporter {
	return &EscrowExporter{
		cfg:    cfg,
		store:  store,
		logger: logger.With().Str("component", "escrow-export").Logger(),
	}
}

const (
	sheetPending  = "Pending Releases"
	sheetDisputes = "Open Disputes"
)

// Generate builds the report and returns the saved file path.
func (e *EscrowExporter) Generate(ctx context.Context) (string, error) {
	if err := os.MkdirAll(e.cfg.Path, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	bookings, err := e.store.ListDeliveredPaidBookings(ctx)
	if err != nil {
		return "", fmt.Errorf("load pending bookings: %w", err)
	}
	disputes, err := e.store.ListActionableDisputes(ctx)
	if err != nil {
		return "", fmt.Errorf("load open disputes: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	now := time.Now()
	if err := e.writePendingSheet(f, bookings, now); err != nil {
		return "", err
	}
	if err := e.writeDisputeSheet(f, disputes, now); err != nil {
		return "", err
	}
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("escrow_report_%s.xlsx", now.Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.cfg.Path, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}

	e.logger.Info().
		Str("file_path", filePath).
		Int("bookings", len(bookings)).
		Int("disputes", len(disputes)).
		Msg("escrow report created")
	return filePath, nil
}

func (e *EscrowExporter) writePendingSheet(f *excelize.File, bookings []*models.Booking, now time.Time) error {
	index, err := f.NewSheet(sheetPending)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"Booking ID", "Brand", "Creator", "Amount",
		"Delivered At", "Hours In Review", "Auto-Release At",
	}
	writeHeaderRow(f, sheetPending, headers)

	for i, b := range bookings {
		row := i + 2
		_ = f.SetCellValue(sheetPending, fmt.Sprintf("A%d", row), b.ID)
		_ = f.SetCellValue(sheetPending, fmt.Sprintf("B%d", row), b.BrandName)
		_ = f.SetCellValue(sheetPending, fmt.Sprintf("C%d", row), b.CreatorName)
		_ = f.SetCellValue(sheetPending, fmt.Sprintf("D%d", row), b.TotalPrice)
		if b.DeliveredAt != nil {
			_ = f.SetCellValue(sheetPending, fmt.Sprintf("E%d", row), b.DeliveredAt.Format("02.01.2006 15:04"))
			releaseAt := b.DeliveredAt.Add(models.ReviewWindowHours * time.Hour)
			_ = f.SetCellValue(sheetPending, fmt.Sprintf("F%d", row), fmt.Sprintf("%.1f", b.HoursSinceDelivery(now)))
			_ = f.SetCellValue(sheetPending, fmt.Sprintf("G%d", row), releaseAt.Format("02.01.2006 15:04"))
		}
	}

	_ = f.SetColWidth(sheetPending, "A", "A", 12)
	_ = f.SetColWidth(sheetPending, "B", "C", 22)
	_ = f.SetColWidth(sheetPending, "D", "F", 15)
	_ = f.SetColWidth(sheetPending, "G", "G", 20)
	return nil
}

func (e *EscrowExporter) writeDisputeSheet(f *excelize.File, disputes []*models.DisputeCase, now time.Time) error {
	if _, err := f.NewSheet(sheetDisputes); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	headers := []string{
		"Dispute ID", "Booking ID", "Status", "Opened By",
		"Brand", "Creator", "Response Deadline", "Hours Left", "Resolution Deadline",
	}
	writeHeaderRow(f, sheetDisputes, headers)

	for i, d := range disputes {
		row := i + 2
		_ = f.SetCellValue(sheetDisputes, fmt.Sprintf("A%d", row), d.ID)
		_ = f.SetCellValue(sheetDisputes, fmt.Sprintf("B%d", row), d.BookingID)
		_ = f.SetCellValue(sheetDisputes, fmt.Sprintf("C%d", row), string(d.Status))
		_ = f.SetCellValue(sheetDisputes, fmt.Sprintf("D%d", row), string(d.OpenedBy))
		_ = f.SetCellValue(sheetDisputes, fmt.Sprintf("E%d", row), d.BrandName)
		_ = f.SetCellValue(sheetDisputes, fmt.Sprintf("F%d", row), d.CreatorName)
		_ = f.SetCellValue(sheetDisputes, fmt.Sprintf("G%d", row), d.ResponseDeadline.Format("02.01.2006 15:04"))
		if d.Status == models.DisputePendingResponse {
			_ = f.SetCellValue(sheetDisputes, fmt.Sprintf("H%d", row), fmt.Sprintf("%.1f", d.HoursUntilResponseDeadline(now)))
		}
		if d.ResolutionDeadline != nil {
			_ = f.SetCellValue(sheetDisputes, fmt.Sprintf("I%d", row), d.ResolutionDeadline.Format("02.01.2006 15:04"))
		}
	}

	_ = f.SetColWidth(sheetDisputes, "A", "A", 38)
	_ = f.SetColWidth(sheetDisputes, "B", "D", 15)
	_ = f.SetColWidth(sheetDisputes, "E", "F", 22)
	_ = f.SetColWidth(sheetDisputes, "G", "I", 20)
	return nil
}

func writeHeaderRow(f *excelize.File, sheet string, headers []string) {
	style, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, header)
		_ = f.SetCellStyle(sheet, cell, cell, style)
	}
}
