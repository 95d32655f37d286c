package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/cobreops/invoice-triage/internal/models"
	"github.com/cobreops/invoice-triage/internal/output"
)

// ExcelReporter writes a per-batch summary workbook with one row per
// invoice and an aggregate metrics sheet.
type ExcelReporter struct {
	outputDir string
	logger    *zap.Logger
}

// NewExcelReporter creates a new Excel summary reporter
func NewExcelReporter(outputDir string, logger *zap.Logger) *ExcelReporter {
	return &ExcelReporter{outputDir: outputDir, logger: logger}
}

var resultHeaders = []string{
	"Invoice ID", "Document Type", "Language", "Vendor", "Amount",
	"Currency", "Risk Score", "Risk Level", "Decision", "Override Reason",
	"Valid", "Cache Hit",
}

// Write builds the workbook and returns the path of the written file.
func (r *ExcelReporter) Write(records []*output.Record, summary models.MetricsSummary) (string, error) {
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const resultsSheet = "Results"
	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return "", fmt.Errorf("failed to rename sheet: %w", err)
	}

	for col, header := range resultHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(resultsSheet, cell, header); err != nil {
			return "", fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, rec := range records {
		row := i + 2
		values := []interface{}{
			rec.InvoiceID,
			string(rec.DocumentMetadata.Type),
			rec.DocumentMetadata.Language,
			rec.ExtractedData.Vendor,
			rec.ExtractedData.Amount,
			rec.ExtractedData.Currency,
			rec.DocumentMetadata.RiskScore,
			string(rec.Approval.RiskLevel),
			string(rec.Approval.Decision),
			rec.Approval.OverrideReason,
			rec.Validation.IsValid,
			rec.AuditTrail.CacheHit,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(resultsSheet, cell, v); err != nil {
				return "", fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}

	if err := r.writeSummarySheet(f, summary); err != nil {
		return "", err
	}

	path := filepath.Join(r.outputDir,
		fmt.Sprintf("triage_summary_%s.xlsx", time.Now().Format("20060102_150405")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	r.logger.Info("Excel summary saved",
		zap.String("path", path),
		zap.Int("records", len(records)))

	return path, nil
}

func (r *ExcelReporter) writeSummarySheet(f *excelize.File, summary models.MetricsSummary) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Total processed", summary.TotalProcessed},
		{"Auto-approved", summary.AutoApproved, pctCell(summary.AutoApprovedPct)},
		{"Supervisor review", summary.SupervisorReview, pctCell(summary.SupervisorReviewPct)},
		{"Manager review", summary.ManagerReview, pctCell(summary.ManagerReviewPct)},
		{"Executive review", summary.ExecutiveReview, pctCell(summary.ExecutiveReviewPct)},
		{"Rejected", summary.Rejected, pctCell(summary.RejectedPct)},
		{},
		{"Validation errors", summary.ValidationErrors},
		{"Critical anomalies", summary.CriticalAnomalies},
		{"Document escalations", summary.DocumentEscalations},
		{"High-risk scores", summary.HighRiskScores},
		{"Extraction calls", summary.ExtractionCalls},
		{"Extraction failures", summary.ExtractionFailures},
		{"Cache hits", summary.CacheHits},
		{"Fingerprint collisions", summary.FingerprintCollisions},
		{"Avg processing seconds", summary.AvgProcessingSeconds},
	}

	for i, row := range rows {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+1)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write summary row %d: %w", i+1, err)
			}
		}
	}

	return nil
}

func pctCell(v float64) string {
	return strings.TrimSpace(fmt.Sprintf("%.1f%%", v))
}
