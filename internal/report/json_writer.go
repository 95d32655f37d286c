// Package report writes batch results to disk: a JSON results file per
// run and an optional Excel summary workbook.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cobreops/invoice-triage/internal/output"
)

// JSONWriter serializes integration records to a timestamped file.
type JSONWriter struct {
	outputDir string
	logger    *zap.Logger
}

// NewJSONWriter creates a new JSON results writer
func NewJSONWriter(outputDir string, logger *zap.Logger) *JSONWriter {
	return &JSONWriter{outputDir: outputDir, logger: logger}
}

// Write saves the records and returns the path of the written file.
func (w *JSONWriter) Write(records []*output.Record) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(w.outputDir,
		fmt.Sprintf("triage_results_%s.json", time.Now().Format("20060102_150405")))

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write results: %w", err)
	}

	w.logger.Info("Results saved",
		zap.String("path", path),
		zap.Int("records", len(records)))

	return path, nil
}
