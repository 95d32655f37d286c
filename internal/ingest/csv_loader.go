// Package ingest loads raw invoice documents from CSV datasets and
// standalone files for batch processing.
package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cobreops/invoice-triage/internal/batch"
)

// CSVLoader reads invoice datasets with "id" and "content" columns.
type CSVLoader struct {
	logger *zap.Logger
}

// NewCSVLoader creates a new CSV dataset loader
func NewCSVLoader(logger *zap.Logger) *CSVLoader {
	return &CSVLoader{logger: logger}
}

// Load reads the dataset and returns documents for rows [start, end).
// end < 0 means through the last row.
func (l *CSVLoader) Load(path string, start, end int) ([]batch.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("dataset %s is empty", path)
	}

	idCol, contentCol, err := findColumns(rows[0])
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}

	data := rows[1:]
	if start < 0 {
		start = 0
	}
	if end < 0 || end > len(data) {
		end = len(data)
	}
	if start > end {
		return nil, fmt.Errorf("invalid row range [%d, %d)", start, end)
	}

	docs := make([]batch.Document, 0, end-start)
	for i, row := range data[start:end] {
		if len(row) <= idCol || len(row) <= contentCol {
			l.logger.Warn("Skipping malformed row", zap.Int("row", start+i+1))
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(row[idCol]), 10, 64)
		if err != nil {
			l.logger.Warn("Skipping row with non-numeric id",
				zap.Int("row", start+i+1),
				zap.String("id", row[idCol]))
			continue
		}
		docs = append(docs, batch.Document{ID: id, Content: row[contentCol]})
	}

	l.logger.Info("Dataset loaded",
		zap.String("path", path),
		zap.Int("rows", len(data)),
		zap.Int("selected", len(docs)))

	return docs, nil
}

func findColumns(header []string) (idCol, contentCol int, err error) {
	idCol, contentCol = -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "id":
			idCol = i
		case "content":
			contentCol = i
		}
	}
	if idCol < 0 || contentCol < 0 {
		return 0, 0, fmt.Errorf("dataset must contain 'id' and 'content' columns")
	}
	return idCol, contentCol, nil
}
