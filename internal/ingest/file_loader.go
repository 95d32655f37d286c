package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/cobreops/invoice-triage/internal/batch"
)

// FileLoader reads standalone document files. PDFs go through mupdf text
// extraction; everything else (.txt, .json, .eml) is read verbatim.
type FileLoader struct {
	logger *zap.Logger
}

// NewFileLoader creates a new file loader
func NewFileLoader(logger *zap.Logger) *FileLoader {
	return &FileLoader{logger: logger}
}

// LoadFiles reads each path into a document, assigning sequential IDs
// starting at 1. A file that cannot be read fails the whole load: file
// problems are operator errors, not invoice anomalies.
func (l *FileLoader) LoadFiles(paths []string) ([]batch.Document, error) {
	docs := make([]batch.Document, 0, len(paths))
	for i, path := range paths {
		content, err := l.readFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		docs = append(docs, batch.Document{ID: int64(i + 1), Content: content})
	}
	return docs, nil
}

func (l *FileLoader) readFile(path string) (string, error) {
	if strings.ToLower(filepath.Ext(path)) == ".pdf" {
		return l.readPDF(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// readPDF extracts the text layer of every page.
func (l *FileLoader) readPDF(path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var pages []string
	for n := 0; n < doc.NumPage(); n++ {
		text, err := doc.Text(n)
		if err != nil {
			l.logger.Warn("Failed to extract page text",
				zap.String("path", path),
				zap.Int("page", n),
				zap.Error(err))
			continue
		}
		pages = append(pages, text)
	}

	if len(pages) == 0 {
		return "", fmt.Errorf("no extractable text in PDF")
	}

	l.logger.Debug("PDF text extracted",
		zap.String("path", path),
		zap.Int("pages", len(pages)))

	return strings.Join(pages, "\n"), nil
}
