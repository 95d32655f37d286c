// Package repository persists processing records as a write-only audit
// trail. The decision engine never reads from here.
package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/cobreops/invoice-triage/internal/models"
)

// RecordRepository handles processing-record database operations
type RecordRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *sql.DB, logger *zap.Logger) *RecordRepository {
	return &RecordRepository{db: db, logger: logger}
}

// EnsureSchema creates the audit table when missing.
func (r *RecordRepository) EnsureSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS processing_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			invoice_id INTEGER NOT NULL,
			batch_id TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			document_type TEXT NOT NULL,
			decision TEXT NOT NULL,
			risk_score REAL NOT NULL,
			risk_level TEXT NOT NULL,
			requires_human_review INTEGER NOT NULL,
			override_reason TEXT,
			cache_hit INTEGER NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_processing_records_batch
			ON processing_records(batch_id);
		CREATE INDEX IF NOT EXISTS idx_processing_records_fingerprint
			ON processing_records(fingerprint);
	`
	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create processing_records schema: %w", err)
	}
	return nil
}

// Save appends one processing record to the audit trail.
func (r *RecordRepository) Save(rec *models.ProcessingRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	query := `
		INSERT INTO processing_records (
			invoice_id, batch_id, fingerprint, document_type, decision,
			risk_score, risk_level, requires_human_review, override_reason,
			cache_hit, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		rec.InvoiceID,
		rec.BatchID,
		rec.Fingerprint,
		string(rec.Invoice.DocumentType),
		string(rec.Decision.Outcome),
		rec.Risk.Score,
		string(rec.Decision.RiskLevel),
		rec.Decision.RequiresHumanReview,
		rec.Decision.OverrideReason,
		rec.CacheHit,
		string(payload),
	)
	if err != nil {
		r.logger.Error("Failed to save processing record",
			zap.Int64("invoice_id", rec.InvoiceID),
			zap.Error(err))
		return fmt.Errorf("failed to save record: %w", err)
	}

	return nil
}

// SaveBatch appends every record from a batch in input order.
func (r *RecordRepository) SaveBatch(recs []*models.ProcessingRecord) error {
	for _, rec := range recs {
		if err := r.Save(rec); err != nil {
			return err
		}
	}
	return nil
}

// CountByDecision returns decision counts for one batch.
func (r *RecordRepository) CountByDecision(batchID string) (map[string]int, error) {
	rows, err := r.db.Query(`
		SELECT decision, COUNT(*) FROM processing_records
		WHERE batch_id = ?
		GROUP BY decision
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to count decisions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var decision string
		var n int
		if err := rows.Scan(&decision, &n); err != nil {
			return nil, fmt.Errorf("failed to scan decision count: %w", err)
		}
		counts[decision] = n
	}
	return counts, rows.Err()
}
