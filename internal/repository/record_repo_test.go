package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cobreops/invoice-triage/internal/models"
	"github.com/cobreops/invoice-triage/pkg/database"
)

func setupRepo(t *testing.T) *RecordRepository {
	t.Helper()

	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "audit.db"),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewRecordRepository(db.DB, zap.NewNop())
	require.NoError(t, repo.EnsureSchema())
	return repo
}

func auditRecord(invoiceID int64, batchID string, outcome models.Outcome) *models.ProcessingRecord {
	return &models.ProcessingRecord{
		InvoiceID:   invoiceID,
		BatchID:     batchID,
		Fingerprint: "fp-test",
		Invoice: &models.ExtractedInvoice{
			InvoiceNumber: "FAC-001",
			Vendor:        "Acme",
			Amount:        1_000_000,
			Currency:      models.CurrencyCOP,
			DocumentType:  models.DocTypeFormalInvoice,
		},
		Validation: &models.ValidationResult{IsValid: true, CompletenessRatio: 1.0},
		Risk:       &models.RiskAssessment{Score: 0.0, Level: models.RiskLow},
		Decision: &models.ApprovalDecision{
			Outcome:   outcome,
			RiskLevel: models.RiskLow,
			RuleName:  "amount_tier",
		},
		StartedAt: time.Now(),
	}
}

func TestSaveAndCountByDecision(t *testing.T) {
	repo := setupRepo(t)

	require.NoError(t, repo.Save(auditRecord(1, "batch-a", models.OutcomeAutoApproved)))
	require.NoError(t, repo.Save(auditRecord(2, "batch-a", models.OutcomeAutoApproved)))
	require.NoError(t, repo.Save(auditRecord(3, "batch-a", models.OutcomeRejected)))
	require.NoError(t, repo.Save(auditRecord(4, "batch-b", models.OutcomeManagerReview)))

	counts, err := repo.CountByDecision("batch-a")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		"auto_approved": 2,
		"rejected":      1,
	}, counts)

	counts, err = repo.CountByDecision("batch-b")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"manager_review": 1}, counts)
}

func TestSaveBatch(t *testing.T) {
	repo := setupRepo(t)

	recs := []*models.ProcessingRecord{
		auditRecord(1, "batch-c", models.OutcomeSupervisorReview),
		auditRecord(2, "batch-c", models.OutcomeSupervisorReview),
	}
	require.NoError(t, repo.SaveBatch(recs))

	counts, err := repo.CountByDecision("batch-c")
	require.NoError(t, err)
	assert.Equal(t, 2, counts["supervisor_review"])
}

func TestCountByDecisionEmptyBatch(t *testing.T) {
	repo := setupRepo(t)

	counts, err := repo.CountByDecision("no-such-batch")
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	repo := setupRepo(t)
	require.NoError(t, repo.EnsureSchema())
	require.NoError(t, repo.Save(auditRecord(1, "batch-d", models.OutcomeAutoApproved)))
}
