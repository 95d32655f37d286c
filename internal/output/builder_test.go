package output

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobreops/invoice-triage/internal/models"
)

func sampleRecord() *models.ProcessingRecord {
	return &models.ProcessingRecord{
		InvoiceID:   7,
		BatchID:     "batch-1",
		Fingerprint: "abc123",
		Invoice: &models.ExtractedInvoice{
			InvoiceNumber: "FAC-2024-001",
			Vendor:        "Suministros Andinos SAS",
			Amount:        45_220_000,
			Currency:      models.CurrencyCOP,
			DocumentType:  models.DocTypeFormalInvoice,
			Language:      models.LangSpanish,
		},
		Validation: &models.ValidationResult{
			IsValid:           true,
			CompletenessRatio: 1.0,
		},
		Risk: &models.RiskAssessment{
			Score: 0.066,
			Components: map[string]float64{
				models.FactorAmountThreshold: 0.33,
			},
			Level: models.RiskLow,
		},
		Decision: &models.ApprovalDecision{
			Outcome:             models.OutcomeSupervisorReview,
			RiskLevel:           models.RiskLow,
			RequiresHumanReview: true,
			RuleName:            "amount_tier",
		},
		StartedAt: time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
	}
}

func TestBuildValidInvoice(t *testing.T) {
	out := Build(sampleRecord())

	assert.Equal(t, int64(7), out.InvoiceID)
	assert.Equal(t, "2024-03-15T10:30:00Z", out.ProcessingTimestamp)
	assert.Equal(t, 1.5, out.ProcessingTimeSeconds)
	assert.Equal(t, models.DocTypeFormalInvoice, out.DocumentMetadata.Type)
	assert.Equal(t, 0.066, out.DocumentMetadata.RiskScore)

	assert.True(t, out.Validation.IsValid)
	assert.True(t, out.Validation.CriticalFieldsComplete)

	assert.Equal(t, models.OutcomeSupervisorReview, out.Approval.Decision)
	assert.True(t, out.Approval.RequiresHumanReview)

	assert.Equal(t, "batch-1", out.AuditTrail.BatchID)
	assert.Equal(t, "abc123", out.AuditTrail.Fingerprint)
	assert.Equal(t, "amount_tier", out.AuditTrail.RuleApplied)
	assert.Equal(t, "multifactor_composite", out.AuditTrail.ScoringMethod)
	assert.Equal(t, []string{"detect_format", "extract_data", "validate", "score_risk", "route_approval"}, out.AuditTrail.PipelinePath)
}

// Payment readiness requires auto-approval; ERP readiness requires a valid
// invoice; reporting and compliance are always flagged since every record
// is reportable and the compliance check itself always runs.
func TestBuildIntegrationFlags(t *testing.T) {
	tests := []struct {
		name    string
		outcome models.Outcome
		isValid bool
		payment bool
		erp     bool
	}{
		{"auto approved valid", models.OutcomeAutoApproved, true, true, true},
		{"supervisor review valid", models.OutcomeSupervisorReview, true, false, true},
		{"rejected invalid", models.OutcomeRejected, false, false, false},
		{"manager review invalid", models.OutcomeManagerReview, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := sampleRecord()
			rec.Decision.Outcome = tt.outcome
			rec.Validation.IsValid = tt.isValid

			out := Build(rec)
			assert.Equal(t, tt.payment, out.IntegrationReady.PaymentSystem)
			assert.Equal(t, tt.erp, out.IntegrationReady.ERPSystem)
			assert.True(t, out.IntegrationReady.ReportingSystem)
			assert.True(t, out.IntegrationReady.ComplianceCheck)
		})
	}
}

// Empty slices serialize as [] rather than null so downstream parsers see
// stable shapes.
func TestBuildSerializesEmptyListsAsArrays(t *testing.T) {
	raw, err := json.Marshal(Build(sampleRecord()))
	require.NoError(t, err)

	body := string(raw)
	assert.Contains(t, body, `"errors":[]`)
	assert.Contains(t, body, `"anomalies_detected":[]`)
	assert.Contains(t, body, `"compliance_flags":[]`)
	assert.NotContains(t, body, `"errors":null`)
}

func TestBuildAllPreservesOrder(t *testing.T) {
	first := sampleRecord()
	second := sampleRecord()
	second.InvoiceID = 8

	out := BuildAll([]*models.ProcessingRecord{first, second})
	require.Len(t, out, 2)
	assert.Equal(t, int64(7), out[0].InvoiceID)
	assert.Equal(t, int64(8), out[1].InvoiceID)
}
