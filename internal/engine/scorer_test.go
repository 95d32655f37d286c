package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobreops/invoice-triage/internal/config"
	"github.com/cobreops/invoice-triage/internal/models"
)

func newTestScorer() *Scorer {
	return NewScorer(config.DefaultPolicies())
}

// Worked reference case: a complete formal invoice of 45,220,000 COP sits
// in the supervisor band, so the only non-zero component is the amount
// bucket and the composite score is 0.33 * 0.2 = 0.066.
func TestScoreReferenceCase(t *testing.T) {
	scorer := newTestScorer()
	invoice := completeInvoice()
	validation := NewValidator().Validate(invoice)
	require.True(t, validation.IsValid)

	risk := scorer.Score(invoice, validation)

	assert.InDelta(t, 0.066, risk.Score, 1e-9)
	assert.Equal(t, models.RiskLow, risk.Level)
	assert.InDelta(t, 0.0, risk.Components[models.FactorValidationErrors], 1e-9)
	assert.InDelta(t, 0.0, risk.Components[models.FactorDocumentType], 1e-9)
	assert.InDelta(t, 0.33, risk.Components[models.FactorAmountThreshold], 1e-9)
	assert.InDelta(t, 0.0, risk.Components[models.FactorDataCompleteness], 1e-9)
	assert.Empty(t, risk.Anomalies)
}

func TestScoreAmountBuckets(t *testing.T) {
	policies := config.DefaultPolicies()
	scorer := NewScorer(policies)

	tests := []struct {
		name      string
		amountCOP float64
		component float64
	}{
		{"auto band", 10_000_000, 0.0},
		{"auto boundary inclusive", policies.AutoApprovalMax, 0.0},
		{"supervisor band", policies.AutoApprovalMax + 1, 0.33},
		{"supervisor boundary inclusive", policies.SupervisorMax, 0.33},
		{"manager band", policies.SupervisorMax + 1, 0.66},
		{"manager boundary inclusive", policies.ManagerMax, 0.66},
		{"outlier", policies.ManagerMax + 1, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoice := completeInvoice()
			invoice.Amount = tt.amountCOP
			validation := NewValidator().Validate(invoice)

			risk := scorer.Score(invoice, validation)
			assert.InDelta(t, tt.component, risk.Components[models.FactorAmountThreshold], 1e-9)
		})
	}
}

func TestScoreUSDNormalization(t *testing.T) {
	scorer := newTestScorer()

	// 5,000 USD at the default 4,200 rate is 21,000,000 COP: supervisor band.
	invoice := completeInvoice()
	invoice.Amount = 5_000
	invoice.Currency = models.CurrencyUSD
	validation := NewValidator().Validate(invoice)

	risk := scorer.Score(invoice, validation)
	assert.InDelta(t, 0.33, risk.Components[models.FactorAmountThreshold], 1e-9)
}

func TestScoreValidationErrorsMaximizeComponent(t *testing.T) {
	scorer := newTestScorer()
	invoice := completeInvoice()
	invoice.Vendor = ""
	validation := NewValidator().Validate(invoice)

	risk := scorer.Score(invoice, validation)

	assert.InDelta(t, 1.0, risk.Components[models.FactorValidationErrors], 1e-9)
	assert.InDelta(t, 0.25, risk.Components[models.FactorDataCompleteness], 1e-9)
	assert.Contains(t, risk.Anomalies, models.ErrMissingVendor)
}

// The email penalty multiplies the amount component before weighting and
// is re-clamped to [0,1].
func TestScoreEmailPenalty(t *testing.T) {
	scorer := newTestScorer()

	invoice := completeInvoice()
	invoice.DocumentType = models.DocTypeEmail
	invoice.Amount = 30_000_000 // supervisor band
	validation := NewValidator().Validate(invoice)

	risk := scorer.Score(invoice, validation)

	assert.InDelta(t, 0.33*1.2, risk.Components[models.FactorAmountThreshold], 1e-9)
	assert.InDelta(t, 0.2, risk.Components[models.FactorDocumentType], 1e-9)
	// doc 0.2*0.2 + amount 0.396*0.2 = 0.1192
	assert.InDelta(t, 0.1192, risk.Score, 1e-9)
	assert.Contains(t, risk.Anomalies, models.AnomalyEmailPenaltyApplied)
}

func TestScoreEmailPenaltyClamped(t *testing.T) {
	scorer := newTestScorer()

	invoice := completeInvoice()
	invoice.DocumentType = models.DocTypeEmail
	invoice.Amount = 500_000_000 // outlier band, 1.0 * 1.2 clamps to 1.0
	validation := NewValidator().Validate(invoice)

	risk := scorer.Score(invoice, validation)
	assert.InDelta(t, 1.0, risk.Components[models.FactorAmountThreshold], 1e-9)
	assert.Contains(t, risk.Anomalies, models.AnomalyAmountOutlier)
}

func TestScoreDocumentTypeComponent(t *testing.T) {
	scorer := newTestScorer()

	tests := []struct {
		docType models.DocumentType
		risk    float64
	}{
		{models.DocTypeFormalInvoice, 0.0},
		{models.DocTypeJSON, 0.0},
		{models.DocTypeEmail, 0.2},
		{models.DocTypeCreditNote, 1.0},
		{models.DocTypeUnknown, 0.2},
	}

	for _, tt := range tests {
		t.Run(string(tt.docType), func(t *testing.T) {
			invoice := completeInvoice()
			invoice.DocumentType = tt.docType
			invoice.Amount = 1_000_000 // auto band keeps the amount component at zero
			validation := NewValidator().Validate(invoice)

			risk := scorer.Score(invoice, validation)
			assert.InDelta(t, tt.risk, risk.Components[models.FactorDocumentType], 1e-9)
		})
	}
}

// The composite stays inside [0,1] even for the worst possible invoice.
func TestScoreRange(t *testing.T) {
	scorer := newTestScorer()

	amounts := []float64{0, 1, 18_417_000, 47_329_800, 190_680_000, 500_000_000}
	docTypes := []models.DocumentType{
		models.DocTypeFormalInvoice, models.DocTypeEmail,
		models.DocTypeCreditNote, models.DocTypeJSON, models.DocTypeUnknown,
	}

	for _, amount := range amounts {
		for _, docType := range docTypes {
			invoice := models.EmptyInvoice(docType, models.LangEnglish)
			invoice.Amount = amount
			validation := NewValidator().Validate(invoice)

			risk := scorer.Score(invoice, validation)
			assert.GreaterOrEqual(t, risk.Score, 0.0)
			assert.LessOrEqual(t, risk.Score, 1.0)
		}
	}
}

func TestRiskLevelBuckets(t *testing.T) {
	assert.Equal(t, models.RiskLow, riskLevel(0.0))
	assert.Equal(t, models.RiskLow, riskLevel(0.29))
	assert.Equal(t, models.RiskMedium, riskLevel(0.3))
	assert.Equal(t, models.RiskMedium, riskLevel(0.69))
	assert.Equal(t, models.RiskHigh, riskLevel(0.7))
	assert.Equal(t, models.RiskHigh, riskLevel(1.0))
}
