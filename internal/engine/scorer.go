package engine

import (
	"github.com/cobreops/invoice-triage/internal/config"
	"github.com/cobreops/invoice-triage/internal/models"
)

// Amount component values per threshold bucket.
const (
	amountRiskAuto       = 0.0
	amountRiskSupervisor = 0.33
	amountRiskManager    = 0.66
	amountRiskOutlier    = 1.0
)

// Document type component values.
var documentTypeRisk = map[models.DocumentType]float64{
	models.DocTypeCreditNote:    1.0,
	models.DocTypeEmail:         0.2,
	models.DocTypeFormalInvoice: 0.0,
	models.DocTypeJSON:          0.0,
}

// Scorer combines validation errors, document type, amount percentile
// bucket, and completeness into a single risk score in [0,1]. Pure and
// deterministic: no external calls, no randomness.
type Scorer struct {
	policies config.Policies
}

// NewScorer creates a risk scorer bound to the given policy set.
func NewScorer(policies config.Policies) *Scorer {
	return &Scorer{policies: policies}
}

// Score computes the weighted composite risk assessment for one invoice.
func (s *Scorer) Score(invoice *models.ExtractedInvoice, validation *models.ValidationResult) *models.RiskAssessment {
	var anomalies []string

	// Any validation error maximizes the validation component.
	validationRisk := 0.0
	if len(validation.Errors) > 0 {
		validationRisk = 1.0
	}
	anomalies = append(anomalies, validation.Errors...)

	docRisk, known := documentTypeRisk[invoice.DocumentType]
	if !known {
		docRisk = 0.2
	}

	amountCOP := s.policies.NormalizeToCOP(invoice.Amount, invoice.Currency)
	amountRisk := s.amountComponent(amountCOP)
	if amountRisk == amountRiskOutlier {
		anomalies = append(anomalies, models.AnomalyAmountOutlier)
	}

	// Email invoices carry a penalty multiplier on the amount component,
	// applied before weighting and re-clamped.
	if invoice.DocumentType == models.DocTypeEmail {
		amountRisk = clamp01(amountRisk * s.policies.EmailAmountPenalty)
		anomalies = append(anomalies, models.AnomalyEmailPenaltyApplied)
	}

	completenessRisk := 1.0 - validation.CompletenessRatio

	components := map[string]float64{
		models.FactorValidationErrors: validationRisk,
		models.FactorDocumentType:     docRisk,
		models.FactorAmountThreshold:  amountRisk,
		models.FactorDataCompleteness: completenessRisk,
	}

	weights := s.policies.RiskWeights
	score := clamp01(
		validationRisk*weights[models.FactorValidationErrors] +
			docRisk*weights[models.FactorDocumentType] +
			amountRisk*weights[models.FactorAmountThreshold] +
			completenessRisk*weights[models.FactorDataCompleteness])

	return &models.RiskAssessment{
		Score:      score,
		Components: components,
		Anomalies:  anomalies,
		Level:      riskLevel(score),
	}
}

// amountComponent maps a COP amount against the threshold table buckets.
func (s *Scorer) amountComponent(amountCOP float64) float64 {
	switch {
	case amountCOP <= s.policies.AutoApprovalMax:
		return amountRiskAuto
	case amountCOP <= s.policies.SupervisorMax:
		return amountRiskSupervisor
	case amountCOP <= s.policies.ManagerMax:
		return amountRiskManager
	default:
		return amountRiskOutlier
	}
}

// riskLevel buckets a composite score.
func riskLevel(score float64) models.RiskLevel {
	switch {
	case score < 0.3:
		return models.RiskLow
	case score < 0.7:
		return models.RiskMedium
	default:
		return models.RiskHigh
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
