// Package output builds the integration-ready record serialized for
// downstream systems, one per processed invoice.
package output

import (
	"time"

	"github.com/cobreops/invoice-triage/internal/models"
)

// DocumentMetadata describes the source document and its computed risk.
type DocumentMetadata struct {
	Type      models.DocumentType `json:"type"`
	Language  string              `json:"language"`
	RiskScore float64             `json:"risk_score"`
}

// ValidationSection mirrors the validation result for consumers.
type ValidationSection struct {
	Errors                 []string `json:"errors"`
	IsValid                bool     `json:"is_valid"`
	CompletenessRatio      float64  `json:"completeness_ratio"`
	CriticalFieldsComplete bool     `json:"critical_fields_complete"`
}

// RiskAnalytics carries the score breakdown and detected anomalies.
type RiskAnalytics struct {
	ScoreBreakdown  map[string]float64 `json:"risk_score_breakdown"`
	Anomalies       []string           `json:"anomalies_detected"`
	ComplianceFlags []string           `json:"compliance_flags"`
}

// ApprovalSection carries the routing decision.
type ApprovalSection struct {
	Decision            models.Outcome   `json:"decision"`
	RequiresHumanReview bool             `json:"requires_human_review"`
	RiskLevel           models.RiskLevel `json:"risk_level"`
	OverrideReason      string           `json:"override_reason,omitempty"`
}

// IntegrationFlags signal readiness for each downstream system.
type IntegrationFlags struct {
	PaymentSystem   bool `json:"payment_system"`
	ERPSystem       bool `json:"erp_system"`
	ReportingSystem bool `json:"reporting_system"`
	ComplianceCheck bool `json:"compliance_check"`
}

// AuditTrail records how the decision was produced.
type AuditTrail struct {
	BatchID       string   `json:"batch_id"`
	Fingerprint   string   `json:"content_hash"`
	CacheHit      bool     `json:"cache_hit"`
	RuleApplied   string   `json:"rule_applied,omitempty"`
	ScoringMethod string   `json:"risk_scoring_method"`
	PipelinePath  []string `json:"processing_node_path"`
}

// Record is the serialized artifact of one invoice's processing.
type Record struct {
	InvoiceID             int64                    `json:"invoice_id"`
	ProcessingTimestamp   string                   `json:"processing_timestamp"`
	ProcessingTimeSeconds float64                  `json:"processing_time_seconds"`
	DocumentMetadata      DocumentMetadata         `json:"document_metadata"`
	ExtractedData         *models.ExtractedInvoice `json:"extracted_data"`
	Validation            ValidationSection        `json:"validation"`
	RiskAnalytics         RiskAnalytics            `json:"risk_analytics"`
	Approval              ApprovalSection          `json:"approval"`
	IntegrationReady      IntegrationFlags         `json:"integration_ready"`
	AuditTrail            AuditTrail               `json:"audit_trail"`
}

var pipelinePath = []string{"detect_format", "extract_data", "validate", "score_risk", "route_approval"}

// Build assembles the integration record for one processing record.
func Build(rec *models.ProcessingRecord) *Record {
	return &Record{
		InvoiceID:             rec.InvoiceID,
		ProcessingTimestamp:   rec.StartedAt.Format(time.RFC3339),
		ProcessingTimeSeconds: rec.Duration.Seconds(),
		DocumentMetadata: DocumentMetadata{
			Type:      rec.Invoice.DocumentType,
			Language:  rec.Invoice.Language,
			RiskScore: rec.Risk.Score,
		},
		ExtractedData: rec.Invoice,
		Validation: ValidationSection{
			Errors:                 errorsOrEmpty(rec.Validation.Errors),
			IsValid:                rec.Validation.IsValid,
			CompletenessRatio:      rec.Validation.CompletenessRatio,
			CriticalFieldsComplete: rec.Validation.CompletenessRatio == 1.0,
		},
		RiskAnalytics: RiskAnalytics{
			ScoreBreakdown:  rec.Risk.Components,
			Anomalies:       errorsOrEmpty(rec.Risk.Anomalies),
			ComplianceFlags: errorsOrEmpty(rec.Validation.Flags),
		},
		Approval: ApprovalSection{
			Decision:            rec.Decision.Outcome,
			RequiresHumanReview: rec.Decision.RequiresHumanReview,
			RiskLevel:           rec.Decision.RiskLevel,
			OverrideReason:      rec.Decision.OverrideReason,
		},
		IntegrationReady: IntegrationFlags{
			PaymentSystem:   rec.Decision.Outcome == models.OutcomeAutoApproved,
			ERPSystem:       rec.Validation.IsValid,
			ReportingSystem: true,
			ComplianceCheck: true,
		},
		AuditTrail: AuditTrail{
			BatchID:       rec.BatchID,
			Fingerprint:   rec.Fingerprint,
			CacheHit:      rec.CacheHit,
			RuleApplied:   rec.Decision.RuleName,
			ScoringMethod: "multifactor_composite",
			PipelinePath:  pipelinePath,
		},
	}
}

// BuildAll assembles integration records for a whole batch, preserving
// order.
func BuildAll(recs []*models.ProcessingRecord) []*Record {
	out := make([]*Record, len(recs))
	for i, rec := range recs {
		out[i] = Build(rec)
	}
	return out
}

// errorsOrEmpty keeps JSON output as [] instead of null.
func errorsOrEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
