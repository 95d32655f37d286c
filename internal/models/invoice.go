package models

import "time"

// DocumentType classifies the source format of an invoice document.
type DocumentType string

const (
	DocTypeFormalInvoice DocumentType = "formal_invoice"
	DocTypeEmail         DocumentType = "email"
	DocTypeCreditNote    DocumentType = "credit_note"
	DocTypeJSON          DocumentType = "json"
	DocTypeUnknown       DocumentType = "unknown"
)

// Language constants for detected document language.
const (
	LangSpanish    = "spanish"
	LangEnglish    = "english"
	LangPortuguese = "portuguese"
	LangUnknown    = "unknown"
)

// Supported currency codes. COP is the base currency for all threshold
// comparisons; USD amounts are converted at the configured rate.
const (
	CurrencyCOP = "COP"
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
	CurrencyMXN = "MXN"
)

// RecognizedCurrencies lists the currency codes the validator accepts.
var RecognizedCurrencies = map[string]bool{
	CurrencyCOP: true,
	CurrencyUSD: true,
	CurrencyEUR: true,
	CurrencyMXN: true,
}

// ExtractedInvoice holds the structured fields produced by the extraction
// step. It is immutable once produced: the coordinator owns it for the
// duration of one invoice's processing and the cache may hand the same
// value to multiple callers.
type ExtractedInvoice struct {
	InvoiceNumber string            `json:"invoice_number"`
	Vendor        string            `json:"vendor"`
	Amount        float64           `json:"amount"`
	Currency      string            `json:"currency"`
	Date          string            `json:"date,omitempty"`
	DocumentType  DocumentType      `json:"document_type"`
	Language      string            `json:"language"`
	FieldPresence map[string]bool   `json:"field_presence,omitempty"`
	Raw           map[string]string `json:"raw,omitempty"`
}

// EmptyInvoice returns the minimal invoice substituted when extraction
// fails. All fields are absent so the document flows through the normal
// validation and rejection path instead of aborting the batch.
func EmptyInvoice(docType DocumentType, language string) *ExtractedInvoice {
	return &ExtractedInvoice{
		DocumentType:  docType,
		Language:      language,
		FieldPresence: map[string]bool{},
	}
}

// Validation error codes. The validator accumulates every applicable code;
// it never stops at the first failure so the audit trail is complete.
const (
	ErrMissingInvoiceNumber = "missing_invoice_number"
	ErrMissingVendor        = "missing_vendor"
	ErrInvalidAmount        = "invalid_amount"
	ErrInvalidCurrency      = "invalid_currency"
)

// ValidationResult is the immutable outcome of validating one invoice.
type ValidationResult struct {
	Errors            []string `json:"errors"`
	Flags             []string `json:"compliance_flags,omitempty"`
	IsValid           bool     `json:"is_valid"`
	CompletenessRatio float64  `json:"completeness_ratio"`
}

// HasError reports whether the result contains the given error code.
func (v *ValidationResult) HasError(code string) bool {
	for _, e := range v.Errors {
		if e == code {
			return true
		}
	}
	return false
}

// Risk factor names used as keys of RiskAssessment.Components and of the
// configured weight map.
const (
	FactorValidationErrors = "validation_errors"
	FactorDocumentType     = "document_type"
	FactorAmountThreshold  = "amount_threshold"
	FactorDataCompleteness = "data_completeness"
)

// Anomaly tags attached by the risk scorer.
const (
	AnomalyAmountOutlier       = "amount_outlier"
	AnomalyEmailPenaltyApplied = "email_penalty_applied"
)

// RiskLevel buckets the composite risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskAssessment is the immutable output of the risk scorer.
type RiskAssessment struct {
	Score      float64            `json:"score"`
	Components map[string]float64 `json:"components"`
	Anomalies  []string           `json:"anomalies"`
	Level      RiskLevel          `json:"level"`
}

// Outcome is one of the five terminal approval outcomes. No further
// transitions follow once a decision carries one of these values.
type Outcome string

const (
	OutcomeAutoApproved     Outcome = "auto_approved"
	OutcomeSupervisorReview Outcome = "supervisor_review"
	OutcomeManagerReview    Outcome = "manager_review"
	OutcomeExecutiveReview  Outcome = "executive_review"
	OutcomeRejected         Outcome = "rejected"
)

// ApprovalDecision is the terminal artifact of one invoice's processing.
type ApprovalDecision struct {
	Outcome             Outcome   `json:"outcome"`
	RiskLevel           RiskLevel `json:"risk_level"`
	RequiresHumanReview bool      `json:"requires_human_review"`
	OverrideReason      string    `json:"override_reason,omitempty"`
	RuleName            string    `json:"rule,omitempty"`
}

// ProcessingRecord aggregates everything produced while processing one
// document. It is the audit-trail unit: appended to the batch output in
// input order and never mutated afterwards.
type ProcessingRecord struct {
	InvoiceID   int64             `json:"invoice_id"`
	BatchID     string            `json:"batch_id"`
	Fingerprint string            `json:"fingerprint"`
	Invoice     *ExtractedInvoice `json:"invoice"`
	Validation  *ValidationResult `json:"validation"`
	Risk        *RiskAssessment   `json:"risk"`
	Decision    *ApprovalDecision `json:"decision"`
	CacheHit    bool              `json:"cache_hit"`
	StartedAt   time.Time         `json:"started_at"`
	Duration    time.Duration     `json:"duration"`
}
