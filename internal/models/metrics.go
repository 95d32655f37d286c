package models

import (
	"sync"
	"time"
)

// ProcessingMetrics tracks approval distribution and anomaly counters for
// a processing run. Safe for concurrent use by batch workers.
type ProcessingMetrics struct {
	mu sync.Mutex

	TotalProcessed   int
	AutoApproved     int
	SupervisorReview int
	ManagerReview    int
	ExecutiveReview  int
	Rejected         int

	ValidationErrorCount  int
	CriticalAnomalies     int
	DocumentEscalations   int
	HighRiskScores        int
	ExtractionFailures    int
	ExtractionCalls       int
	CacheHits             int
	FingerprintCollisions int

	ProcessingTime time.Duration
}

// RecordDecision updates the per-outcome counters for a routed invoice.
func (m *ProcessingMetrics) RecordDecision(decision *ApprovalDecision, risk *RiskAssessment, validation *ValidationResult, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalProcessed++
	m.ProcessingTime += elapsed

	switch decision.Outcome {
	case OutcomeAutoApproved:
		m.AutoApproved++
	case OutcomeSupervisorReview:
		m.SupervisorReview++
	case OutcomeManagerReview:
		m.ManagerReview++
	case OutcomeExecutiveReview:
		m.ExecutiveReview++
	case OutcomeRejected:
		m.Rejected++
	}

	if decision.OverrideReason != "" && decision.Outcome != OutcomeRejected {
		m.DocumentEscalations++
	}
	if len(validation.Errors) > 0 {
		m.ValidationErrorCount++
	}
	if validation.HasError(ErrMissingInvoiceNumber) || validation.HasError(ErrInvalidAmount) {
		m.CriticalAnomalies++
	}
	if risk.Score > 0.7 {
		m.HighRiskScores++
	}
}

// RecordExtraction counts one extraction attempt against the external
// collaborator.
func (m *ProcessingMetrics) RecordExtraction(failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExtractionCalls++
	if failed {
		m.ExtractionFailures++
	}
}

// RecordCacheHit counts a fingerprint cache hit.
func (m *ProcessingMetrics) RecordCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

// RecordCollision counts a fingerprint collision (same hash, different
// content length).
func (m *ProcessingMetrics) RecordCollision() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FingerprintCollisions++
}

// MetricsSummary is a read-only snapshot suitable for serialization.
type MetricsSummary struct {
	TotalProcessed   int `json:"total_processed"`
	AutoApproved     int `json:"auto_approved"`
	SupervisorReview int `json:"supervisor_review"`
	ManagerReview    int `json:"manager_review"`
	ExecutiveReview  int `json:"executive_review"`
	Rejected         int `json:"rejected"`

	AutoApprovedPct     float64 `json:"auto_approved_pct"`
	SupervisorReviewPct float64 `json:"supervisor_review_pct"`
	ManagerReviewPct    float64 `json:"manager_review_pct"`
	ExecutiveReviewPct  float64 `json:"executive_review_pct"`
	RejectedPct         float64 `json:"rejected_pct"`

	ValidationErrors      int `json:"validation_errors"`
	CriticalAnomalies     int `json:"critical_anomalies"`
	DocumentEscalations   int `json:"document_escalations"`
	HighRiskScores        int `json:"high_risk_scores"`
	ExtractionCalls       int `json:"extraction_calls"`
	ExtractionFailures    int `json:"extraction_failures"`
	CacheHits             int `json:"cache_hits"`
	FingerprintCollisions int `json:"fingerprint_collisions"`

	AvgProcessingSeconds float64 `json:"avg_processing_seconds"`
}

// Summary returns a consistent snapshot of the metrics.
func (m *ProcessingMetrics) Summary() MetricsSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := MetricsSummary{
		TotalProcessed:        m.TotalProcessed,
		AutoApproved:          m.AutoApproved,
		SupervisorReview:      m.SupervisorReview,
		ManagerReview:         m.ManagerReview,
		ExecutiveReview:       m.ExecutiveReview,
		Rejected:              m.Rejected,
		ValidationErrors:      m.ValidationErrorCount,
		CriticalAnomalies:     m.CriticalAnomalies,
		DocumentEscalations:   m.DocumentEscalations,
		HighRiskScores:        m.HighRiskScores,
		ExtractionCalls:       m.ExtractionCalls,
		ExtractionFailures:    m.ExtractionFailures,
		CacheHits:             m.CacheHits,
		FingerprintCollisions: m.FingerprintCollisions,
	}

	if m.TotalProcessed > 0 {
		total := float64(m.TotalProcessed)
		s.AutoApprovedPct = pct(m.AutoApproved, total)
		s.SupervisorReviewPct = pct(m.SupervisorReview, total)
		s.ManagerReviewPct = pct(m.ManagerReview, total)
		s.ExecutiveReviewPct = pct(m.ExecutiveReview, total)
		s.RejectedPct = pct(m.Rejected, total)
		s.AvgProcessingSeconds = m.ProcessingTime.Seconds() / total
	}

	return s
}

func pct(n int, total float64) float64 {
	return float64(n) / total * 100
}
