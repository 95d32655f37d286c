package engine

import (
	"fmt"

	"github.com/cobreops/invoice-triage/internal/config"
	"github.com/cobreops/invoice-triage/internal/models"
)

// ruleInput bundles the immutable inputs a routing rule inspects.
type ruleInput struct {
	invoice    *models.ExtractedInvoice
	validation *models.ValidationResult
	risk       *models.RiskAssessment
	amountCOP  float64
}

// routingRule is one predicate→outcome rule. Apply returns the outcome,
// an override reason, and whether the rule matched.
type routingRule struct {
	name  string
	apply func(in ruleInput) (models.Outcome, string, bool)
}

// Router maps (invoice, validation, risk) to a terminal approval outcome.
// Rules are evaluated in fixed order and the first match wins: hard
// validation and document-type overrides precede the amount mapping and
// can only escalate, never downgrade, the default outcome. A single call
// performs the whole transition; nothing persists between calls.
type Router struct {
	policies config.Policies
	rules    []routingRule
}

// NewRouter creates a router bound to the given policy set.
func NewRouter(policies config.Policies) *Router {
	r := &Router{policies: policies}
	r.rules = []routingRule{
		{name: "reject_missing_invoice_number", apply: r.rejectMissingInvoiceNumber},
		{name: "reject_risk_ceiling", apply: r.rejectRiskCeiling},
		{name: "credit_note_floor", apply: r.creditNoteFloor},
		{name: "email_floor", apply: r.emailFloor},
		{name: "amount_tier", apply: r.amountTierMapping},
	}
	return r
}

// RuleNames returns the rule evaluation order.
func (r *Router) RuleNames() []string {
	names := make([]string, len(r.rules))
	for i, rule := range r.rules {
		names[i] = rule.name
	}
	return names
}

// Route produces the approval decision for one invoice. Total and
// deterministic: identical inputs always yield an identical decision.
func (r *Router) Route(invoice *models.ExtractedInvoice, validation *models.ValidationResult, risk *models.RiskAssessment) *models.ApprovalDecision {
	in := ruleInput{
		invoice:    invoice,
		validation: validation,
		risk:       risk,
		amountCOP:  r.policies.NormalizeToCOP(invoice.Amount, invoice.Currency),
	}

	for _, rule := range r.rules {
		outcome, reason, ok := rule.apply(in)
		if !ok {
			continue
		}
		return &models.ApprovalDecision{
			Outcome:             outcome,
			RiskLevel:           risk.Level,
			RequiresHumanReview: outcome != models.OutcomeAutoApproved,
			OverrideReason:      reason,
			RuleName:            rule.name,
		}
	}

	// Unreachable: the amount tier rule always matches.
	return &models.ApprovalDecision{
		Outcome:             models.OutcomeExecutiveReview,
		RiskLevel:           risk.Level,
		RequiresHumanReview: true,
		OverrideReason:      "no routing rule matched",
	}
}

func (r *Router) rejectMissingInvoiceNumber(in ruleInput) (models.Outcome, string, bool) {
	if in.validation.HasError(models.ErrMissingInvoiceNumber) {
		return models.OutcomeRejected, "missing invoice number", true
	}
	return "", "", false
}

func (r *Router) rejectRiskCeiling(in ruleInput) (models.Outcome, string, bool) {
	if in.risk.Score > r.policies.RejectionCeiling {
		return models.OutcomeRejected, "risk score exceeds rejection ceiling", true
	}
	return "", "", false
}

// creditNoteFloor forces credit notes to at least manager review. When the
// amount maps above the manager tier the decision escalates to executive
// review; it never drops below manager regardless of score.
func (r *Router) creditNoteFloor(in ruleInput) (models.Outcome, string, bool) {
	if in.invoice.DocumentType != models.DocTypeCreditNote {
		return "", "", false
	}
	if in.amountCOP > r.policies.ManagerMax {
		return models.OutcomeExecutiveReview, "high-amount credit note requires executive approval", true
	}
	return models.OutcomeManagerReview, "credit note requires management review by policy", true
}

// emailFloor keeps email invoices out of the auto-approval band: the
// amount mapping applies but the decision floors at supervisor review.
func (r *Router) emailFloor(in ruleInput) (models.Outcome, string, bool) {
	if in.invoice.DocumentType != models.DocTypeEmail {
		return "", "", false
	}
	outcome := r.amountTier(in.amountCOP)
	if outcome == models.OutcomeAutoApproved {
		outcome = models.OutcomeSupervisorReview
	}
	return outcome, "email invoice requires minimum supervision", true
}

func (r *Router) amountTierMapping(in ruleInput) (models.Outcome, string, bool) {
	return r.amountTier(in.amountCOP), "", true
}

// amountTier maps a COP amount to the default approval tier.
func (r *Router) amountTier(amountCOP float64) models.Outcome {
	switch {
	case amountCOP <= r.policies.AutoApprovalMax:
		return models.OutcomeAutoApproved
	case amountCOP <= r.policies.SupervisorMax:
		return models.OutcomeSupervisorReview
	case amountCOP <= r.policies.ManagerMax:
		return models.OutcomeManagerReview
	default:
		return models.OutcomeExecutiveReview
	}
}

// Describe returns a short human-readable summary of a decision, used in
// batch progress logging.
func Describe(d *models.ApprovalDecision) string {
	if d.OverrideReason != "" {
		return fmt.Sprintf("%s (%s)", d.Outcome, d.OverrideReason)
	}
	return string(d.Outcome)
}
