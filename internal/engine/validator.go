package engine

import (
	"strings"
	"time"

	"github.com/cobreops/invoice-triage/internal/models"
)

// requiredFields are the fields counted towards the completeness ratio.
var requiredFields = []string{"invoice_number", "vendor", "amount", "currency"}

// dateLayouts accepted when checking the extracted date field.
var dateLayouts = []string{"2006-01-02", "02/01/2006", "2006-01", "01/2006"}

// Validator checks extracted invoice fields for required-value presence
// and structural sanity. Pure: identical input always yields an identical
// result, and every check runs even after the first failure so the error
// list is complete for the audit trail.
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs all field checks against the invoice and returns the
// accumulated result.
func (v *Validator) Validate(invoice *models.ExtractedInvoice) *models.ValidationResult {
	var errors []string
	var flags []string

	present := 0

	if strings.TrimSpace(invoice.InvoiceNumber) == "" {
		errors = append(errors, models.ErrMissingInvoiceNumber)
	} else {
		present++
	}

	if strings.TrimSpace(invoice.Vendor) == "" {
		errors = append(errors, models.ErrMissingVendor)
	} else {
		present++
	}

	if invoice.Amount <= 0 {
		errors = append(errors, models.ErrInvalidAmount)
	} else {
		present++
	}

	currency := strings.ToUpper(strings.TrimSpace(invoice.Currency))
	if !models.RecognizedCurrencies[currency] {
		errors = append(errors, models.ErrInvalidCurrency)
		if currency == "" {
			flags = append(flags, "currency_unspecified")
		}
	} else {
		present++
	}

	if flag := checkDate(invoice.Date); flag != "" {
		flags = append(flags, flag)
	}

	return &models.ValidationResult{
		Errors:            errors,
		Flags:             flags,
		IsValid:           len(errors) == 0,
		CompletenessRatio: float64(present) / float64(len(requiredFields)),
	}
}

// checkDate reports a compliance flag for irregular dates. Date problems
// never fail validation, they only surface in the audit record.
func checkDate(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return ""
	}

	if len(date) > 10 {
		date = date[:10]
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, date); err == nil {
			return ""
		}
	}
	return "irregular_date_format"
}
