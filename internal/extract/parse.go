package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cobreops/invoice-triage/internal/models"
)

// wireInvoice is the JSON shape the extraction model is prompted to
// return. Amount tolerates both numeric and quoted values.
type wireInvoice struct {
	InvoiceNumber string          `json:"invoice_number"`
	Vendor        string          `json:"vendor"`
	Amount        json.RawMessage `json:"amount"`
	Currency      string          `json:"currency"`
	Date          string          `json:"date"`
}

// ParseResponse parses the model response into an ExtractedInvoice,
// stripping markdown code fences when present.
func ParseResponse(content string) (*models.ExtractedInvoice, error) {
	jsonStr := strings.TrimSpace(content)

	if strings.HasPrefix(jsonStr, "```json") {
		jsonStr = strings.TrimPrefix(jsonStr, "```json")
		jsonStr = strings.TrimSuffix(strings.TrimSpace(jsonStr), "```")
	} else if strings.HasPrefix(jsonStr, "```") {
		jsonStr = strings.TrimPrefix(jsonStr, "```")
		jsonStr = strings.TrimSuffix(strings.TrimSpace(jsonStr), "```")
	}

	var wire wireInvoice
	if err := json.Unmarshal([]byte(jsonStr), &wire); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	invoice := &models.ExtractedInvoice{
		InvoiceNumber: strings.TrimSpace(wire.InvoiceNumber),
		Vendor:        strings.TrimSpace(wire.Vendor),
		Amount:        parseAmount(wire.Amount),
		Currency:      strings.ToUpper(strings.TrimSpace(wire.Currency)),
		Date:          strings.TrimSpace(wire.Date),
	}
	invoice.FieldPresence = presenceMap(invoice)

	return invoice, nil
}

// parseAmount accepts 1234.5, "1234.5", "1,234.50" and "$1,234.50".
func parseAmount(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	s = strings.NewReplacer(",", "", "$", "", " ", "").Replace(s)
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return n
}

// Fallback patterns used when the model response is not parseable JSON.
var (
	fallbackNumberRe   = regexp.MustCompile(`(?i)(?:factura|invoice|number)[\s:#]*([A-Z0-9][A-Z0-9\-]+)`)
	fallbackVendorRe   = regexp.MustCompile(`(?i)(?:proveedor|vendor|supplier)[\s:]*([^\n",}]+)`)
	fallbackAmountRe   = regexp.MustCompile(`(?i)(?:total|amount|monto)[\s:]*\$?\s*([0-9][0-9,\.]*)`)
	fallbackCurrencyRe = regexp.MustCompile(`\b(USD|COP|EUR|MXN)\b`)
)

// FallbackExtract applies regex patterns against the raw response text.
// Whatever it cannot find stays absent and surfaces downstream as
// validation errors.
func FallbackExtract(content string) *models.ExtractedInvoice {
	invoice := &models.ExtractedInvoice{}

	if m := fallbackNumberRe.FindStringSubmatch(content); len(m) > 1 {
		invoice.InvoiceNumber = strings.TrimSpace(m[1])
	}
	if m := fallbackVendorRe.FindStringSubmatch(content); len(m) > 1 {
		invoice.Vendor = strings.TrimSpace(m[1])
	}
	if m := fallbackAmountRe.FindStringSubmatch(content); len(m) > 1 {
		if amount, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			invoice.Amount = amount
		}
	}
	if m := fallbackCurrencyRe.FindStringSubmatch(content); len(m) > 1 {
		invoice.Currency = m[1]
	}

	invoice.FieldPresence = presenceMap(invoice)
	return invoice
}

func presenceMap(invoice *models.ExtractedInvoice) map[string]bool {
	return map[string]bool{
		"invoice_number": invoice.InvoiceNumber != "",
		"vendor":         invoice.Vendor != "",
		"amount":         invoice.Amount > 0,
		"currency":       invoice.Currency != "",
		"date":           invoice.Date != "",
	}
}
