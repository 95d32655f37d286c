// Package detect implements document format and language detection from
// raw invoice content. Detection is purely advisory: it feeds the
// extraction prompts and the router's document-type rules.
package detect

import (
	"strings"

	"github.com/cobreops/invoice-triage/internal/models"
)

// docPatterns score document types by keyword hits. Order matters only
// for tie-breaking: the first type to reach the highest score wins.
var docPatterns = []struct {
	docType  models.DocumentType
	patterns []string
}{
	{models.DocTypeEmail, []string{"from:", "to:", "subject:", "@", "sent:", "received:"}},
	{models.DocTypeJSON, []string{"{", "}", "invoice", "vendor", `"`, "null"}},
	{models.DocTypeCreditNote, []string{"nota de crédito", "credit note", "devolución", "refund", "nc-"}},
	{models.DocTypeFormalInvoice, []string{"factura", "fatura", "invoice", "nit", "tax id", "ruc", "rfc"}},
}

// langPatterns score languages by keyword hits.
var langPatterns = []struct {
	language string
	patterns []string
}{
	{models.LangSpanish, []string{"factura", "cliente", "proveedor", "fecha", "importe", "nit"}},
	{models.LangEnglish, []string{"invoice", "client", "vendor", "date", "amount", "tax"}},
	{models.LangPortuguese, []string{"fatura", "cliente", "fornecedor", "data", "valor"}},
}

// Detector detects document type and language from raw content.
type Detector struct{}

// NewDetector creates a new detector
func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns the most likely document type and language for the given
// raw content.
func (d *Detector) Detect(content string) (models.DocumentType, string) {
	lowered := strings.ToLower(content)
	return d.detectType(lowered), d.detectLanguage(lowered)
}

func (d *Detector) detectType(content string) models.DocumentType {
	docType := models.DocTypeUnknown
	maxScore := 0

	for _, candidate := range docPatterns {
		score := 0
		for _, p := range candidate.patterns {
			if strings.Contains(content, p) {
				score++
			}
		}
		if score > maxScore {
			maxScore = score
			docType = candidate.docType
		}
	}

	return docType
}

func (d *Detector) detectLanguage(content string) string {
	language := models.LangUnknown
	maxScore := 0

	for _, candidate := range langPatterns {
		score := 0
		for _, p := range candidate.patterns {
			if strings.Contains(content, p) {
				score++
			}
		}
		if score > maxScore {
			maxScore = score
			language = candidate.language
		}
	}

	return language
}
