// Package extract calls the external LLM extraction service to turn raw
// invoice content into structured fields. The batch coordinator is the
// only caller; extraction failures are its problem to tolerate.
package extract

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/cobreops/invoice-triage/internal/config"
	"github.com/cobreops/invoice-triage/internal/models"
)

// Extractor extracts structured invoice data from raw document content.
// The detected type and language are advisory inputs for prompt selection.
type Extractor interface {
	Extract(ctx context.Context, content string, docType models.DocumentType, language string) (*models.ExtractedInvoice, error)
}

// OpenAIExtractor extracts invoice fields with a chat-completion call.
type OpenAIExtractor struct {
	client           *openai.Client
	model            string
	temperature      float32
	maxTokens        int
	maxContentLength int
	logger           *zap.Logger
}

// NewOpenAIExtractor creates a new LLM-backed extractor
func NewOpenAIExtractor(cfg config.ExtractorConfig, logger *zap.Logger) *OpenAIExtractor {
	return &OpenAIExtractor{
		client:           openai.NewClient(cfg.APIKey),
		model:            cfg.Model,
		temperature:      cfg.Temperature,
		maxTokens:        cfg.MaxTokens,
		maxContentLength: cfg.MaxContentLength,
		logger:           logger,
	}
}

// Extract calls the extraction model and parses its JSON response. When
// the response is not valid JSON it falls back to regex extraction rather
// than failing outright.
func (e *OpenAIExtractor) Extract(ctx context.Context, content string, docType models.DocumentType, language string) (*models.ExtractedInvoice, error) {
	if e.maxContentLength > 0 && len(content) > e.maxContentLength {
		content = content[:e.maxContentLength]
	}

	prompt := buildPrompt(docType, language, content)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert at reading Latin American invoices in Spanish, English and Portuguese. Extract structured data and respond with JSON only.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		e.logger.Error("Extraction API call failed",
			zap.String("document_type", string(docType)),
			zap.Error(err))
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from extraction model")
	}

	invoice, err := ParseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		e.logger.Warn("Extraction response was not valid JSON, using fallback patterns",
			zap.Error(err))
		invoice = FallbackExtract(resp.Choices[0].Message.Content)
	}

	invoice.DocumentType = docType
	invoice.Language = language

	e.logger.Debug("Invoice fields extracted",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("vendor", invoice.Vendor),
		zap.Float64("amount", invoice.Amount),
		zap.String("currency", invoice.Currency))

	return invoice, nil
}

// buildPrompt selects the extraction prompt for a document type and
// language pairing. Unmatched pairings use a generic prompt.
func buildPrompt(docType models.DocumentType, language, content string) string {
	const format = `{"invoice_number":"","vendor":"","amount":0,"currency":"","date":"YYYY-MM-DD"}`

	switch {
	case docType == models.DocTypeFormalInvoice && language == models.LangSpanish:
		return fmt.Sprintf("Factura formal española. Extrae JSON:\n%s\nRetorna: %s", content, format)
	case docType == models.DocTypeEmail && language == models.LangEnglish:
		return fmt.Sprintf("Email invoice. Extract JSON:\n%s\nReturn: %s", content, format)
	case docType == models.DocTypeCreditNote && language == models.LangSpanish:
		return fmt.Sprintf("Nota de crédito. Extrae JSON:\n%s\nFormato: %s", content, format)
	case docType == models.DocTypeJSON:
		return fmt.Sprintf("JSON invoice normalization:\n%s\nFormat: %s", content, format)
	default:
		return fmt.Sprintf("Extract invoice data JSON:\n%s\nFormat: %s", content, format)
	}
}
