// Package batch orchestrates documents through detection, extraction,
// validation, risk scoring and routing, with a content-fingerprint cache
// and a rate limiter around the external extraction call.
package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/cobreops/invoice-triage/internal/config"
	"github.com/cobreops/invoice-triage/internal/detect"
	"github.com/cobreops/invoice-triage/internal/engine"
	"github.com/cobreops/invoice-triage/internal/extract"
	"github.com/cobreops/invoice-triage/internal/models"
)

// Document is one raw input document.
type Document struct {
	ID      int64
	Content string
}

// Fingerprint returns the content hash used as cache and dedup key.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

type cacheEntry struct {
	invoice    *models.ExtractedInvoice
	contentLen int
}

type flightResult struct {
	invoice   *models.ExtractedInvoice
	fromCache bool
}

// Coordinator runs batches of documents through the full pipeline. The
// fingerprint cache and the rate limiter are the only shared mutable
// resources; the engine stages are pure and need no synchronization.
type Coordinator struct {
	detector  *detect.Detector
	extractor extract.Extractor
	validator *engine.Validator
	scorer    *engine.Scorer
	router    *engine.Router
	metrics   *models.ProcessingMetrics
	logger    *zap.Logger

	limiter        *rate.Limiter
	group          singleflight.Group
	cachingEnabled bool
	concurrency    int

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewCoordinator creates a batch coordinator bound to the given policies
// and processing settings.
func NewCoordinator(
	policies config.Policies,
	proc config.ProcessingConfig,
	extractor extract.Extractor,
	metrics *models.ProcessingMetrics,
	logger *zap.Logger,
) *Coordinator {
	concurrency := proc.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Coordinator{
		detector:       detect.NewDetector(),
		extractor:      extractor,
		validator:      engine.NewValidator(),
		scorer:         engine.NewScorer(policies),
		router:         engine.NewRouter(policies),
		metrics:        metrics,
		logger:         logger,
		limiter:        rate.NewLimiter(rate.Every(proc.RateLimitDelay), 1),
		cachingEnabled: proc.EnableCaching,
		concurrency:    concurrency,
		cache:          make(map[string]cacheEntry),
	}
}

// ProcessBatch runs every document through the pipeline and returns one
// ProcessingRecord per document in input order. A cancelled context stops
// the batch between invoices, never mid-invoice: records already produced
// are returned alongside the context error.
func (c *Coordinator) ProcessBatch(ctx context.Context, docs []Document) ([]*models.ProcessingRecord, error) {
	batchID := uuid.NewString()
	c.logger.Info("Starting batch",
		zap.String("batch_id", batchID),
		zap.Int("documents", len(docs)),
		zap.Int("concurrency", c.concurrency))

	if c.concurrency == 1 {
		return c.processSequential(ctx, batchID, docs)
	}
	return c.processConcurrent(ctx, batchID, docs)
}

func (c *Coordinator) processSequential(ctx context.Context, batchID string, docs []Document) ([]*models.ProcessingRecord, error) {
	records := make([]*models.ProcessingRecord, 0, len(docs))
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			c.logger.Warn("Batch aborted between invoices",
				zap.String("batch_id", batchID),
				zap.Int("completed", len(records)))
			return records, err
		}
		records = append(records, c.processOne(ctx, batchID, doc))
	}
	return records, nil
}

func (c *Coordinator) processConcurrent(ctx context.Context, batchID string, docs []Document) ([]*models.ProcessingRecord, error) {
	slots := make([]*models.ProcessingRecord, len(docs))

	g := new(errgroup.Group)
	g.SetLimit(c.concurrency)

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			break
		}
		i, doc := i, doc
		g.Go(func() error {
			slots[i] = c.processOne(ctx, batchID, doc)
			return nil
		})
	}
	_ = g.Wait()

	records := make([]*models.ProcessingRecord, 0, len(docs))
	for _, rec := range slots {
		if rec != nil {
			records = append(records, rec)
		}
	}
	if err := ctx.Err(); err != nil {
		c.logger.Warn("Batch aborted between invoices",
			zap.String("batch_id", batchID),
			zap.Int("completed", len(records)))
		return records, err
	}
	return records, nil
}

// processOne runs a single document through the whole pipeline. It never
// fails: extraction errors degrade to an empty invoice that the normal
// validation and rejection path handles.
func (c *Coordinator) processOne(ctx context.Context, batchID string, doc Document) *models.ProcessingRecord {
	start := time.Now()

	docType, language := c.detector.Detect(doc.Content)
	fp := Fingerprint(doc.Content)

	invoice, cacheHit := c.lookupOrExtract(ctx, fp, doc.Content, docType, language)

	validation := c.validator.Validate(invoice)
	risk := c.scorer.Score(invoice, validation)
	decision := c.router.Route(invoice, validation, risk)

	elapsed := time.Since(start)
	c.metrics.RecordDecision(decision, risk, validation, elapsed)

	c.logger.Info("Invoice routed",
		zap.Int64("invoice_id", doc.ID),
		zap.String("batch_id", batchID),
		zap.String("document_type", string(docType)),
		zap.Float64("risk_score", risk.Score),
		zap.String("decision", engine.Describe(decision)),
		zap.Bool("cache_hit", cacheHit),
		zap.Duration("elapsed", elapsed))

	return &models.ProcessingRecord{
		InvoiceID:   doc.ID,
		BatchID:     batchID,
		Fingerprint: fp,
		Invoice:     invoice,
		Validation:  validation,
		Risk:        risk,
		Decision:    decision,
		CacheHit:    cacheHit,
		StartedAt:   start,
		Duration:    elapsed,
	}
}

// lookupOrExtract returns the extracted invoice for a fingerprint,
// calling the external extractor at most once per distinct fingerprint.
// Concurrent requests for the same fingerprint serialize on the first
// caller's pending result via singleflight.
func (c *Coordinator) lookupOrExtract(ctx context.Context, fp, content string, docType models.DocumentType, language string) (*models.ExtractedInvoice, bool) {
	if !c.cachingEnabled {
		return c.extractDirect(ctx, content, docType, language), false
	}

	v, _, shared := c.group.Do(fp, func() (interface{}, error) {
		if entry, ok := c.cacheGet(fp); ok {
			if entry.contentLen != len(content) {
				// Same hash, different content: fail open and reuse
				// the cached value, favoring throughput.
				c.metrics.RecordCollision()
				c.logger.Warn("Fingerprint collision, reusing cached extraction",
					zap.String("fingerprint", fp),
					zap.Int("cached_len", entry.contentLen),
					zap.Int("content_len", len(content)))
			}
			c.metrics.RecordCacheHit()
			return flightResult{invoice: entry.invoice, fromCache: true}, nil
		}

		invoice := c.extractDirect(ctx, content, docType, language)
		c.cachePut(fp, invoice, len(content))
		return flightResult{invoice: invoice, fromCache: false}, nil
	})

	res := v.(flightResult)
	return res.invoice, res.fromCache || shared
}

// extractDirect performs one rate-limited extraction call. Any failure,
// including a cancelled wait, degrades to the minimal empty invoice.
func (c *Coordinator) extractDirect(ctx context.Context, content string, docType models.DocumentType, language string) *models.ExtractedInvoice {
	if err := c.limiter.Wait(ctx); err != nil {
		c.logger.Warn("Rate limiter wait interrupted", zap.Error(err))
		return models.EmptyInvoice(docType, language)
	}

	invoice, err := c.extractor.Extract(ctx, content, docType, language)
	c.metrics.RecordExtraction(err != nil)
	if err != nil {
		c.logger.Warn("Extraction failed, substituting empty invoice",
			zap.String("document_type", string(docType)),
			zap.Error(err))
		return models.EmptyInvoice(docType, language)
	}
	return invoice
}

func (c *Coordinator) cacheGet(fp string) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[fp]
	return entry, ok
}

func (c *Coordinator) cachePut(fp string, invoice *models.ExtractedInvoice, contentLen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[fp] = cacheEntry{invoice: invoice, contentLen: contentLen}
}
