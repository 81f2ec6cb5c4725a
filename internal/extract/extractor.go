// Package extract turns a stored document into the run-scoped content that
// every pillar review shares.
package extract

import (
	"context"
	"log/slog"

	"github.com/Lllllllleong/architecturereview/internal/cost"
	"github.com/Lllllllleong/architecturereview/internal/metrics"
	"github.com/Lllllllleong/architecturereview/internal/models"
	"github.com/Lllllllleong/architecturereview/internal/pageselect"
	"github.com/Lllllllleong/architecturereview/internal/pdfpages"
	"github.com/Lllllllleong/architecturereview/internal/raster"
	"github.com/Lllllllleong/architecturereview/internal/vision"
)

// ObjectReader reads whole objects from storage. A missing object is
// reported as errs.ErrNotFound.
type ObjectReader interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// PageSelector chooses which PDF pages to analyze.
type PageSelector interface {
	Select(ctx context.Context, pdf []byte, pageCount int, overrides []int, lang models.Language, ledger *cost.Ledger, logCtx *slog.Logger) pageselect.Selection
}

// Analyzer performs vision analysis of pages and images.
type Analyzer interface {
	AnalyzePages(ctx context.Context, req vision.PagesRequest, ledger *cost.Ledger, logCtx *slog.Logger) *vision.PagesResult
	AnalyzeImage(ctx context.Context, req vision.ImageRequest, ledger *cost.Ledger) (string, error)
}

// Config holds the vision settings applied during extraction.
type Config struct {
	VisionModelID string
	MaxTokens     int
	Temperature   float32
	// MaxTextChars bounds the PDF text layer copied into the content.
	MaxTextChars int
}

// Options are the per-run inputs to Extract.
type Options struct {
	Language          models.Language
	ArchitecturePages []int
	PromptOverride    string
}

// Extractor implements content extraction.
type Extractor struct {
	store    ObjectReader
	selector PageSelector
	analyzer Analyzer
	cfg      Config
}

func NewExtractor(store ObjectReader, selector PageSelector, analyzer Analyzer, cfg Config) *Extractor {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.MaxTextChars <= 0 {
		cfg.MaxTextChars = 20000
	}
	return &Extractor{store: store, selector: selector, analyzer: analyzer, cfg: cfg}
}

// Extract fetches the document once and branches on its declared format.
// It never fails: when content cannot be fetched or parsed the result carries
// metadata only and Degraded is set.
func (e *Extractor) Extract(ctx context.Context, doc models.Document, opts Options, ledger *cost.Ledger, logCtx *slog.Logger) *models.ExtractionResult {
	data, err := e.store.Get(ctx, doc.Bucket, doc.Key)
	if err != nil {
		return e.degrade(doc, 0, "fetch", err, opts.Language, logCtx)
	}
	ledger.RecordStorageRead("getDocument", len(data))

	switch {
	case doc.Format == models.FormatPDF:
		return e.extractPDF(ctx, doc, data, opts, ledger, logCtx)
	case doc.Format.IsImage():
		return e.extractImage(ctx, doc, data, opts, ledger, logCtx)
	default:
		logCtx.Info("Format has no content extraction; using metadata only.", "format", doc.Format)
		return &models.ExtractionResult{
			TextContent: renderContent(opts.Language, contentParts{doc: doc, size: len(data)}),
			SizeBytes:   len(data),
		}
	}
}

func (e *Extractor) extractPDF(ctx context.Context, doc models.Document, data []byte, opts Options, ledger *cost.Ledger, logCtx *slog.Logger) *models.ExtractionResult {
	pageCount, err := pdfpages.PageCount(data)
	if err != nil {
		return e.degrade(doc, len(data), "parse", err, opts.Language, logCtx)
	}

	text, err := pdfText(data)
	if err != nil {
		logCtx.Warn("Could not read the PDF text layer.", "error", err)
		metrics.CountExtractionDegradation("textLayer")
		text = ""
	}

	result := &models.ExtractionResult{PageCount: pageCount, SizeBytes: len(data)}
	sel := e.selector.Select(ctx, data, pageCount, opts.ArchitecturePages, opts.Language, ledger, logCtx)
	if len(sel.Pages) > 0 {
		pages := e.analyzer.AnalyzePages(ctx, vision.PagesRequest{
			PDF:            data,
			Pages:          sel.Pages,
			ModelID:        e.cfg.VisionModelID,
			MaxTokens:      e.cfg.MaxTokens,
			Temperature:    e.cfg.Temperature,
			PromptOverride: opts.PromptOverride,
			Language:       opts.Language,
			Hints:          &raster.SourceHints{Bucket: doc.Bucket, Key: doc.Key},
		}, ledger, logCtx)
		result.VisionSummary = pages.Summary
		result.Images = pages.Images
		result.AnalyzedPages = pages.Analyzed
	}

	result.TextContent = renderContent(opts.Language, contentParts{
		doc:            doc,
		size:           len(data),
		pageCount:      pageCount,
		text:           truncate(text, e.cfg.MaxTextChars),
		vision:         result.VisionSummary,
		diagramSection: true,
	})
	logCtx.Info("PDF extraction complete.", "pageCount", pageCount, "selection", sel.Source, "analyzedPages", result.AnalyzedPages)
	return result
}

func (e *Extractor) extractImage(ctx context.Context, doc models.Document, data []byte, opts Options, ledger *cost.Ledger, logCtx *slog.Logger) *models.ExtractionResult {
	result := &models.ExtractionResult{
		SizeBytes: len(data),
		Images: []models.ExtractedImage{{
			Name:     doc.Key,
			MIMEType: doc.Format.MIMEType(),
			Bytes:    data,
		}},
	}
	summary, err := e.analyzer.AnalyzeImage(ctx, vision.ImageRequest{
		Data:           data,
		MIMEType:       doc.Format.MIMEType(),
		ModelID:        e.cfg.VisionModelID,
		MaxTokens:      e.cfg.MaxTokens,
		Temperature:    e.cfg.Temperature,
		PromptOverride: opts.PromptOverride,
		Language:       opts.Language,
	}, ledger)
	if err != nil {
		logCtx.Warn("Image analysis failed; reviews will use the raw image only.", "error", err)
		metrics.CountExtractionDegradation("imageAnalysis")
		result.Degraded = true
		result.DegradedReason = err.Error()
	}
	result.VisionSummary = summary
	result.TextContent = renderContent(opts.Language, contentParts{
		doc:            doc,
		size:           len(data),
		vision:         summary,
		diagramSection: true,
	})
	return result
}

func (e *Extractor) degrade(doc models.Document, size int, stage string, err error, lang models.Language, logCtx *slog.Logger) *models.ExtractionResult {
	logCtx.Warn("Content extraction failed; continuing with document metadata only.", "stage", stage, "error", err)
	metrics.CountExtractionDegradation(stage)
	return &models.ExtractionResult{
		TextContent:    renderContent(lang, contentParts{doc: doc, size: size, degraded: true}),
		SizeBytes:      size,
		Degraded:       true,
		DegradedReason: err.Error(),
	}
}
