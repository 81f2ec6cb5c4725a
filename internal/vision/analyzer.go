// Package vision produces textual analyses of architecture pages using
// whichever request shape the chosen model supports.
package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/architecturereview/internal/cost"
	"github.com/Lllllllleong/architecturereview/internal/inference"
	"github.com/Lllllllleong/architecturereview/internal/metrics"
	"github.com/Lllllllleong/architecturereview/internal/models"
	"github.com/Lllllllleong/architecturereview/internal/pdfpages"
	"github.com/Lllllllleong/architecturereview/internal/raster"
)

// Config tunes an Analyzer. Zero values select defaults.
type Config struct {
	DPI         int
	Prompts     map[models.Language]string
	Concurrency int
}

// Analyzer runs capability-aware vision analysis of single pages and images.
type Analyzer struct {
	invoker   inference.Invoker
	catalog   *inference.Catalog
	fallback  inference.FallbackPolicy
	converter raster.Converter
	dpi       int
	prompts   map[models.Language]string
	limit     int
}

// NewAnalyzer wires an analyzer. converter may be nil, in which case every
// raster-requiring model goes straight to the fallback chain.
func NewAnalyzer(invoker inference.Invoker, catalog *inference.Catalog, fallback inference.FallbackPolicy, converter raster.Converter, cfg Config) *Analyzer {
	prompts := DefaultPrompts()
	for lang, p := range cfg.Prompts {
		if strings.TrimSpace(p) != "" {
			prompts[lang] = p
		}
	}
	a := &Analyzer{
		invoker:   invoker,
		catalog:   catalog,
		fallback:  fallback,
		converter: converter,
		dpi:       cfg.DPI,
		prompts:   prompts,
		limit:     cfg.Concurrency,
	}
	if a.dpi <= 0 {
		a.dpi = raster.DefaultDPI
	}
	if a.limit <= 0 {
		a.limit = 4
	}
	return a
}

// PageRequest describes one already-isolated page to analyze.
type PageRequest struct {
	Page           []byte
	PageNumber     int
	ModelID        string
	MaxTokens      int
	Temperature    float32
	PromptOverride string
	Language       models.Language
	Hints          *raster.SourceHints
	// Logger carries the run's attributes; nil logs through slog.Default.
	Logger *slog.Logger
}

// PageResult is the analysis of one page. Image is the raster sent to the
// model, if one was produced.
type PageResult struct {
	Text       string
	ModelID    string
	Image      *raster.Image
	Substitute bool
}

func (a *Analyzer) prompt(override string, lang models.Language) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	if p, ok := a.prompts[lang]; ok {
		return p
	}
	return a.prompts[models.LanguageEnglish]
}

// AnalyzePage analyzes a single isolated page. Models that need a raster get
// one from the converter; if rasterization fails the page is sent as a
// document to the first fallback model that answers, and the result carries a
// substitution notice. Every model call records one inference cost item.
func (a *Analyzer) AnalyzePage(ctx context.Context, req PageRequest, ledger *cost.Ledger) (*PageResult, error) {
	if len(req.Page) == 0 {
		return nil, fmt.Errorf("page %d: empty page content", req.PageNumber)
	}
	spec, err := a.catalog.Lookup(req.ModelID)
	if err != nil {
		return nil, err
	}
	base := inference.Request{
		SystemPrompt: systemPrompt,
		Prompt:       a.prompt(req.PromptOverride, req.Language),
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
	}

	if !spec.Capability.RequiresRaster() {
		docReq := base
		docReq.Document = req.Page
		text, err := a.call(ctx, req.ModelID, docReq, ledger)
		if err != nil {
			return nil, err
		}
		return &PageResult{Text: text, ModelID: req.ModelID}, nil
	}

	img, rasterErr := a.rasterize(ctx, req, ledger)
	if rasterErr == nil {
		imgReq := base
		imgReq.Images = []inference.Image{{Data: img.Data, MIMEType: img.MIMEType}}
		text, err := a.call(ctx, req.ModelID, imgReq, ledger)
		if err != nil {
			return nil, err
		}
		return &PageResult{Text: text, ModelID: req.ModelID, Image: img}, nil
	}

	logCtx := req.Logger
	if logCtx == nil {
		logCtx = slog.Default()
	}
	logCtx.Warn("Rasterization failed; falling back to a native-document model.",
		"page", req.PageNumber, "model", req.ModelID, "error", rasterErr)
	candidates := a.fallback.Candidates(spec.Capability, a.catalog)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("page %d: rasterization failed and no fallback model is configured: %w", req.PageNumber, rasterErr)
	}
	var lastErr error
	for _, fb := range candidates {
		docReq := base
		docReq.Document = req.Page
		text, err := a.call(ctx, fb, docReq, ledger)
		if err != nil {
			lastErr = err
			logCtx.Warn("Fallback model failed.", "page", req.PageNumber, "model", fb, "error", err)
			continue
		}
		metrics.CountVisionFallback(req.ModelID, fb)
		return &PageResult{
			Text:       substitutionNotice(req.Language, req.ModelID, fb) + text,
			ModelID:    fb,
			Substitute: true,
		}, nil
	}
	return nil, fmt.Errorf("page %d: rasterization failed (%v) and every fallback model failed: %w", req.PageNumber, rasterErr, lastErr)
}

func (a *Analyzer) rasterize(ctx context.Context, req PageRequest, ledger *cost.Ledger) (*raster.Image, error) {
	if a.converter == nil {
		return nil, errors.New("no page rasterizer configured")
	}
	rreq := raster.Request{PDF: req.Page, PageNumber: 1, DPI: a.dpi}
	if req.Hints != nil {
		rreq.Hints = req.Hints
		rreq.PageNumber = req.PageNumber
	}
	img, err := a.converter.ConvertPageToImage(ctx, rreq)
	ledger.RecordInvocation("rasterizePage")
	if err != nil {
		return nil, err
	}
	return img, nil
}

// call invokes one model and records exactly one cost item for it.
func (a *Analyzer) call(ctx context.Context, modelID string, req inference.Request, ledger *cost.Ledger) (string, error) {
	resp, err := a.invoker.Invoke(ctx, modelID, req)
	if err != nil {
		return "", err
	}
	in, out, _ := inference.TokenCounts(req, resp)
	ledger.RecordInference(modelID, "visionAnalysis", in, out, len(req.Images))

	text := inference.CleanText(resp.Text)
	if text == "" {
		return "", fmt.Errorf("model %s returned an empty analysis", modelID)
	}
	if err := inference.CheckRefusal(text); err != nil {
		return "", fmt.Errorf("model %s: %w", modelID, err)
	}
	return text, nil
}

// ImageRequest describes a standalone image document.
type ImageRequest struct {
	Data           []byte
	MIMEType       string
	ModelID        string
	MaxTokens      int
	Temperature    float32
	PromptOverride string
	Language       models.Language
}

// AnalyzeImage analyzes an uploaded image directly. Every model family in
// the catalog accepts inline images, so no fallback is involved.
func (a *Analyzer) AnalyzeImage(ctx context.Context, req ImageRequest, ledger *cost.Ledger) (string, error) {
	if len(req.Data) == 0 {
		return "", errors.New("empty image")
	}
	if _, err := a.catalog.Lookup(req.ModelID); err != nil {
		return "", err
	}
	return a.call(ctx, req.ModelID, inference.Request{
		SystemPrompt: systemPrompt,
		Prompt:       a.prompt(req.PromptOverride, req.Language),
		Images:       []inference.Image{{Data: req.Data, MIMEType: req.MIMEType}},
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
	}, ledger)
}

// PagesRequest selects pages of a whole PDF for AnalyzePages.
type PagesRequest struct {
	PDF            []byte
	Pages          []int
	ModelID        string
	MaxTokens      int
	Temperature    float32
	PromptOverride string
	Language       models.Language
	Hints          *raster.SourceHints
}

// PagesResult is the ordered multi-page vision summary.
type PagesResult struct {
	Summary  string
	Images   []models.ExtractedImage
	Analyzed []int
	Failed   []int
}

type pageOutcome struct {
	page   int
	result *PageResult
	err    error
}

// AnalyzePages isolates and analyzes each requested page concurrently. A
// failed page becomes a "Page N: analysis failed" entry; results are always
// assembled in ascending page order.
func (a *Analyzer) AnalyzePages(ctx context.Context, req PagesRequest, ledger *cost.Ledger, logCtx *slog.Logger) *PagesResult {
	pages := slices.Clone(req.Pages)
	slices.Sort(pages)
	pages = slices.Compact(pages)

	outcomes := make([]pageOutcome, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limit)
	for i, page := range pages {
		g.Go(func() error {
			outcomes[i] = pageOutcome{page: page}
			isolated, err := pdfpages.IsolatePage(req.PDF, page)
			if err != nil {
				outcomes[i].err = err
				return nil
			}
			outcomes[i].result, outcomes[i].err = a.AnalyzePage(gctx, PageRequest{
				Page:           isolated,
				PageNumber:     page,
				ModelID:        req.ModelID,
				MaxTokens:      req.MaxTokens,
				Temperature:    req.Temperature,
				PromptOverride: req.PromptOverride,
				Language:       req.Language,
				Hints:          req.Hints,
				Logger:         logCtx,
			}, ledger)
			return nil
		})
	}
	_ = g.Wait()

	out := &PagesResult{}
	sections := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o.err != nil {
			logCtx.Warn("Page analysis failed.", "page", o.page, "error", o.err)
			sections = append(sections, fmt.Sprintf("Page %d: analysis failed: %v", o.page, o.err))
			out.Failed = append(out.Failed, o.page)
			continue
		}
		sections = append(sections, fmt.Sprintf("Page %d\n%s", o.page, o.result.Text))
		out.Analyzed = append(out.Analyzed, o.page)
		if img := o.result.Image; img != nil {
			out.Images = append(out.Images, models.ExtractedImage{
				Name:     fmt.Sprintf("page-%d.png", o.page),
				MIMEType: img.MIMEType,
				Bytes:    img.Data,
			})
		}
	}
	out.Summary = strings.Join(sections, "\n\n")
	return out
}
