// Package review runs the six pillar reviews of a document concurrently and
// aggregates their results.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/architecturereview/internal/cost"
	"github.com/Lllllllleong/architecturereview/internal/errs"
	"github.com/Lllllllleong/architecturereview/internal/extract"
	"github.com/Lllllllleong/architecturereview/internal/inference"
	"github.com/Lllllllleong/architecturereview/internal/metrics"
	"github.com/Lllllllleong/architecturereview/internal/models"
)

const (
	// DefaultPillarTimeout bounds each pillar's model review.
	DefaultPillarTimeout = 5 * time.Minute
	// DefaultGovernanceTimeout bounds the policy-matching query that follows a
	// completed review.
	DefaultGovernanceTimeout = time.Minute
)

// Extractor produces the shared content for a run.
type Extractor interface {
	Extract(ctx context.Context, doc models.Document, opts extract.Options, ledger *cost.Ledger, logCtx *slog.Logger) *models.ExtractionResult
}

// PolicyMatcher finds governance violations in review content.
type PolicyMatcher interface {
	Query(ctx context.Context, policyIDs []string, contextText string, ledger *cost.Ledger, logCtx *slog.Logger) ([]models.GovernanceViolation, error)
}

// Summarizer writes the executive summary of a finished run.
type Summarizer interface {
	Summarize(ctx context.Context, in ExecutiveInput, ledger *cost.Ledger) (string, error)
}

// Config holds run-wide review settings.
type Config struct {
	PillarTimeout      time.Duration
	GovernanceTimeout  time.Duration
	DefaultModelID     string
	DefaultMaxTokens   int
	DefaultTemperature float32
	// SystemPrompts overrides the built-in pillar system prompts.
	SystemPrompts    map[models.PillarName]string
	ExecutiveSummary bool
	MaxImages        int
}

// Coordinator implements executeAll.
type Coordinator struct {
	extractor  Extractor
	invoker    inference.Invoker
	matcher    PolicyMatcher
	summarizer Summarizer
	pricing    cost.Pricing
	cfg        Config
}

// NewCoordinator wires a coordinator. matcher and summarizer may be nil.
func NewCoordinator(extractor Extractor, invoker inference.Invoker, matcher PolicyMatcher, summarizer Summarizer, pricing cost.Pricing, cfg Config) *Coordinator {
	if cfg.PillarTimeout <= 0 {
		cfg.PillarTimeout = DefaultPillarTimeout
	}
	if cfg.GovernanceTimeout <= 0 {
		cfg.GovernanceTimeout = DefaultGovernanceTimeout
	}
	if cfg.DefaultMaxTokens <= 0 {
		cfg.DefaultMaxTokens = 8192
	}
	if cfg.MaxImages <= 0 {
		cfg.MaxImages = 4
	}
	return &Coordinator{
		extractor:  extractor,
		invoker:    invoker,
		matcher:    matcher,
		summarizer: summarizer,
		pricing:    pricing,
		cfg:        cfg,
	}
}

// ExecuteRequest is the input to ExecuteAll.
type ExecuteRequest struct {
	Document            models.Document
	Pillars             []models.PillarConfigPayload
	GovernancePolicyIDs []string
	ArchitecturePages   []int
	Language            models.Language
}

// ExecuteResult is the aggregated outcome of a run.
type ExecuteResult struct {
	RunID            string
	PillarResults    map[models.PillarName]models.PillarResult
	VisionSummary    string
	OverallSummary   string
	ExecutiveSummary string
	Cost             cost.Breakdown
	DocumentContent  string
	Extraction       *models.ExtractionResult
}

func validate(req ExecuteRequest) error {
	if len(req.Pillars) == 0 {
		return errs.Validation("at least one pillar configuration is required")
	}
	if strings.TrimSpace(req.Document.ID) == "" {
		return errs.Validation("document id is required")
	}
	if strings.TrimSpace(req.Document.Bucket) == "" || strings.TrimSpace(req.Document.Key) == "" {
		return errs.Validation("document %s has no storage location", req.Document.ID)
	}
	seen := make(map[models.PillarName]bool, len(req.Pillars))
	for _, p := range req.Pillars {
		if !p.Name.Valid() {
			return errs.Validation("unknown pillar %q", p.Name)
		}
		if seen[p.Name] {
			return errs.Validation("pillar %q configured twice", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// ExecuteAll extracts the document once, reviews every configured pillar
// concurrently, and returns one result per pillar whatever their outcomes.
// Only invalid input is returned as an error.
func (c *Coordinator) ExecuteAll(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	start := time.Now()
	runID := uuid.NewString()
	logCtx := slog.With("documentId", req.Document.ID, "reviewRequestId", req.Document.ReviewRequestID, "runId", runID)
	logCtx.Info("Starting review run.", "pillars", len(req.Pillars), "language", req.Language)

	ledger := cost.NewLedger(c.pricing)
	extraction := c.extractor.Extract(ctx, req.Document, extract.Options{
		Language:          req.Language,
		ArchitecturePages: req.ArchitecturePages,
	}, ledger, logCtx)

	results := make([]models.PillarResult, len(req.Pillars))
	children := make([]*cost.Ledger, len(req.Pillars))
	var g errgroup.Group
	for i, p := range req.Pillars {
		if !p.Enabled {
			results[i] = skippedResult(p.Name, req.Language)
			continue
		}
		children[i] = ledger.Child()
		g.Go(func() error {
			results[i] = c.runPillar(ctx, req, p, extraction, children[i], logCtx)
			return nil
		})
	}
	_ = g.Wait()

	out := &ExecuteResult{
		RunID:           runID,
		PillarResults:   make(map[models.PillarName]models.PillarResult, len(results)),
		VisionSummary:   extraction.VisionSummary,
		DocumentContent: extraction.TextContent,
		Extraction:      extraction,
	}
	for i, r := range results {
		out.PillarResults[r.PillarName] = r
		ledger.Merge(children[i])
		metrics.CountPillarOutcome(string(r.PillarName), string(r.Status))
	}

	if extraction.VisionSummary != "" {
		out.OverallSummary = extraction.VisionSummary
	} else {
		out.OverallSummary = TemplateSummary(req.Language, req.Document.Title, out.PillarResults)
	}

	if c.cfg.ExecutiveSummary && c.summarizer != nil {
		summary, err := c.summarizer.Summarize(ctx, ExecutiveInput{
			Title:         req.Document.Title,
			Language:      req.Language,
			Results:       out.PillarResults,
			VisionSummary: extraction.VisionSummary,
		}, ledger)
		if err != nil {
			logCtx.Warn("Executive summary failed; returning without one.", "error", err)
		}
		out.ExecutiveSummary = summary
	}

	out.Cost = ledger.Breakdown()
	recordRunCost(out.Cost)
	metrics.ObserveRun("completed", time.Since(start))
	logCtx.Info("Review run finished.", "duration", time.Since(start), "cost", out.Cost.String())
	return out, nil
}

func skippedResult(name models.PillarName, lang models.Language) models.PillarResult {
	note := "Skipped: this pillar is disabled for the review."
	if lang == models.LanguageKorean {
		note = "건너뜀: 이 항목은 검토에서 비활성화되어 있습니다."
	}
	return models.PillarResult{
		PillarName:      name,
		Status:          models.PillarCompleted,
		Findings:        note,
		Recommendations: []string{},
		CompletedAt:     time.Now().UTC(),
	}
}

type pillarOutcome struct {
	result models.PillarResult
	err    error
}

// runPillar reviews one pillar under its own deadline and then attaches
// governance violations. It always returns a result; a model review that has
// not answered by the deadline is abandoned.
func (c *Coordinator) runPillar(ctx context.Context, req ExecuteRequest, p models.PillarConfigPayload, extraction *models.ExtractionResult, ledger *cost.Ledger, logCtx *slog.Logger) models.PillarResult {
	logCtx = logCtx.With("pillar", p.Name)
	start := time.Now()
	pctx, cancel := context.WithTimeout(ctx, c.cfg.PillarTimeout)
	defer cancel()

	done := make(chan pillarOutcome, 1)
	go func() {
		r, err := c.reviewPillar(pctx, req, p, extraction, ledger)
		done <- pillarOutcome{result: r, err: err}
	}()

	var outcome pillarOutcome
	select {
	case outcome = <-done:
	case <-pctx.Done():
		// A review that parsed just as the deadline fired is still kept.
		select {
		case outcome = <-done:
		default:
			outcome.err = pctx.Err()
		}
	}

	if outcome.err != nil {
		elapsed := time.Since(start)
		msg := outcome.err.Error()
		if errors.Is(outcome.err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("review timed out after %s", c.cfg.PillarTimeout)
		}
		logCtx.Error("Pillar review failed.", "error", outcome.err, "duration", elapsed)
		return models.PillarResult{
			PillarName:      p.Name,
			Status:          models.PillarFailed,
			Recommendations: []string{},
			CompletedAt:     time.Now().UTC(),
			Error:           msg,
		}
	}

	result := outcome.result
	if p.CheckGovernance && c.matcher != nil && len(req.GovernancePolicyIDs) > 0 {
		result.GovernanceViolations = c.checkGovernance(ctx, req.GovernancePolicyIDs, extraction.TextContent+"\n\n"+result.Findings, ledger, logCtx)
	}
	result.CompletedAt = time.Now().UTC()
	logCtx.Info("Pillar review completed.", "duration", time.Since(start), "violations", len(result.GovernanceViolations))
	return result
}

// checkGovernance queries the policy matcher under its own budget. Any
// failure, including running out of time, yields no violations.
func (c *Coordinator) checkGovernance(ctx context.Context, policyIDs []string, contextText string, ledger *cost.Ledger, logCtx *slog.Logger) []models.GovernanceViolation {
	gctx, cancel := context.WithTimeout(ctx, c.cfg.GovernanceTimeout)
	defer cancel()

	type matchOutcome struct {
		violations []models.GovernanceViolation
		err        error
	}
	done := make(chan matchOutcome, 1)
	go func() {
		v, err := c.matcher.Query(gctx, policyIDs, contextText, ledger, logCtx)
		done <- matchOutcome{violations: v, err: err}
	}()

	select {
	case m := <-done:
		if m.err != nil {
			logCtx.Warn("Governance check failed; continuing without violations.", "error", m.err)
			return nil
		}
		return m.violations
	case <-gctx.Done():
		logCtx.Warn("Governance check timed out; continuing without violations.", "timeout", c.cfg.GovernanceTimeout.String())
		return nil
	}
}

// reviewPillar calls the pillar's model and parses its answer.
func (c *Coordinator) reviewPillar(ctx context.Context, req ExecuteRequest, p models.PillarConfigPayload, extraction *models.ExtractionResult, ledger *cost.Ledger) (models.PillarResult, error) {
	modelID := firstNonEmpty(p.ModelID, c.cfg.DefaultModelID)
	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.DefaultMaxTokens
	}
	temperature := p.Temperature
	if temperature <= 0 {
		temperature = c.cfg.DefaultTemperature
	}

	invReq := inference.Request{
		SystemPrompt: firstNonEmpty(p.SystemPrompt, c.cfg.SystemPrompts[p.Name], DefaultSystemPrompt(p.Name)),
		Prompt:       buildPillarPrompt(req.Language, p.Name, req.Document, extraction.TextContent, p.AdditionalInstructions),
		MaxTokens:    maxTokens,
		Temperature:  temperature,
	}
	if p.IncludeImages {
		for i, img := range extraction.Images {
			if i == c.cfg.MaxImages {
				break
			}
			invReq.Images = append(invReq.Images, inference.Image{Data: img.Bytes, MIMEType: img.MIMEType})
		}
	}

	resp, err := c.invoker.Invoke(ctx, modelID, invReq)
	if err != nil {
		return models.PillarResult{}, err
	}
	in, out, _ := inference.TokenCounts(invReq, resp)
	ledger.RecordInference(modelID, "pillarReview:"+string(p.Name), in, out, len(invReq.Images))

	text := inference.CleanText(resp.Text)
	findings, recommendations, err := ParseReview(text)
	if err != nil {
		// Refusal phrases are only meaningful when the model did not write a
		// review; findings prose uses them routinely.
		if refusal := inference.CheckRefusal(text); refusal != nil {
			return models.PillarResult{}, refusal
		}
		return models.PillarResult{}, err
	}
	return models.PillarResult{
		PillarName:      p.Name,
		Status:          models.PillarCompleted,
		Findings:        findings,
		Recommendations: recommendations,
	}, nil
}

func recordRunCost(b cost.Breakdown) {
	metrics.AddRunCost(string(cost.CategoryInference), b.Inference)
	metrics.AddRunCost(string(cost.CategoryObjectStorage), b.ObjectStorage)
	metrics.AddRunCost(string(cost.CategoryTableStorage), b.TableStorage)
	metrics.AddRunCost(string(cost.CategoryComputeInvocation), b.ComputeInvocation)
	metrics.AddRunCost(string(cost.CategoryOther), b.Other)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
