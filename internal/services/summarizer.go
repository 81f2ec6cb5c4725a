package services

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/architecturereview/internal/config"
	"github.com/Lllllllleong/architecturereview/internal/cost"
	"github.com/Lllllllleong/architecturereview/internal/errs"
	"github.com/Lllllllleong/architecturereview/internal/gcp"
	"github.com/Lllllllleong/architecturereview/internal/models"
	"github.com/Lllllllleong/architecturereview/internal/review"
)

type SummarizerConfig struct {
	Models          ModelConfig
	ResultsBucket   string
	SummaryModelID  string
	DefaultLanguage models.Language
}

// SummarizerFunction writes executive summaries for runs that skipped the
// synchronous step.
type SummarizerFunction struct {
	summarizer      review.Summarizer
	results         objectSaver
	pricing         cost.Pricing
	defaultLanguage models.Language
}

func NewSummarizer(ctx context.Context) (*SummarizerFunction, error) {
	modelCfg, err := loadModelConfig()
	if err != nil {
		return nil, err
	}
	lang, err := config.Language("DEFAULT_LANGUAGE", models.LanguageEnglish)
	if err != nil {
		return nil, err
	}
	cfg := SummarizerConfig{
		Models:          modelCfg,
		ResultsBucket:   gcp.GetEnv("RESULTS_BUCKET", ""),
		SummaryModelID:  gcp.GetEnv("SUMMARY_MODEL_ID", "gemini-2.5-flash"),
		DefaultLanguage: lang,
	}
	if cfg.ResultsBucket == "" {
		return nil, fmt.Errorf("RESULTS_BUCKET environment variable must be set")
	}
	pricing, err := config.LoadPricing(gcp.GetEnv("PRICING_PATH", ""), cost.DefaultPricing())
	if err != nil {
		return nil, err
	}

	router, err := newRouter(ctx, cfg.Models)
	if err != nil {
		return nil, err
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}

	f := &SummarizerFunction{
		summarizer:      review.NewExecutiveSummarizer(router, cfg.SummaryModelID),
		results:         newGCSSaver(storageClient, cfg.ResultsBucket),
		pricing:         pricing,
		defaultLanguage: cfg.DefaultLanguage,
	}
	slog.Info("Executive summarizer initialized.", "model", cfg.SummaryModelID)
	return f, nil
}

// Process summarises stored pillar results and saves the summary next to the
// run's result object.
func (f *SummarizerFunction) Process(ctx context.Context, req *models.ExecutiveSummaryRequest) (*models.ExecutiveSummaryResponse, error) {
	if req.RunID == "" {
		return nil, errs.Validation("runId is required")
	}
	if len(req.PillarResults) == 0 {
		return nil, errs.Validation("pillarResults must not be empty")
	}
	logCtx := slog.With("reviewRequestId", req.ReviewRequestID, "runId", req.RunID)

	ledger := cost.NewLedger(f.pricing)
	summary, err := f.summarizer.Summarize(ctx, review.ExecutiveInput{
		Title:         req.DocumentTitle,
		Language:      models.ParseLanguage(req.Language, f.defaultLanguage),
		Results:       req.PillarResults,
		VisionSummary: req.VisionSummary,
	}, ledger)
	if err != nil {
		logCtx.Error("Executive summary failed", "error", err)
		return nil, err
	}

	objectName := resultObjectName(req.ReviewRequestID, req.RunID, "executive-summary.md")
	if err := f.results.Save(ctx, objectName, summary); err != nil {
		logCtx.Error("Failed to store executive summary", "error", err, "gcsObject", objectName)
		return nil, err
	}
	total := ledger.Total()
	logCtx.Info("Executive summary stored.", "gcsObject", objectName, "cost", total)
	return &models.ExecutiveSummaryResponse{
		Status:           "COMPLETED",
		ExecutiveSummary: summary,
		SummaryGCSUri:    f.results.URI(objectName),
		Cost:             total,
	}, nil
}
