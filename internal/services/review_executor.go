package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/architecturereview/internal/config"
	"github.com/Lllllllleong/architecturereview/internal/cost"
	"github.com/Lllllllleong/architecturereview/internal/extract"
	"github.com/Lllllllleong/architecturereview/internal/gcp"
	"github.com/Lllllllleong/architecturereview/internal/governance"
	"github.com/Lllllllleong/architecturereview/internal/inference"
	"github.com/Lllllllleong/architecturereview/internal/models"
	"github.com/Lllllllleong/architecturereview/internal/pageselect"
	"github.com/Lllllllleong/architecturereview/internal/raster"
	"github.com/Lllllllleong/architecturereview/internal/review"
	"github.com/Lllllllleong/architecturereview/internal/vision"
)

type ReviewExecutorConfig struct {
	Models            ModelConfig
	ResultsBucket     string
	PillarTimeout     time.Duration
	GovernanceTimeout time.Duration
	ReviewModelID     string
	ScanModelID       string
	VisionModelID     string
	FallbackModelID   string
	SummaryModelID    string
	GovernanceModelID string
	RasterURL         string
	RasterDPI         int
	RedisAddr         string
	PolicyCollection  string
	ExecutiveSummary  bool
	DefaultLanguage   models.Language
	PillarPromptsPath string
	PricingPath       string
}

func loadReviewExecutorConfig() (ReviewExecutorConfig, error) {
	var cfg ReviewExecutorConfig
	var err error
	if cfg.Models, err = loadModelConfig(); err != nil {
		return cfg, err
	}
	if cfg.PillarTimeout, err = config.Duration("PILLAR_TIMEOUT", review.DefaultPillarTimeout); err != nil {
		return cfg, err
	}
	if cfg.GovernanceTimeout, err = config.Duration("GOVERNANCE_TIMEOUT", review.DefaultGovernanceTimeout); err != nil {
		return cfg, err
	}
	if cfg.RasterDPI, err = config.Int("RASTER_DPI", raster.DefaultDPI); err != nil {
		return cfg, err
	}
	if cfg.ExecutiveSummary, err = config.Bool("EXECUTIVE_SUMMARY_ENABLED", true); err != nil {
		return cfg, err
	}
	if cfg.DefaultLanguage, err = config.Language("DEFAULT_LANGUAGE", models.LanguageEnglish); err != nil {
		return cfg, err
	}
	cfg.ResultsBucket = gcp.GetEnv("RESULTS_BUCKET", "")
	cfg.ReviewModelID = gcp.GetEnv("REVIEW_MODEL_ID", "gemini-2.5-pro")
	cfg.ScanModelID = gcp.GetEnv("SCAN_MODEL_ID", "gemini-2.5-pro")
	cfg.VisionModelID = gcp.GetEnv("VISION_MODEL_ID", "gemini-2.5-pro")
	cfg.FallbackModelID = gcp.GetEnv("FALLBACK_MODEL_ID", "gemini-2.5-flash")
	cfg.SummaryModelID = gcp.GetEnv("SUMMARY_MODEL_ID", "gemini-2.5-flash")
	cfg.GovernanceModelID = gcp.GetEnv("GOVERNANCE_MODEL_ID", "gemini-2.5-flash")
	cfg.RasterURL = gcp.GetEnv("RASTER_URL", "")
	cfg.RedisAddr = gcp.GetEnv("REDIS_ADDR", "")
	cfg.PolicyCollection = gcp.GetEnv("POLICY_COLLECTION", "governancePolicies")
	cfg.PillarPromptsPath = gcp.GetEnv("PILLAR_PROMPTS_PATH", "")
	cfg.PricingPath = gcp.GetEnv("PRICING_PATH", "")
	if cfg.ResultsBucket == "" {
		return cfg, fmt.Errorf("RESULTS_BUCKET environment variable must be set")
	}
	return cfg, nil
}

type reviewRunner interface {
	ExecuteAll(ctx context.Context, req review.ExecuteRequest) (*review.ExecuteResult, error)
}

// ReviewExecutorFunction runs a full pillar review of one document.
type ReviewExecutorFunction struct {
	runner          reviewRunner
	results         objectSaver
	defaultLanguage models.Language
}

func NewReviewExecutor(ctx context.Context) (*ReviewExecutorFunction, error) {
	cfg, err := loadReviewExecutorConfig()
	if err != nil {
		return nil, err
	}
	prompts, err := config.LoadPillarPrompts(cfg.PillarPromptsPath)
	if err != nil {
		return nil, err
	}
	pricing, err := config.LoadPricing(cfg.PricingPath, cost.DefaultPricing())
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
	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.Models.ProjectID, gcp.GetEnv("FIRESTORE_DATABASE", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	// Without a rasterizer every raster-requiring model goes straight to the
	// fallback chain.
	var converter raster.Converter
	if cfg.RasterURL != "" {
		c, err := raster.NewHTTPConverter(cfg.RasterURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create raster client: %w", err)
		}
		converter = c
	}

	scanner := pageselect.NewScanner(router, cfg.ScanModelID)
	analyzer := vision.NewAnalyzer(router, router.Catalog(), inference.NewFallbackPolicy(cfg.FallbackModelID), converter, vision.Config{DPI: cfg.RasterDPI})
	extractor := extract.NewExtractor(gcp.NewObjectStore(storageClient), pageselect.NewSelector(scanner), analyzer, extract.Config{
		VisionModelID: cfg.VisionModelID,
	})

	var cache governance.Cache
	if cfg.RedisAddr != "" {
		redisClient, err := governance.DialRedis(ctx, cfg.RedisAddr)
		if err != nil {
			slog.Warn("Redis unavailable; governance results will not be cached.", "addr", cfg.RedisAddr, "error", err)
		} else {
			cache = governance.NewRedisCache(redisClient, governance.DefaultCacheTTL)
		}
	}
	matcher := governance.NewMatcher(governance.NewFirestorePolicySource(firestoreClient, cfg.PolicyCollection), router, cfg.GovernanceModelID, cache)

	coordinator := review.NewCoordinator(extractor, router, matcher, review.NewExecutiveSummarizer(router, cfg.SummaryModelID), pricing, review.Config{
		PillarTimeout:     cfg.PillarTimeout,
		GovernanceTimeout: cfg.GovernanceTimeout,
		DefaultModelID:    cfg.ReviewModelID,
		SystemPrompts:     prompts,
		ExecutiveSummary:  cfg.ExecutiveSummary,
	})

	f := &ReviewExecutorFunction{
		runner:          coordinator,
		results:         newGCSSaver(storageClient, cfg.ResultsBucket),
		defaultLanguage: cfg.DefaultLanguage,
	}
	slog.Info("Review executor initialized.",
		"reviewModel", cfg.ReviewModelID,
		"pillarTimeout", cfg.PillarTimeout.String(),
		"rasterizer", cfg.RasterURL != "",
		"governanceCache", cache != nil,
		"executiveSummary", cfg.ExecutiveSummary)
	return f, nil
}

// storedReview is the JSON object written to the results bucket.
type storedReview struct {
	models.ReviewExecutionResponse
	ExecutionID     string                   `json:"executionId,omitempty"`
	Document        models.Document          `json:"document"`
	Language        models.Language          `json:"language"`
	Extraction      *models.ExtractionResult `json:"extraction,omitempty"`
	DocumentContent string                   `json:"documentContent"`
	CostItems       []cost.Item              `json:"costItems"`
	CreatedAt       time.Time                `json:"createdAt"`
}

// Process runs the review and stores the aggregated result. Only invalid
// requests and storage failures are returned as errors; pillar failures are
// reported inside the response.
func (f *ReviewExecutorFunction) Process(ctx context.Context, req *models.ReviewExecutionRequest) (*models.ReviewExecutionResponse, error) {
	doc := req.Document
	if doc.Format == "" {
		doc.Format = models.FormatFromName(doc.Key)
	}
	lang := models.ParseLanguage(req.Language, f.defaultLanguage)
	logCtx := slog.With("documentId", doc.ID, "reviewRequestId", doc.ReviewRequestID, "executionId", req.ExecutionID)

	result, err := f.runner.ExecuteAll(ctx, review.ExecuteRequest{
		Document:            doc,
		Pillars:             req.Pillars,
		GovernancePolicyIDs: req.GovernancePolicyIDs,
		ArchitecturePages:   req.ArchitecturePages,
		Language:            lang,
	})
	if err != nil {
		logCtx.Error("Review run rejected.", "error", err)
		return nil, err
	}
	logCtx = logCtx.With("runId", result.RunID)

	res := newReviewResponse(result)
	stored := storedReview{
		ReviewExecutionResponse: *res,
		ExecutionID:             req.ExecutionID,
		Document:                doc,
		Language:                lang,
		Extraction:              result.Extraction,
		DocumentContent:         result.DocumentContent,
		CostItems:               result.Cost.Items,
		CreatedAt:               time.Now().UTC(),
	}
	payload, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal review result: %w", err)
	}
	objectName := resultObjectName(doc.ReviewRequestID, result.RunID, "result.json")
	if err := f.results.Save(ctx, objectName, string(payload)); err != nil {
		logCtx.Error("Failed to store review result", "error", err, "gcsObject", objectName)
		return nil, err
	}
	res.ResultGCSUri = f.results.URI(objectName)
	logCtx.Info("Review result stored.", "gcsUri", res.ResultGCSUri)
	return res, nil
}

func newReviewResponse(result *review.ExecuteResult) *models.ReviewExecutionResponse {
	return &models.ReviewExecutionResponse{
		Status:           "COMPLETED",
		RunID:            result.RunID,
		PillarResults:    result.PillarResults,
		VisionSummary:    result.VisionSummary,
		OverallSummary:   result.OverallSummary,
		ExecutiveSummary: result.ExecutiveSummary,
		Cost: models.CostSummary{
			Total:             result.Cost.Total,
			Inference:         result.Cost.Inference,
			ObjectStorage:     result.Cost.ObjectStorage,
			TableStorage:      result.Cost.TableStorage,
			ComputeInvocation: result.Cost.ComputeInvocation,
			Other:             result.Cost.Other,
			ItemCount:         len(result.Cost.Items),
		},
	}
}
