package services

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/architecturereview/internal/gcp"
	"github.com/Lllllllleong/architecturereview/internal/inference"
)

// ModelConfig selects the inference providers available to a function.
type ModelConfig struct {
	ProjectID     string
	Region        string
	GeminiAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

func loadModelConfig() (ModelConfig, error) {
	cfg := ModelConfig{
		ProjectID:     gcp.GetEnv("PROJECT_ID", ""),
		Region:        gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		GeminiAPIKey:  gcp.GetEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:  gcp.GetEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: gcp.GetEnv("OPENAI_BASE_URL", ""),
	}
	if cfg.ProjectID == "" {
		return cfg, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	return cfg, nil
}

// newRouter registers Vertex AI always and the Gemini API and
// OpenAI-compatible providers when their keys are configured. Models of an
// unregistered provider fail with errs.ErrUnknownModel at call time.
func newRouter(ctx context.Context, cfg ModelConfig) (*inference.Router, error) {
	vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	router := inference.NewRouter(inference.DefaultCatalog())
	router.Register(inference.ProviderVertex, inference.NewVertexProvider(vertexClient))

	if cfg.GeminiAPIKey != "" {
		gemini, err := inference.NewGeminiAPIProvider(ctx, cfg.GeminiAPIKey)
		if err != nil {
			_ = vertexClient.Close()
			return nil, fmt.Errorf("failed to create gemini api provider: %w", err)
		}
		router.Register(inference.ProviderGeminiAPI, gemini)
	}
	if cfg.OpenAIAPIKey != "" {
		router.Register(inference.ProviderOpenAI, inference.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL))
	}
	slog.Info("Inference router initialized.",
		"region", cfg.Region,
		"geminiApi", cfg.GeminiAPIKey != "",
		"openai", cfg.OpenAIAPIKey != "")
	return router, nil
}

// objectSaver writes result objects idempotently.
type objectSaver interface {
	Save(ctx context.Context, name, content string) error
	URI(name string) string
}

type gcsSaver struct {
	bucketName string
	bucket     *storage.BucketHandle
}

func newGCSSaver(client *storage.Client, bucketName string) *gcsSaver {
	return &gcsSaver{bucketName: bucketName, bucket: client.Bucket(bucketName)}
}

func (s *gcsSaver) Save(ctx context.Context, name, content string) error {
	return gcp.SaveToGCSAtomically(ctx, s.bucket, name, content)
}

func (s *gcsSaver) URI(name string) string {
	return fmt.Sprintf("gs://%s/%s", s.bucketName, name)
}

func resultObjectName(reviewRequestID, runID, file string) string {
	if reviewRequestID == "" {
		reviewRequestID = "adhoc"
	}
	return fmt.Sprintf("reviews/%s/%s/%s", reviewRequestID, runID, file)
}
