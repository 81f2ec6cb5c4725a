package inference

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiAPIProvider serves image-only model families (Gemma) through the
// Gemini API. These models have no system instruction slot, so the system
// prompt is folded into the user turn.
type GeminiAPIProvider struct {
	client *genai.Client
}

func NewGeminiAPIProvider(ctx context.Context, apiKey string) (*GeminiAPIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("NewGeminiAPIProvider: api key cannot be empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &GeminiAPIProvider{client: client}, nil
}

func (p *GeminiAPIProvider) Invoke(ctx context.Context, modelID string, req Request) (*Response, error) {
	var parts []*genai.Part
	for _, img := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(foldSystemPrompt(req.SystemPrompt, req.Prompt)))

	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(req.Temperature)}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := p.client.Models.GenerateContent(ctx, modelID,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini api GenerateContent(%s): %w", modelID, err)
	}
	out := &Response{Text: resp.Text()}
	if u := resp.UsageMetadata; u != nil && (u.PromptTokenCount > 0 || u.CandidatesTokenCount > 0) {
		out.Usage = &Usage{InputTokens: int(u.PromptTokenCount), OutputTokens: int(u.CandidatesTokenCount)}
	}
	return out, nil
}

func foldSystemPrompt(system, prompt string) string {
	if system == "" {
		return prompt
	}
	return system + "\n\n" + prompt
}
