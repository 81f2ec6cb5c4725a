package inference

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/architecturereview/internal/gcp"
)

// VertexProvider serves native-document models through Vertex AI. PDFs are
// sent inline as application/pdf blobs.
type VertexProvider struct {
	client *gcp.VertexClient
}

func NewVertexProvider(client *gcp.VertexClient) *VertexProvider {
	return &VertexProvider{client: client}
}

func (p *VertexProvider) Invoke(ctx context.Context, modelID string, req Request) (*Response, error) {
	model := p.client.Model(modelID, req.SystemPrompt)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	model.SetTemperature(req.Temperature)
	if req.JSONResponse {
		model.GenerationConfig.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, vertexParts(req)...)
	if err != nil {
		return nil, fmt.Errorf("vertex GenerateContent(%s): %w", modelID, err)
	}
	out := &Response{Text: vertexText(resp)}
	if resp.UsageMetadata != nil && (resp.UsageMetadata.PromptTokenCount > 0 || resp.UsageMetadata.CandidatesTokenCount > 0) {
		out.Usage = &Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

func vertexParts(req Request) []genai.Part {
	var parts []genai.Part
	if len(req.Document) > 0 {
		parts = append(parts, genai.Blob{MIMEType: "application/pdf", Data: req.Document})
	}
	for _, img := range req.Images {
		parts = append(parts, genai.Blob{MIMEType: img.MIMEType, Data: img.Data})
	}
	return append(parts, genai.Text(req.Prompt))
}

// vertexText concatenates the text parts of the first candidate.
func vertexText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}
