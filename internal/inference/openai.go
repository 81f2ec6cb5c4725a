package inference

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider serves models that take rasters as image_url parts inside a
// chat-completion request.
type OpenAIProvider struct {
	client openai.Client
}

// NewOpenAIProvider builds a provider. baseURL may point at any
// OpenAI-compatible endpoint; empty means the public API.
func NewOpenAIProvider(apiKey, baseURL string, opts ...option.RequestOption) *OpenAIProvider {
	all := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		all = append(all, option.WithBaseURL(baseURL))
	}
	all = append(all, opts...)
	return &OpenAIProvider{client: openai.NewClient(all...)}
}

func (p *OpenAIProvider) Invoke(ctx context.Context, modelID string, req Request) (*Response, error) {
	content := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(req.Prompt)}
	for _, img := range req.Images {
		content = append(content, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: dataURI(img),
		}))
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(content))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(modelID),
		Messages:    messages,
		Temperature: openai.Float(float64(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion(%s): %w", modelID, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai chat completion(%s): no choices returned", modelID)
	}
	out := &Response{Text: completion.Choices[0].Message.Content}
	if u := completion.Usage; u.PromptTokens > 0 || u.CompletionTokens > 0 {
		out.Usage = &Usage{InputTokens: int(u.PromptTokens), OutputTokens: int(u.CompletionTokens)}
	}
	return out, nil
}

func dataURI(img Image) string {
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
