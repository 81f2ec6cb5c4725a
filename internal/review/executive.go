package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Lllllllleong/architecturereview/internal/cost"
	"github.com/Lllllllleong/architecturereview/internal/inference"
	"github.com/Lllllllleong/architecturereview/internal/models"
)

const executiveSystemPrompt = "You are a principal architect writing a one-page executive summary of an architecture review for senior leadership. Be concise and concrete."

// ExecutiveInput is everything an executive summary is written from.
type ExecutiveInput struct {
	Title         string
	Language      models.Language
	Results       map[models.PillarName]models.PillarResult
	VisionSummary string
}

// ExecutiveSummarizer writes executive summaries with a single model call.
type ExecutiveSummarizer struct {
	invoker inference.Invoker
	modelID string
}

func NewExecutiveSummarizer(invoker inference.Invoker, modelID string) *ExecutiveSummarizer {
	return &ExecutiveSummarizer{invoker: invoker, modelID: modelID}
}

// Summarize returns the executive summary and records its cost.
func (s *ExecutiveSummarizer) Summarize(ctx context.Context, in ExecutiveInput, ledger *cost.Ledger) (string, error) {
	if len(in.Results) == 0 {
		return "", errors.New("no pillar results to summarise")
	}
	req := inference.Request{
		SystemPrompt: executiveSystemPrompt,
		Prompt:       executivePrompt(in),
		MaxTokens:    2048,
		Temperature:  0.3,
	}
	resp, err := s.invoker.Invoke(ctx, s.modelID, req)
	if err != nil {
		return "", fmt.Errorf("executive summary: %w", err)
	}
	inTok, outTok, _ := inference.TokenCounts(req, resp)
	ledger.RecordInference(s.modelID, "executiveSummary", inTok, outTok, 0)

	text := inference.CleanText(resp.Text)
	if text == "" {
		return "", errors.New("executive summary: model returned no text")
	}
	return text, nil
}

func executivePrompt(in ExecutiveInput) string {
	var sb strings.Builder
	if in.Language == models.LanguageKorean {
		fmt.Fprintf(&sb, "'%s' 문서의 아키텍처 검토 결과를 바탕으로 경영진 요약을 한국어로 작성하십시오. 전반적인 평가, 가장 중요한 위험 3가지, 우선 조치 사항을 포함하십시오.\n\n", in.Title)
	} else {
		fmt.Fprintf(&sb, "Write an executive summary in English of the architecture review of '%s'. Include an overall assessment, the three most important risks and the priority actions.\n\n", in.Title)
	}
	if in.VisionSummary != "" {
		sb.WriteString("# Architecture Diagram Analysis\n" + in.VisionSummary + "\n\n")
	}
	for _, name := range models.AllPillars {
		r, ok := in.Results[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "# %s (%s)\n", name.DisplayName(in.Language), r.Status)
		if r.Status != models.PillarCompleted {
			sb.WriteString("Review failed: " + r.Error + "\n\n")
			continue
		}
		sb.WriteString(r.Findings + "\n")
		for i, rec := range r.Recommendations {
			if i == 5 {
				break
			}
			sb.WriteString("- " + rec + "\n")
		}
		for _, v := range r.GovernanceViolations {
			fmt.Fprintf(&sb, "- [%s] %s: %s\n", v.Severity, v.Title, v.Description)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
