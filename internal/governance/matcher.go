package governance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/architecturereview/internal/cost"
	"github.com/Lllllllleong/architecturereview/internal/errs"
	"github.com/Lllllllleong/architecturereview/internal/inference"
	"github.com/Lllllllleong/architecturereview/internal/models"
)

const judgeSystemPrompt = "You are a cloud governance auditor. You compare architecture documentation against written policies and report only clear violations. You output valid JSON only."

const judgePrompt = `Compare the architecture content below against each governance policy.

Report a violation only when the content clearly contradicts a policy or omits something the policy requires.
Respond with a JSON object of the form:
{"violations": [{"policyId": "...", "title": "...", "description": "what is wrong", "correction": "how to fix it", "severity": "High|Medium|Low"}]}
Return {"violations": []} when nothing is violated.

# Policies
%s
# Architecture Content
%s`

// Matcher answers policy-matching queries with a model judgement, caching
// results when a cache is configured.
type Matcher struct {
	source  PolicySource
	invoker inference.Invoker
	modelID string
	cache   Cache
}

// NewMatcher builds a matcher. cache may be nil.
func NewMatcher(source PolicySource, invoker inference.Invoker, modelID string, cache Cache) *Matcher {
	return &Matcher{source: source, invoker: invoker, modelID: modelID, cache: cache}
}

type judgeResponse struct {
	Violations []struct {
		PolicyID    string `json:"policyId"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Correction  string `json:"correction"`
		Severity    string `json:"severity"`
	} `json:"violations"`
}

// Query returns the violations of policyIDs found in contextText. Cache
// failures are logged to logCtx and otherwise ignored.
func (m *Matcher) Query(ctx context.Context, policyIDs []string, contextText string, ledger *cost.Ledger, logCtx *slog.Logger) ([]models.GovernanceViolation, error) {
	if len(policyIDs) == 0 {
		return nil, nil
	}
	key := CacheKey(policyIDs, contextText)
	if m.cache != nil {
		cached, ok, err := m.cache.Get(ctx, key)
		if err != nil {
			logCtx.Warn("Governance cache read failed.", "error", err)
		} else if ok {
			return cached, nil
		}
	}

	policies, err := m.source.Policies(ctx, policyIDs)
	if err != nil {
		return nil, errs.External("policy store", err)
	}
	ledger.RecordTableReads("governancePolicies", len(policyIDs))
	if len(policies) == 0 {
		return nil, nil
	}

	req := inference.Request{
		SystemPrompt: judgeSystemPrompt,
		Prompt:       fmt.Sprintf(judgePrompt, renderPolicies(policies), contextText),
		MaxTokens:    4096,
		JSONResponse: true,
	}
	resp, err := m.invoker.Invoke(ctx, m.modelID, req)
	if err != nil {
		return nil, fmt.Errorf("governance judgement: %w", err)
	}
	in, out, _ := inference.TokenCounts(req, resp)
	ledger.RecordInference(m.modelID, "governanceCheck", in, out, 0)

	violations, err := parseViolations(resp.Text, policies)
	if err != nil {
		return nil, err
	}
	if m.cache != nil {
		if err := m.cache.Set(ctx, key, violations); err != nil {
			logCtx.Warn("Governance cache write failed.", "error", err)
		}
	}
	return violations, nil
}

func renderPolicies(policies []Policy) string {
	var sb strings.Builder
	for _, p := range policies {
		fmt.Fprintf(&sb, "## %s (id: %s, severity: %s)\n%s\n", p.Title, p.ID, p.Severity, p.Description)
		if p.Rules != "" {
			sb.WriteString(p.Rules + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// parseViolations decodes the judge's JSON, drops violations that cite
// policies outside the queried set, and fills gaps from the policy itself.
func parseViolations(text string, policies []Policy) ([]models.GovernanceViolation, error) {
	var parsed judgeResponse
	if err := json.Unmarshal([]byte(inference.CleanText(text)), &parsed); err != nil {
		return nil, &errs.ParseError{Reason: fmt.Sprintf("governance response is not valid JSON: %v", err)}
	}
	byID := make(map[string]Policy, len(policies))
	for _, p := range policies {
		byID[p.ID] = p
	}

	violations := make([]models.GovernanceViolation, 0, len(parsed.Violations))
	for _, v := range parsed.Violations {
		p, ok := byID[v.PolicyID]
		if !ok {
			continue
		}
		title := v.Title
		if title == "" {
			title = p.Title
		}
		severity := v.Severity
		if severity == "" {
			severity = p.Severity
		}
		violations = append(violations, models.GovernanceViolation{
			PolicyID:    v.PolicyID,
			Title:       title,
			Description: v.Description,
			Correction:  v.Correction,
			Severity:    models.ParseSeverity(severity),
		})
	}
	return violations, nil
}
