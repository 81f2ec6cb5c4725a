// Package pageselect finds the pages of a PDF that carry architecture
// diagrams, either by a model-driven scan or from a caller's override list.
package pageselect

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Lllllllleong/architecturereview/internal/cost"
	"github.com/Lllllllleong/architecturereview/internal/inference"
	"github.com/Lllllllleong/architecturereview/internal/models"
)

// ScanResult is the parsed outcome of one page scan.
type ScanResult struct {
	PageCount int
	Pages     []models.PageAnalysis
}

// Scanner submits a whole PDF to a multilingual model and parses its
// per-page verdicts.
type Scanner struct {
	invoker   inference.Invoker
	modelID   string
	maxTokens int
}

func NewScanner(invoker inference.Invoker, modelID string) *Scanner {
	return &Scanner{invoker: invoker, modelID: modelID, maxTokens: 8192}
}

// Scan runs the page scan. expectedPages, when positive, must agree with the
// model's reported total. One inference cost item is recorded per call.
func (s *Scanner) Scan(ctx context.Context, pdf []byte, expectedPages int, lang models.Language, ledger *cost.Ledger) (*ScanResult, error) {
	req := inference.Request{
		SystemPrompt: scanSystemPrompt,
		Prompt:       scanPrompt(lang),
		Document:     pdf,
		MaxTokens:    s.maxTokens,
	}
	resp, err := s.invoker.Invoke(ctx, s.modelID, req)
	if err != nil {
		return nil, fmt.Errorf("page scan: %w", err)
	}
	in, out, _ := inference.TokenCounts(req, resp)
	ledger.RecordInference(s.modelID, "pageScan", in, out, 0)

	result, err := ParseScan(inference.CleanText(resp.Text))
	if err != nil {
		return nil, fmt.Errorf("page scan: %w", err)
	}
	if expectedPages > 0 && result.PageCount != expectedPages {
		return nil, fmt.Errorf("page scan: model reported %d pages, document has %d", result.PageCount, expectedPages)
	}
	return result, nil
}

// SelectBest returns the architecture page with the highest confidence.
// Ties go to the lowest page number. ok is false when no page qualifies.
func SelectBest(pages []models.PageAnalysis) (best models.PageAnalysis, ok bool) {
	candidates := make([]models.PageAnalysis, 0, len(pages))
	for _, p := range pages {
		if p.HasArchitecture {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return models.PageAnalysis{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].PageNumber < candidates[j].PageNumber })
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Confidence > candidates[j].Confidence })
	return candidates[0], true
}

// ResolveOverrides keeps the override pages that exist in a pageCount-page
// document, sorted and de-duplicated. Rejected entries are returned
// separately so the caller can report them.
func ResolveOverrides(overrides []int, pageCount int) (valid, rejected []int) {
	seen := make(map[int]bool)
	for _, p := range overrides {
		if p < 1 || (pageCount > 0 && p > pageCount) {
			rejected = append(rejected, p)
			continue
		}
		if !seen[p] {
			seen[p] = true
			valid = append(valid, p)
		}
	}
	sort.Ints(valid)
	return valid, rejected
}

// Source records how a Selection was made.
type Source string

const (
	SourceOverride Source = "override"
	SourceScan     Source = "scan"
	SourceNone     Source = "none"
)

// Selection is the set of pages chosen for vision analysis.
type Selection struct {
	Pages  []int
	Source Source
	Scan   *ScanResult
}

// Selector chooses the pages to analyze.
type Selector struct {
	scanner *Scanner
}

func NewSelector(scanner *Scanner) *Selector {
	return &Selector{scanner: scanner}
}

// Select returns the caller's override pages when any are usable, skipping
// the scan entirely. Otherwise it scans and picks the single best page. A
// failed scan is logged and yields an empty selection.
func (s *Selector) Select(ctx context.Context, pdf []byte, pageCount int, overrides []int, lang models.Language, ledger *cost.Ledger, logCtx *slog.Logger) Selection {
	if len(overrides) > 0 {
		valid, rejected := ResolveOverrides(overrides, pageCount)
		if len(rejected) > 0 {
			logCtx.Warn("Ignoring architecture page overrides outside the document.", "rejected", rejected, "pageCount", pageCount)
		}
		if len(valid) > 0 {
			logCtx.Info("Using caller-supplied architecture pages.", "pages", valid)
			return Selection{Pages: valid, Source: SourceOverride}
		}
	}

	scan, err := s.scanner.Scan(ctx, pdf, pageCount, lang, ledger)
	if err != nil {
		logCtx.Warn("Architecture page scan failed; continuing without a diagram page.", "error", err)
		return Selection{Source: SourceNone}
	}
	best, ok := SelectBest(scan.Pages)
	if !ok {
		logCtx.Info("Page scan found no architecture diagram.", "pageCount", scan.PageCount)
		return Selection{Source: SourceNone, Scan: scan}
	}
	logCtx.Info("Selected architecture page.", "page", best.PageNumber, "confidence", best.Confidence)
	return Selection{Pages: []int{best.PageNumber}, Source: SourceScan, Scan: scan}
}
