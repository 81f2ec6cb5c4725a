package pageselect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Lllllllleong/architecturereview/internal/errs"
	"github.com/Lllllllleong/architecturereview/internal/models"
)

type tag int

const (
	tagTotalPages tag = iota
	tagPage
	tagSummary
	tagHasArchitecture
	tagConfidence
)

var tagNames = map[string]tag{
	"TOTAL_PAGES":      tagTotalPages,
	"PAGE":             tagPage,
	"SUMMARY":          tagSummary,
	"HAS_ARCHITECTURE": tagHasArchitecture,
	"CONFIDENCE":       tagConfidence,
}

// next is the tag expected after each tag; a page block is always
// PAGE, SUMMARY, HAS_ARCHITECTURE, CONFIDENCE.
var next = map[tag]tag{
	tagTotalPages:      tagPage,
	tagPage:            tagSummary,
	tagSummary:         tagHasArchitecture,
	tagHasArchitecture: tagConfidence,
	tagConfidence:      tagPage,
}

func (t tag) String() string {
	for name, v := range tagNames {
		if v == t {
			return name
		}
	}
	return "UNKNOWN"
}

// ParseScan parses a page-scan response. The whole response is rejected on
// the first deviation from the format; no partial page list is returned.
func ParseScan(text string) (*ScanResult, error) {
	var (
		result   *ScanResult
		current  models.PageAnalysis
		expected = tagTotalPages
		seen     = make(map[int]bool)
	)

	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "```") || line == "---" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, &errs.ParseError{Line: lineNo, Reason: fmt.Sprintf("untagged line %q", line)}
		}
		t, known := tagNames[strings.ToUpper(strings.TrimSpace(name))]
		if !known {
			return nil, &errs.ParseError{Line: lineNo, Reason: fmt.Sprintf("unknown tag %q", name)}
		}
		if t != expected {
			return nil, &errs.ParseError{Line: lineNo, Reason: fmt.Sprintf("expected %s, got %s", expected, t)}
		}
		value = strings.TrimSpace(value)

		switch t {
		case tagTotalPages:
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return nil, &errs.ParseError{Line: lineNo, Reason: fmt.Sprintf("invalid page total %q", value)}
			}
			result = &ScanResult{PageCount: n}
		case tagPage:
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 || n > result.PageCount {
				return nil, &errs.ParseError{Line: lineNo, Reason: fmt.Sprintf("page number %q outside 1..%d", value, result.PageCount)}
			}
			if seen[n] {
				return nil, &errs.ParseError{Line: lineNo, Reason: fmt.Sprintf("duplicate page %d", n)}
			}
			seen[n] = true
			current = models.PageAnalysis{PageNumber: n}
		case tagSummary:
			current.Text = value
		case tagHasArchitecture:
			switch strings.ToLower(value) {
			case "yes", "true":
				current.HasArchitecture = true
			case "no", "false":
				current.HasArchitecture = false
			default:
				return nil, &errs.ParseError{Line: lineNo, Reason: fmt.Sprintf("invalid architecture flag %q", value)}
			}
		case tagConfidence:
			n, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
			if err != nil || n < 0 || n > 100 {
				return nil, &errs.ParseError{Line: lineNo, Reason: fmt.Sprintf("confidence %q outside 0..100", value)}
			}
			current.Confidence = n
			result.Pages = append(result.Pages, current)
		}
		expected = next[t]
	}

	if result == nil {
		return nil, &errs.ParseError{Reason: "missing TOTAL_PAGES"}
	}
	if expected != tagPage {
		return nil, &errs.ParseError{Reason: fmt.Sprintf("truncated page block, expected %s", expected)}
	}
	if len(result.Pages) != result.PageCount {
		return nil, &errs.ParseError{Reason: fmt.Sprintf("got %d page blocks for %d pages", len(result.Pages), result.PageCount)}
	}
	return result, nil
}
