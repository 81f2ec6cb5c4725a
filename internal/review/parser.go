package review

import (
	"strings"
	"unicode"

	"github.com/Lllllllleong/architecturereview/internal/errs"
)

const (
	headingFindingsEnglish        = "## Findings"
	headingRecommendationsEnglish = "## Recommendations"
	headingFindingsKorean         = "## 주요 발견사항"
	headingRecommendationsKorean  = "## 권장사항"
)

type section int

const (
	sectionNone section = iota
	sectionFindings
	sectionRecommendations
)

var sectionHeadings = map[string]section{
	"findings":        sectionFindings,
	"주요 발견사항":         sectionFindings,
	"recommendations": sectionRecommendations,
	"권장사항":            sectionRecommendations,
}

// headingSection reports which known section a Markdown heading line opens.
func headingSection(line string) (section, bool) {
	if !strings.HasPrefix(line, "#") {
		return sectionNone, false
	}
	name := strings.ToLower(strings.TrimSpace(strings.TrimLeft(line, "#")))
	name = strings.TrimRight(name, ":")
	s, ok := sectionHeadings[name]
	return s, ok
}

// ParseReview splits a pillar review into findings prose and an ordered
// recommendation list. Headings of either language are accepted. A response
// without a findings section is rejected; a missing recommendations section
// yields an empty list.
func ParseReview(text string) (findings string, recommendations []string, err error) {
	var (
		current      = sectionNone
		sawFindings  bool
		findingLines []string
	)
	recommendations = []string{}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if s, ok := headingSection(line); ok {
			current = s
			if s == sectionFindings {
				sawFindings = true
			}
			continue
		}
		switch current {
		case sectionFindings:
			findingLines = append(findingLines, strings.TrimRight(raw, " \t\r"))
		case sectionRecommendations:
			// Unknown sub-headings ("### High priority") group items and are not
			// recommendations themselves.
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if item, ok := listItem(line); ok {
				if item != "" {
					recommendations = append(recommendations, item)
				}
			} else if n := len(recommendations); n > 0 {
				recommendations[n-1] += " " + line
			} else {
				recommendations = append(recommendations, line)
			}
		}
	}

	if !sawFindings {
		return "", nil, &errs.ParseError{Reason: "review is missing the findings section"}
	}
	findings = strings.TrimSpace(strings.Join(findingLines, "\n"))
	if findings == "" {
		return "", nil, &errs.ParseError{Reason: "findings section is empty"}
	}
	return findings, recommendations, nil
}

// listItem strips a bullet or ordinal marker ("-", "*", "•", "1.", "2)").
func listItem(line string) (string, bool) {
	for _, marker := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(line[len(marker):]), true
		}
	}
	digits := strings.IndexFunc(line, func(r rune) bool { return !unicode.IsDigit(r) })
	if digits > 0 && (line[digits] == '.' || line[digits] == ')') {
		return strings.TrimSpace(line[digits+1:]), true
	}
	return "", false
}
