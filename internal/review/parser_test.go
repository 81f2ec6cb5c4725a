package review

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/Lllllllleong/architecturereview/internal/errs"
	"github.com/Lllllllleong/architecturereview/internal/models"
)

func TestParseReview(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantFindings string
		wantRecs     []string
	}{
		{
			name:         "english",
			text:         "## Findings\nSingle region.\nNo backups.\n\n## Recommendations\n- Add a second region.\n- Schedule backups.",
			wantFindings: "Single region.\nNo backups.",
			wantRecs:     []string{"Add a second region.", "Schedule backups."},
		},
		{
			name:         "korean headings",
			text:         "## 주요 발견사항\n단일 리전 구성입니다.\n\n## 권장사항\n1. 멀티 리전을 구성하십시오.\n2) 백업을 예약하십시오.",
			wantFindings: "단일 리전 구성입니다.",
			wantRecs:     []string{"멀티 리전을 구성하십시오.", "백업을 예약하십시오."},
		},
		{
			name:         "no recommendations section",
			text:         "## Findings\nNothing notable.",
			wantFindings: "Nothing notable.",
			wantRecs:     []string{},
		},
		{
			name:         "continuation lines and mixed markers",
			text:         "### Findings:\nOK.\n## Recommendations\n* Rotate keys\n  every 90 days.\n• Enable audit logs.",
			wantFindings: "OK.",
			wantRecs:     []string{"Rotate keys every 90 days.", "Enable audit logs."},
		},
		{
			name:         "sub-headings inside recommendations",
			text:         "## Findings\nNo DR plan.\n## Recommendations\n### High priority\n- Write a DR runbook.\n### Later\n- Test failover quarterly.",
			wantFindings: "No DR plan.",
			wantRecs:     []string{"Write a DR runbook.", "Test failover quarterly."},
		},
		{
			name:         "preamble ignored",
			text:         "Here is my review.\n\n## Findings\nFine.\n## Recommendations\n",
			wantFindings: "Fine.",
			wantRecs:     []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings, recs, err := ParseReview(tt.text)
			if err != nil {
				t.Fatalf("ParseReview: %v", err)
			}
			if findings != tt.wantFindings {
				t.Errorf("findings = %q, want %q", findings, tt.wantFindings)
			}
			if !reflect.DeepEqual(recs, tt.wantRecs) {
				t.Errorf("recommendations = %q, want %q", recs, tt.wantRecs)
			}
		})
	}
}

func TestParseReview_Malformed(t *testing.T) {
	for name, text := range map[string]string{
		"no headings":    "The architecture looks fine.",
		"empty findings": "## Findings\n\n## Recommendations\n- Something.",
		"empty":          "",
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseReview(text)
			var pe *errs.ParseError
			if !errors.As(err, &pe) || !errors.Is(err, errs.ErrParse) {
				t.Errorf("expected ParseError, got %v", err)
			}
		})
	}
}

func TestTemplateSummary(t *testing.T) {
	results := map[models.PillarName]models.PillarResult{
		models.PillarSecurity:    {Status: models.PillarCompleted, Recommendations: []string{"a", "b"}, GovernanceViolations: []models.GovernanceViolation{{PolicyID: "p"}}},
		models.PillarReliability: {Status: models.PillarFailed, Recommendations: []string{}},
	}
	en := TemplateSummary(models.LanguageEnglish, "Payments", results)
	if en != "Review of 'Payments': 1 of 2 pillars completed, 1 failed. 2 recommendations and 1 governance violations were identified." {
		t.Errorf("english summary = %q", en)
	}
	ko := TemplateSummary(models.LanguageKorean, "결제", results)
	if !strings.Contains(ko, "전체 2개 항목 중 1개 완료") {
		t.Errorf("korean summary = %q", ko)
	}
}

func TestBuildPillarPrompt(t *testing.T) {
	doc := models.Document{Title: "Payments"}
	ko := buildPillarPrompt(models.LanguageKorean, models.PillarSecurity, doc, "content body", "Focus on IAM.")
	for _, want := range []string{headingFindingsKorean, headingRecommendationsKorean, "한국어", "content body", "Focus on IAM."} {
		if !strings.Contains(ko, want) {
			t.Errorf("korean prompt missing %q", want)
		}
	}
	en := buildPillarPrompt(models.LanguageEnglish, models.PillarSecurity, doc, "content body", "")
	if !strings.Contains(en, headingFindingsEnglish) || strings.Contains(en, headingFindingsKorean) {
		t.Errorf("english prompt has wrong headings:\n%s", en)
	}
}

func TestExecutivePrompt_CapsRecommendations(t *testing.T) {
	recs := []string{"r1", "r2", "r3", "r4", "r5", "r6", "r7"}
	prompt := executivePrompt(ExecutiveInput{
		Title:    "Payments",
		Language: models.LanguageEnglish,
		Results: map[models.PillarName]models.PillarResult{
			models.PillarSecurity:    {Status: models.PillarCompleted, Findings: "ok", Recommendations: recs},
			models.PillarReliability: {Status: models.PillarFailed, Error: "review timed out after 5m0s"},
		},
	})
	if strings.Contains(prompt, "- r6") || !strings.Contains(prompt, "- r5") {
		t.Errorf("recommendations not capped:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Review failed: review timed out") {
		t.Errorf("failed pillar missing:\n%s", prompt)
	}
	if strings.Index(prompt, "Security") > strings.Index(prompt, "Reliability") {
		t.Errorf("pillars out of order:\n%s", prompt)
	}
}
