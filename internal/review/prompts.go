package review

import (
	"fmt"
	"strings"

	"github.com/Lllllllleong/architecturereview/internal/models"
)

var defaultSystemPrompts = map[models.PillarName]string{
	models.PillarOperationalExcellence: "You are a cloud architect reviewing a design against the Operational Excellence pillar of the Well-Architected Framework: observability, deployment automation, runbooks, incident response and continuous improvement.",
	models.PillarSecurity:              "You are a cloud security architect reviewing a design against the Security pillar of the Well-Architected Framework: identity and access, network protection, data protection in transit and at rest, detection and incident response.",
	models.PillarReliability:           "You are a cloud architect reviewing a design against the Reliability pillar of the Well-Architected Framework: fault isolation, redundancy across zones and regions, backup and recovery, quotas and change management.",
	models.PillarPerformanceEfficiency: "You are a cloud architect reviewing a design against the Performance Efficiency pillar of the Well-Architected Framework: resource selection, scaling, caching, data access patterns and latency.",
	models.PillarCostOptimization:      "You are a cloud architect reviewing a design against the Cost Optimization pillar of the Well-Architected Framework: right-sizing, pricing models, managed services, idle resources and cost visibility.",
	models.PillarSustainability:        "You are a cloud architect reviewing a design against the Sustainability pillar of the Well-Architected Framework: utilisation, efficient regions and hardware, data lifecycle and demand shaping.",
}

// DefaultSystemPrompt returns the built-in system prompt for a pillar.
func DefaultSystemPrompt(p models.PillarName) string {
	return defaultSystemPrompts[p]
}

type promptText struct {
	intro, title, description, content, instructions string
	format                                           string
	language                                         string
}

var promptTexts = map[models.Language]promptText{
	models.LanguageEnglish: {
		intro:        "Review the following architecture document for the %s pillar.",
		title:        "Document title",
		description:  "Document description",
		content:      "# Document Content",
		instructions: "# Additional Instructions",
		format: "Respond in Markdown with exactly these two sections:\n" +
			headingFindingsEnglish + "\nA prose assessment of strengths and risks.\n" +
			headingRecommendationsEnglish + "\nA bulleted list of concrete, prioritised recommendations, one per line starting with \"- \".",
		language: "Write the entire response in English.",
	},
	models.LanguageKorean: {
		intro:        "다음 아키텍처 문서를 %s 관점에서 검토하십시오.",
		title:        "문서 제목",
		description:  "문서 설명",
		content:      "# 문서 내용",
		instructions: "# 추가 지침",
		format: "다음 두 섹션을 정확히 포함한 Markdown으로 응답하십시오:\n" +
			headingFindingsKorean + "\n강점과 위험에 대한 서술형 평가.\n" +
			headingRecommendationsKorean + "\n구체적이고 우선순위가 정해진 권장사항 목록, 각 줄은 \"- \"로 시작.",
		language: "전체 응답을 한국어로 작성하십시오.",
	},
}

func textsFor(lang models.Language) promptText {
	if t, ok := promptTexts[lang]; ok {
		return t
	}
	return promptTexts[models.LanguageEnglish]
}

// buildPillarPrompt assembles the user prompt for one pillar review.
func buildPillarPrompt(lang models.Language, pillar models.PillarName, doc models.Document, content, additional string) string {
	t := textsFor(lang)
	var sb strings.Builder
	fmt.Fprintf(&sb, t.intro+"\n\n", pillar.DisplayName(lang))
	fmt.Fprintf(&sb, "%s: %s\n", t.title, doc.Title)
	if doc.Description != "" {
		fmt.Fprintf(&sb, "%s: %s\n", t.description, doc.Description)
	}
	sb.WriteString("\n" + t.content + "\n" + content + "\n")
	if strings.TrimSpace(additional) != "" {
		sb.WriteString("\n" + t.instructions + "\n" + additional + "\n")
	}
	sb.WriteString("\n" + t.format + "\n\n" + t.language)
	return sb.String()
}
