package review

import (
	"fmt"

	"github.com/Lllllllleong/architecturereview/internal/models"
)

// TemplateSummary renders a deterministic overview of a run from pillar
// outcome counts, used when no model-generated vision summary exists.
func TemplateSummary(lang models.Language, title string, results map[models.PillarName]models.PillarResult) string {
	var completed, failed, recommendations, violations int
	for _, r := range results {
		if r.Status == models.PillarCompleted {
			completed++
		} else {
			failed++
		}
		recommendations += len(r.Recommendations)
		violations += len(r.GovernanceViolations)
	}
	total := len(results)

	if lang == models.LanguageKorean {
		return fmt.Sprintf("'%s' 검토 결과: 전체 %d개 항목 중 %d개 완료, %d개 실패. 권장사항 %d건, 거버넌스 위반 %d건이 확인되었습니다.",
			title, total, completed, failed, recommendations, violations)
	}
	return fmt.Sprintf("Review of '%s': %d of %d pillars completed, %d failed. %d recommendations and %d governance violations were identified.",
		title, completed, total, failed, recommendations, violations)
}
