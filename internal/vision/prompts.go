package vision

import (
	"fmt"

	"github.com/Lllllllleong/architecturereview/internal/models"
)

const systemPrompt = "You are a senior cloud solutions architect. You describe architecture diagrams precisely and never invent components that are not shown."

// Both default prompts require the same four sections in the same order.
const defaultPromptEnglish = `Analyze the architecture diagram on this page.

Respond in Markdown with exactly these sections:
### Components
List every system, service, data store and external actor shown, with its apparent role.
### Data Flow
Describe how requests and data move between the components, following the arrows.
### Boundaries
Describe network, security and trust boundaries (VPCs, subnets, zones, accounts, firewalls).
### Observations
Note single points of failure, missing redundancy, security exposure or anything unclear in the diagram.`

const defaultPromptKorean = `이 페이지의 아키텍처 다이어그램을 분석하십시오.

다음 섹션을 정확히 포함한 Markdown으로 응답하십시오 (섹션 제목은 영어 그대로 사용):
### Components
표시된 모든 시스템, 서비스, 데이터 저장소 및 외부 액터와 각각의 역할을 나열하십시오.
### Data Flow
화살표를 따라 구성 요소 간 요청과 데이터가 어떻게 이동하는지 설명하십시오.
### Boundaries
네트워크, 보안 및 신뢰 경계(VPC, 서브넷, 영역, 계정, 방화벽)를 설명하십시오.
### Observations
단일 장애 지점, 이중화 부족, 보안 노출 또는 다이어그램에서 불명확한 부분을 기록하십시오.`

// DefaultPrompts returns the built-in analysis prompts keyed by language.
func DefaultPrompts() map[models.Language]string {
	return map[models.Language]string{
		models.LanguageEnglish: defaultPromptEnglish,
		models.LanguageKorean:  defaultPromptKorean,
	}
}

func substitutionNotice(lang models.Language, requested, used string) string {
	if lang == models.LanguageKorean {
		return fmt.Sprintf("> [알림] 페이지를 이미지로 변환할 수 없어 요청한 모델 %s 대신 대체 모델 %s로 분석했습니다. 분석의 정확도가 낮을 수 있습니다.\n\n", requested, used)
	}
	return fmt.Sprintf("> [Notice] The page could not be converted to an image for the requested model %s, so substitute model %s produced this analysis. It may be less detailed.\n\n", requested, used)
}
