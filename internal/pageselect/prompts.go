package pageselect

import "github.com/Lllllllleong/architecturereview/internal/models"

const scanSystemPrompt = "You are a document analyst who locates architecture diagrams in technical documents. You answer only in the exact line format you are given."

// The scoring rubric lives in the prompt; the response format is identical
// across languages.
const scanPromptEnglish = `Analyze every page of the attached PDF and decide whether it contains architecture content.

A page contains architecture content if ANY of the following holds:
1. It shows a visual diagram made of boxes and arrows connecting components.
2. It depicts system, cloud or service icons (compute, database, queue, load balancer, storage).
3. It contains three or more architecture keywords (e.g. VPC, subnet, API gateway, microservice, cluster, replica, CDN, message queue, region, availability zone).
4. It describes a layered or tiered structure (presentation / application / data tiers, network layers).

Compute CONFIDENCE as the sum of these weighted signals, clipped to 0-100:
- diagram present: up to 50
- density of service or component names: up to 20
- density of architecture keywords: up to 15
- description of data flow between components: up to 15

Respond with exactly these lines and nothing else:
TOTAL_PAGES: <number of pages>
then, for every page in ascending order:
PAGE: <page number>
SUMMARY: <one sentence describing the page>
HAS_ARCHITECTURE: <yes or no>
CONFIDENCE: <integer 0-100>`

const scanPromptKorean = `첨부된 PDF의 모든 페이지를 분석하여 각 페이지에 아키텍처 내용이 포함되어 있는지 판단하십시오.

다음 중 하나라도 해당하면 아키텍처 내용이 포함된 페이지입니다:
1. 구성 요소를 연결하는 박스와 화살표로 이루어진 다이어그램이 있음.
2. 시스템, 클라우드 또는 서비스 아이콘(컴퓨팅, 데이터베이스, 큐, 로드 밸런서, 스토리지)이 표시됨.
3. 아키텍처 키워드가 세 개 이상 포함됨 (예: VPC, 서브넷, API 게이트웨이, 마이크로서비스, 클러스터, 복제본, CDN, 메시지 큐, 리전, 가용 영역).
4. 계층형 또는 티어 구조(프레젠테이션 / 애플리케이션 / 데이터 계층, 네트워크 계층)를 설명함.

CONFIDENCE는 다음 가중 신호의 합계이며 0-100 범위로 제한합니다:
- 다이어그램 존재: 최대 50
- 서비스 또는 구성 요소 이름의 밀도: 최대 20
- 아키텍처 키워드 밀도: 최대 15
- 구성 요소 간 데이터 흐름 설명: 최대 15

다른 내용 없이 정확히 다음 형식의 줄로만 응답하십시오 (태그는 영어 그대로 사용):
TOTAL_PAGES: <페이지 수>
이후 모든 페이지에 대해 오름차순으로:
PAGE: <페이지 번호>
SUMMARY: <페이지를 설명하는 한 문장>
HAS_ARCHITECTURE: <yes 또는 no>
CONFIDENCE: <0-100 정수>`

func scanPrompt(lang models.Language) string {
	if lang == models.LanguageKorean {
		return scanPromptKorean
	}
	return scanPromptEnglish
}
