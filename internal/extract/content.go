package extract

import (
	"fmt"
	"strings"

	"github.com/Lllllllleong/architecturereview/internal/models"
)

type headings struct {
	info, title, description, format, size, pages string
	text, diagram, noDiagram, noText              string
	bytesUnit                                     string
}

var headingsByLanguage = map[models.Language]headings{
	models.LanguageEnglish: {
		info:        "## Document Information",
		title:       "Title",
		description: "Description",
		format:      "Format",
		size:        "Size",
		pages:       "Pages",
		bytesUnit:   "bytes",
		text:        "## Extracted Text",
		diagram:     "## Architecture Diagram Analysis",
		noDiagram:   "No architecture diagram was detected in this document.",
		noText:      "Detailed content could not be extracted; the review is based on document metadata only.",
	},
	models.LanguageKorean: {
		info:        "## 문서 정보",
		title:       "제목",
		description: "설명",
		format:      "형식",
		size:        "크기",
		pages:       "페이지 수",
		bytesUnit:   "바이트",
		text:        "## 추출된 텍스트",
		diagram:     "## 아키텍처 다이어그램 분석",
		noDiagram:   "이 문서에서 아키텍처 다이어그램을 찾지 못했습니다.",
		noText:      "상세 내용을 추출할 수 없어 문서 메타데이터만으로 검토합니다.",
	},
}

func headingsFor(lang models.Language) headings {
	if h, ok := headingsByLanguage[lang]; ok {
		return h
	}
	return headingsByLanguage[models.LanguageEnglish]
}

// contentParts are the pieces assembled into ExtractionResult.TextContent.
type contentParts struct {
	doc       models.Document
	size      int
	pageCount int
	text      string
	vision    string
	// diagramSection is false for branches where diagram analysis does not
	// apply at all (unsupported formats, degraded runs).
	diagramSection bool
	degraded       bool
}

func renderContent(lang models.Language, p contentParts) string {
	h := headingsFor(lang)
	var sb strings.Builder
	sb.WriteString(h.info + "\n")
	fmt.Fprintf(&sb, "- %s: %s\n", h.title, p.doc.Title)
	if p.doc.Description != "" {
		fmt.Fprintf(&sb, "- %s: %s\n", h.description, p.doc.Description)
	}
	fmt.Fprintf(&sb, "- %s: %s\n", h.format, p.doc.Format)
	fmt.Fprintf(&sb, "- %s: %d %s\n", h.size, p.size, h.bytesUnit)
	if p.pageCount > 0 {
		fmt.Fprintf(&sb, "- %s: %d\n", h.pages, p.pageCount)
	}

	if p.degraded {
		sb.WriteString("\n" + h.noText + "\n")
		return sb.String()
	}
	if p.text != "" {
		sb.WriteString("\n" + h.text + "\n" + p.text + "\n")
	}
	if p.diagramSection {
		sb.WriteString("\n" + h.diagram + "\n")
		if p.vision != "" {
			sb.WriteString(p.vision + "\n")
		} else {
			sb.WriteString(h.noDiagram + "\n")
		}
	}
	return sb.String()
}
