package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfText returns the plain-text layer of a PDF, page by page.
func pdfText(content []byte) (text string, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read PDF text: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	var buf strings.Builder
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		buf.WriteString(strings.TrimSpace(pageText))
		if i < numPages {
			buf.WriteByte('\n')
		}
	}
	return strings.TrimSpace(buf.String()), nil
}

// truncate cuts s to at most limit runes, marking the cut.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "\n[...]"
}
