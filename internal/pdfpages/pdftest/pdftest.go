// Package pdftest builds small, well-formed PDFs for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// PageText is the text drawn on page n of a Document.
func PageText(n int) string {
	return fmt.Sprintf("Architecture page %d", n)
}

// Document returns an uncompressed PDF with pages pages, each drawing
// PageText in Helvetica.
func Document(pages int) []byte {
	texts := make([]string, pages)
	for i := range texts {
		texts[i] = PageText(i + 1)
	}
	return WithTexts(texts...)
}

// WithTexts returns a PDF with one page per text.
func WithTexts(texts ...string) []byte {
	var buf bytes.Buffer
	// Objects: 1 catalog, 2 page tree, 3 font, then a page and its content
	// stream per text.
	offsets := make([]int, 0, 3+2*len(texts))
	object := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := make([]string, len(texts))
	for i := range texts {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	object("<< /Type /Catalog /Pages 2 0 R >>")
	object(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(texts)))
	object("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for i, text := range texts {
		object(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		content := fmt.Sprintf("BT\n/F1 18 Tf\n72 720 Td\n(%s) Tj\nET", escape(text))
		object(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(s)
}
