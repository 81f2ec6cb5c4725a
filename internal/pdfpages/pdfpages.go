// Package pdfpages counts and isolates pages of an in-memory PDF.
package pdfpages

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/Lllllllleong/architecturereview/internal/errs"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func relaxedConfig() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

// PageCount returns the number of pages in pdf.
func PageCount(pdf []byte) (int, error) {
	if len(pdf) == 0 {
		return 0, errs.Validation("empty pdf")
	}
	n, err := api.PageCount(bytes.NewReader(pdf), relaxedConfig())
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read page count: %w", errs.ErrUnsupportedFormat, err)
	}
	return n, nil
}

// IsolatePage returns page pageNumber (1-based) of pdf as a standalone
// one-page PDF.
func IsolatePage(pdf []byte, pageNumber int) ([]byte, error) {
	if pageNumber < 1 {
		return nil, errs.Validation("invalid page number %d", pageNumber)
	}
	count, err := PageCount(pdf)
	if err != nil {
		return nil, err
	}
	if pageNumber > count {
		return nil, fmt.Errorf("%w: page %d of a %d-page document", errs.ErrNotFound, pageNumber, count)
	}
	if count == 1 {
		return pdf, nil
	}

	var out bytes.Buffer
	if err := api.Trim(bytes.NewReader(pdf), &out, []string{strconv.Itoa(pageNumber)}, relaxedConfig()); err != nil {
		return nil, fmt.Errorf("failed to isolate page %d: %w", pageNumber, err)
	}
	return out.Bytes(), nil
}
