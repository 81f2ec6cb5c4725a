package pageselect

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/Lllllllleong/architecturereview/internal/cost"
	"github.com/Lllllllleong/architecturereview/internal/errs"
	"github.com/Lllllllleong/architecturereview/internal/inference"
	"github.com/Lllllllleong/architecturereview/internal/models"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeInvoker struct {
	text  string
	err   error
	calls int
	last  inference.Request
}

func (f *fakeInvoker) Invoke(_ context.Context, _ string, req inference.Request) (*inference.Response, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &inference.Response{Text: f.text, Usage: &inference.Usage{InputTokens: 1000, OutputTokens: 100}}, nil
}

const threePageScan = "```\nTOTAL_PAGES: 3\n" +
	"PAGE: 1\nSUMMARY: Title page.\nHAS_ARCHITECTURE: no\nCONFIDENCE: 5\n" +
	"PAGE: 2\nSUMMARY: Three-tier AWS deployment diagram.\nHAS_ARCHITECTURE: yes\nCONFIDENCE: 85\n" +
	"PAGE: 3\nSUMMARY: Cost table.\nHAS_ARCHITECTURE: no\nCONFIDENCE: 20\n```"

func TestParseScan_Valid(t *testing.T) {
	res, err := ParseScan(inference.CleanText(threePageScan))
	if err != nil {
		t.Fatalf("ParseScan: %v", err)
	}
	if res.PageCount != 3 || len(res.Pages) != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
	p := res.Pages[1]
	if p.PageNumber != 2 || !p.HasArchitecture || p.Confidence != 85 || p.Text != "Three-tier AWS deployment diagram." {
		t.Errorf("page 2 = %+v", p)
	}
}

func TestParseScan_RejectsMalformed(t *testing.T) {
	tests := map[string]string{
		"empty":             "",
		"missing total":     "PAGE: 1\nSUMMARY: x\nHAS_ARCHITECTURE: no\nCONFIDENCE: 1",
		"untagged prose":    "TOTAL_PAGES: 1\nHere is my analysis\nPAGE: 1",
		"unknown tag":       "TOTAL_PAGES: 1\nPAGE: 1\nTITLE: x",
		"out of order":      "TOTAL_PAGES: 1\nPAGE: 1\nHAS_ARCHITECTURE: no\nSUMMARY: x\nCONFIDENCE: 1",
		"truncated block":   "TOTAL_PAGES: 1\nPAGE: 1\nSUMMARY: x",
		"missing pages":     "TOTAL_PAGES: 2\nPAGE: 1\nSUMMARY: x\nHAS_ARCHITECTURE: no\nCONFIDENCE: 1",
		"page out of range": "TOTAL_PAGES: 1\nPAGE: 2\nSUMMARY: x\nHAS_ARCHITECTURE: no\nCONFIDENCE: 1",
		"duplicate page": "TOTAL_PAGES: 2\nPAGE: 1\nSUMMARY: x\nHAS_ARCHITECTURE: no\nCONFIDENCE: 1\n" +
			"PAGE: 1\nSUMMARY: y\nHAS_ARCHITECTURE: no\nCONFIDENCE: 1",
		"confidence too high": "TOTAL_PAGES: 1\nPAGE: 1\nSUMMARY: x\nHAS_ARCHITECTURE: yes\nCONFIDENCE: 140",
		"bad flag":            "TOTAL_PAGES: 1\nPAGE: 1\nSUMMARY: x\nHAS_ARCHITECTURE: maybe\nCONFIDENCE: 40",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScan(text)
			var perr *errs.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %v", err)
			}
			if !errors.Is(err, errs.ErrParse) {
				t.Error("ParseError should unwrap to ErrParse")
			}
		})
	}
}

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name   string
		pages  []models.PageAnalysis
		want   int
		wantOK bool
	}{
		{
			name: "only page two qualifies",
			pages: []models.PageAnalysis{
				{PageNumber: 1, HasArchitecture: false, Confidence: 90},
				{PageNumber: 2, HasArchitecture: true, Confidence: 85},
				{PageNumber: 3, HasArchitecture: false},
			},
			want: 2, wantOK: true,
		},
		{
			name: "highest confidence wins",
			pages: []models.PageAnalysis{
				{PageNumber: 1, HasArchitecture: true, Confidence: 40},
				{PageNumber: 2, HasArchitecture: true, Confidence: 95},
				{PageNumber: 3, HasArchitecture: true, Confidence: 70},
			},
			want: 2, wantOK: true,
		},
		{
			name: "tie goes to lowest page even when listed out of order",
			pages: []models.PageAnalysis{
				{PageNumber: 7, HasArchitecture: true, Confidence: 80},
				{PageNumber: 3, HasArchitecture: true, Confidence: 80},
				{PageNumber: 5, HasArchitecture: true, Confidence: 60},
			},
			want: 3, wantOK: true,
		},
		{
			name:  "no architecture pages",
			pages: []models.PageAnalysis{{PageNumber: 1, Confidence: 99}},
		},
		{name: "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectBest(tt.pages)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.PageNumber != tt.want {
				t.Errorf("page = %d, want %d", got.PageNumber, tt.want)
			}
		})
	}
}

func TestResolveOverrides(t *testing.T) {
	valid, rejected := ResolveOverrides([]int{9, 4, 0, 4, 12, 1}, 10)
	if len(valid) != 3 || valid[0] != 1 || valid[1] != 4 || valid[2] != 9 {
		t.Errorf("valid = %v", valid)
	}
	if len(rejected) != 2 {
		t.Errorf("rejected = %v", rejected)
	}
}

func TestSelect_OverrideSkipsScan(t *testing.T) {
	inv := &fakeInvoker{text: threePageScan}
	s := NewSelector(NewScanner(inv, "gemini-2.5-pro"))
	ledger := cost.NewLedger(cost.DefaultPricing())

	sel := s.Select(context.Background(), []byte("%PDF"), 10, []int{4}, models.LanguageEnglish, ledger, discard)
	if sel.Source != SourceOverride || len(sel.Pages) != 1 || sel.Pages[0] != 4 {
		t.Fatalf("selection = %+v", sel)
	}
	if inv.calls != 0 {
		t.Errorf("scan should be skipped, got %d model calls", inv.calls)
	}
	if ledger.Len() != 0 {
		t.Errorf("no cost expected, got %d items", ledger.Len())
	}
}

func TestSelect_ScanPicksBestPage(t *testing.T) {
	inv := &fakeInvoker{text: threePageScan}
	s := NewSelector(NewScanner(inv, "gemini-2.5-pro"))
	ledger := cost.NewLedger(cost.DefaultPricing())

	sel := s.Select(context.Background(), []byte("%PDF"), 3, nil, models.LanguageKorean, ledger, discard)
	if sel.Source != SourceScan || len(sel.Pages) != 1 || sel.Pages[0] != 2 {
		t.Fatalf("selection = %+v", sel)
	}
	if ledger.Len() != 1 {
		t.Errorf("expected one inference cost item, got %d", ledger.Len())
	}
	if !strings.Contains(inv.last.Prompt, "TOTAL_PAGES") || len(inv.last.Document) == 0 {
		t.Error("scan should send the whole document with the tagged format")
	}
}

func TestSelect_ScanFailureMeansNoPage(t *testing.T) {
	for name, inv := range map[string]*fakeInvoker{
		"model error":        {err: errs.External("vertex", errors.New("boom"))},
		"malformed output":   {text: "I think page 2 has a diagram."},
		"page count differs": {text: threePageScan},
	} {
		t.Run(name, func(t *testing.T) {
			s := NewSelector(NewScanner(inv, "gemini-2.5-pro"))
			sel := s.Select(context.Background(), []byte("%PDF"), 5, nil, models.LanguageEnglish, cost.NewLedger(cost.DefaultPricing()), discard)
			if sel.Source != SourceNone || len(sel.Pages) != 0 {
				t.Errorf("selection = %+v", sel)
			}
		})
	}
}

func TestSelect_AllOverridesInvalidFallsBackToScan(t *testing.T) {
	inv := &fakeInvoker{text: threePageScan}
	s := NewSelector(NewScanner(inv, "gemini-2.5-pro"))
	sel := s.Select(context.Background(), []byte("%PDF"), 3, []int{42}, models.LanguageEnglish, cost.NewLedger(cost.DefaultPricing()), discard)
	if sel.Source != SourceScan || inv.calls != 1 {
		t.Errorf("selection = %+v, calls = %d", sel, inv.calls)
	}
}
